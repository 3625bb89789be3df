package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/adapters/metrics"
	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/core/ports"
)

// DocumentRepository stores the whole document as one encrypted JSON blob.
type DocumentRepository struct {
	blob    ports.BlobStore
	cipher  ports.Cipher
	metrics *metrics.Metrics
	log     *zap.Logger
}

var _ ports.DocumentStore = (*DocumentRepository)(nil)

func NewDocumentRepository(blob ports.BlobStore, cipher ports.Cipher, m *metrics.Metrics, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		blob:    blob,
		cipher:  cipher,
		metrics: m,
		log:     logger,
	}
}

// Load returns an empty document when nothing was stored yet or when the
// stored bytes cannot be decrypted or parsed. Backend read failures are
// returned so an unreachable store is never mistaken for an empty one.
func (r *DocumentRepository) Load(ctx context.Context) (*domain.Document, error) {
	data, err := r.blob.Read(ctx)
	if errors.Is(err, ports.ErrBlobNotFound) || (err == nil && len(data) == 0) {
		r.log.Info("repository: no stored document, starting empty", zap.String("backend", r.blob.Name()))
		r.metrics.ObserveDocumentLoad("empty")
		return domain.NewDocument(), nil
	}
	if err != nil {
		r.metrics.ObserveDocumentLoad("error")
		return nil, fmt.Errorf("read %s blob: %w", r.blob.Name(), err)
	}

	plaintext, err := r.cipher.Decrypt(data)
	if err != nil {
		r.log.Warn("repository: could not decrypt document, starting with a new dataset",
			zap.String("backend", r.blob.Name()),
			zap.Error(err),
		)
		r.metrics.ObserveDocumentLoad("corrupt")
		return domain.NewDocument(), nil
	}

	doc := domain.NewDocument()
	if err := json.Unmarshal(plaintext, doc); err != nil {
		r.log.Warn("repository: malformed document, starting with a new dataset",
			zap.String("backend", r.blob.Name()),
			zap.Error(err),
		)
		r.metrics.ObserveDocumentLoad("corrupt")
		return domain.NewDocument(), nil
	}
	doc.Normalize()

	r.metrics.ObserveDocumentLoad("loaded")
	return doc, nil
}

func (r *DocumentRepository) Save(ctx context.Context, doc *domain.Document) (err error) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveDocumentWrite(r.blob.Name(), time.Since(start), err)
	}()

	plaintext, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	ciphertext, err := r.cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt document: %w", err)
	}
	if err := r.blob.Write(ctx, ciphertext); err != nil {
		return fmt.Errorf("write %s blob: %w", r.blob.Name(), err)
	}
	return nil
}
