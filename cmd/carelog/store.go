package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/syndtr/goleveldb/leveldb"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/adapters/crypto"
	"github.com/carelog-g8/carelog/internal/adapters/handler"
	"github.com/carelog-g8/carelog/internal/adapters/metrics"
	"github.com/carelog-g8/carelog/internal/adapters/repository"
	"github.com/carelog-g8/carelog/internal/config"
	"github.com/carelog-g8/carelog/internal/core/ports"
)

// documentStore bundles the repository with what the health check needs.
type documentStore struct {
	*repository.DocumentRepository
	backend string
	pinger  handler.Pinger
}

// keyPolicy says whether a missing key file may be generated.
type keyPolicy int

const (
	createMissingKey keyPolicy = iota
	requireKey
)

// openDocumentStore builds the encrypted repository over the configured blob
// backend. The returned func releases backend resources.
func openDocumentStore(ctx context.Context, cfg *config.Config, keys keyPolicy, m *metrics.Metrics, logger *zap.Logger) (*documentStore, func(), error) {
	var (
		key []byte
		err error
	)
	if keys == requireKey {
		key, err = crypto.ReadKeyFile(cfg.KeyFile)
	} else {
		key, err = crypto.LoadOrCreateKey(cfg.KeyFile, logger)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load encryption key: %w", err)
	}
	cipher, err := crypto.NewDocumentCipher(key)
	if err != nil {
		return nil, nil, err
	}

	var (
		blob    ports.BlobStore
		pinger  handler.Pinger
		closeFn = func() {}
	)

	switch cfg.StoreDriver {
	case "file":
		blob = repository.NewFileBlob(cfg.DataFile)

	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		pg := repository.NewPostgresBlob(db, cfg.DocumentID, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		blob, pinger = pg, pg
		closeFn = func() { db.Close() }

	case "leveldb":
		db, err := leveldb.OpenFile(cfg.LevelDBPath, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("open leveldb: %w", err)
		}
		blob = repository.NewLevelDBBlob(db, cfg.DocumentID)
		closeFn = func() { db.Close() }

	case "minio":
		client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
			Secure: cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create minio client: %w", err)
		}
		mb := repository.NewMinioBlob(client, cfg.Minio.Bucket, cfg.DocumentID, logger)
		if err := mb.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure bucket: %w", err)
		}
		blob, pinger = mb, mb

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	logger.Info("document store ready", zap.String("backend", blob.Name()))
	return &documentStore{
		DocumentRepository: repository.NewDocumentRepository(blob, cipher, m, logger),
		backend:            blob.Name(),
		pinger:             pinger,
	}, closeFn, nil
}
