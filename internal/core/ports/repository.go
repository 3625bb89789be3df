package ports

import (
	"context"

	"github.com/carelog-g8/carelog/internal/core/domain"
)

// DocumentStore loads and saves the whole CareLog document.
type DocumentStore interface {
	Load(ctx context.Context) (*domain.Document, error)
	Save(ctx context.Context, doc *domain.Document) error
}

// BlobStore holds the encrypted document bytes. Read returns ErrBlobNotFound
// when nothing has been written yet.
type BlobStore interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Name() string
}

type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}
