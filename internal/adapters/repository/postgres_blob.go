package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/config"
	"github.com/carelog-g8/carelog/internal/core/ports"
)

const documentSchema = `
CREATE TABLE IF NOT EXISTS carelog_documents (
	id         TEXT PRIMARY KEY,
	payload    BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresBlob keeps the encrypted document as one row of carelog_documents.
type PostgresBlob struct {
	db    *sql.DB
	docID string
	cb    *gobreaker.CircuitBreaker
}

var _ ports.BlobStore = (*PostgresBlob)(nil)

func NewPostgresBlob(db *sql.DB, docID string, logger *zap.Logger) *PostgresBlob {
	return &PostgresBlob{
		db:    db,
		docID: docID,
		cb:    config.NewCircuitBreaker("PostgreSQL", logger),
	}
}

func (p *PostgresBlob) Name() string { return "postgres" }

func (p *PostgresBlob) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, documentSchema)
	return err
}

func (p *PostgresBlob) Read(ctx context.Context) ([]byte, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		var payload []byte
		err := p.db.QueryRowContext(ctx,
			"SELECT payload FROM carelog_documents WHERE id = $1",
			p.docID,
		).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return payload, err
	})
	if err != nil {
		return nil, err
	}
	payload, _ := out.([]byte)
	if payload == nil {
		return nil, ports.ErrBlobNotFound
	}
	return payload, nil
}

func (p *PostgresBlob) Write(ctx context.Context, data []byte) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO carelog_documents (id, payload, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
			p.docID, data,
		)
		return nil, err
	})
	return err
}

func (p *PostgresBlob) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
