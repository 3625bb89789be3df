package repository

import (
	"context"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/carelog-g8/carelog/internal/core/ports"
)

// LevelDBBlob keeps the document under a single key of an embedded LevelDB.
type LevelDBBlob struct {
	db  *leveldb.DB
	key []byte
}

var _ ports.BlobStore = (*LevelDBBlob)(nil)

func NewLevelDBBlob(db *leveldb.DB, docID string) *LevelDBBlob {
	return &LevelDBBlob{db: db, key: []byte("carelog/document/" + docID)}
}

func (l *LevelDBBlob) Name() string { return "leveldb" }

func (l *LevelDBBlob) Read(ctx context.Context) ([]byte, error) {
	data, err := l.db.Get(l.key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ports.ErrBlobNotFound
	}
	return data, err
}

func (l *LevelDBBlob) Write(ctx context.Context, data []byte) error {
	return l.db.Put(l.key, data, nil)
}
