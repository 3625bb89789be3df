package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/carelog-g8/carelog/internal/core/ports"
)

// FileBlob keeps the document in a single local file. Writes go to a
// temporary file that replaces the original.
type FileBlob struct {
	path string
}

var _ ports.BlobStore = (*FileBlob)(nil)

func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

func (f *FileBlob) Name() string { return "file" }

func (f *FileBlob) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ports.ErrBlobNotFound
	}
	return data, err
}

func (f *FileBlob) Write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
