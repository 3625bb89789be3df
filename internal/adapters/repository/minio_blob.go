package repository

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/config"
	"github.com/carelog-g8/carelog/internal/core/ports"
)

// MinioBlob keeps the document as one object in an S3-compatible bucket.
type MinioBlob struct {
	client *minio.Client
	bucket string
	object string
	cb     *gobreaker.CircuitBreaker
}

var _ ports.BlobStore = (*MinioBlob)(nil)

func NewMinioBlob(client *minio.Client, bucket, docID string, logger *zap.Logger) *MinioBlob {
	return &MinioBlob{
		client: client,
		bucket: bucket,
		object: docID + ".enc",
		cb:     config.NewCircuitBreaker("MinIO", logger),
	}
}

func (m *MinioBlob) Name() string { return "minio" }

func (m *MinioBlob) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

func (m *MinioBlob) Read(ctx context.Context) ([]byte, error) {
	out, err := m.cb.Execute(func() (interface{}, error) {
		obj, err := m.client.GetObject(ctx, m.bucket, m.object, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		defer obj.Close()
		data, err := io.ReadAll(obj)
		if err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		return nil, err
	}
	data, _ := out.([]byte)
	if data == nil {
		return nil, ports.ErrBlobNotFound
	}
	return data, nil
}

func (m *MinioBlob) Write(ctx context.Context, data []byte) error {
	_, err := m.cb.Execute(func() (interface{}, error) {
		_, err := m.client.PutObject(ctx, m.bucket, m.object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "text/plain",
		})
		return nil, err
	})
	return err
}

func (m *MinioBlob) Ping(ctx context.Context) error {
	_, err := m.client.BucketExists(ctx, m.bucket)
	return err
}
