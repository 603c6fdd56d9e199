// Package blob wraps MinIO/S3-compatible object storage for raw HTML and
// synthesized audio.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStore struct {
	Client *minio.Client
	Bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey string, secure bool, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStore{Client: client, Bucket: bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)
	_, err := s.Client.PutObject(ctx, s.Bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.Client.GetObject(ctx, s.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// HTMLKey is the deterministic blob key for a bookmark's sanitized HTML.
func HTMLKey(raindropID int64) string {
	return fmt.Sprintf("html/%d", raindropID)
}

// AudioKey is the deterministic blob key for a bookmark's podcast audio.
func AudioKey(raindropID int64) string {
	return fmt.Sprintf("audio/%d.mp3", raindropID)
}

// CoverKey is the deterministic blob key for a bookmark's screenshot cover.
func CoverKey(raindropID int64) string {
	return fmt.Sprintf("covers/%d.png", raindropID)
}
