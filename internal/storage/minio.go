package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"fines-service/internal/config"
)

// MinIOStorage holds the process-lifetime handle to the S3-compatible
// object store that keeps the uploaded ticket photos.
type MinIOStorage struct {
	client         *minio.Client
	bucket         string
	publicEndpoint string
	log            zerolog.Logger
}

func New(cfg *config.Config, log zerolog.Logger) (*MinIOStorage, error) {
	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	publicEndpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Storage.PublicEndpoint), "/")
	if publicEndpoint == "" {
		publicEndpoint = cfg.Storage.Endpoint
	}

	s := &MinIOStorage{
		client:         minioClient,
		bucket:         cfg.Storage.Bucket,
		publicEndpoint: publicEndpoint,
		log:            log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := minioClient.BucketExists(ctx, s.bucket)
	if err != nil {
		log.Warn().Err(err).Str("bucket", s.bucket).Msg("failed to check bucket existence")
	} else if !exists {
		if err := minioClient.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			log.Error().Err(err).Str("bucket", s.bucket).Msg("failed to create bucket")
		} else {
			log.Info().Str("bucket", s.bucket).Msg("bucket created")
		}
	}

	log.Info().
		Str("endpoint", cfg.Storage.Endpoint).
		Str("bucket", s.bucket).
		Msg("object storage initialized")

	return s, nil
}

func (s *MinIOStorage) Bucket() string {
	return s.bucket
}

// Put writes one object to the configured bucket. Exactly one write, no
// retries; failures surface to the caller.
func (s *MinIOStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(
		ctx,
		s.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// PublicURL builds the browser-reachable URL for an object. The bucket is
// taken from the caller because processed tickets carry their own storage
// locator, which may predate the currently configured bucket.
func (s *MinIOStorage) PublicURL(bucket, key string) string {
	if strings.Contains(s.publicEndpoint, "://") {
		return fmt.Sprintf("%s/%s/%s", s.publicEndpoint, bucket, key)
	}
	return fmt.Sprintf("https://%s/%s/%s", s.publicEndpoint, bucket, key)
}
