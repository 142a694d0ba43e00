package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// UploadService stores a photographed fine notice under a generated key.
// The object-created wiring that feeds OCR and the ticket processor lives
// outside this service.
type UploadService struct {
	store ObjectStore
	log   zerolog.Logger
}

func NewUploadService(store ObjectStore, log zerolog.Logger) *UploadService {
	return &UploadService{
		store: store,
		log:   log,
	}
}

// Upload decodes a base64 image and writes it to object storage under a
// fresh UUID-based key. Returns the generated key.
func (s *UploadService) Upload(ctx context.Context, imageBase64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", fmt.Errorf("%w: decode image: %v", ErrInvalidInput, err)
	}

	key := uuid.New().String() + ".jpg"

	if err := s.store.Put(ctx, key, data, "image/jpeg"); err != nil {
		return "", err
	}

	s.log.Info().
		Str("file_key", key).
		Int("size_bytes", len(data)).
		Msg("image uploaded")

	return key, nil
}
