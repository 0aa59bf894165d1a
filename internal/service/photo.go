package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
	"vkozyrev/photocaption/internal/model"
)

// ErrNoFile marks a request that arrived without an uploaded file.
var ErrNoFile = errors.New("no file supplied")

// DefaultUploader is the fixed identity recorded while the service has
// no user accounts.
const DefaultUploader = "anonymous"

const (
	jpegContentType = "image/jpeg"

	defaultTitle       = "No Title"
	defaultDescription = "No description available."
)

type photoService struct {
	blob      BlobStorage
	captioner Captioner
	metadata  MetadataService
}

func NewPhotoService(blob BlobStorage, captioner Captioner, metadata MetadataService) PhotoService {
	return &photoService{
		blob:      blob,
		captioner: captioner,
		metadata:  metadata,
	}
}

// Ingest stores the image, derives a caption and persists the metadata.
// Failure semantics differ per step: a blob write failure aborts the
// whole operation, a captioning failure degrades to a sentinel caption,
// and a metadata failure is logged but the already-stored image is not
// rolled back.
func (s *photoService) Ingest(ctx context.Context, filename string, data []byte) (*model.IngestResult, error) {
	if filename == "" {
		return nil, ErrNoFile
	}

	if err := s.blob.Put(ctx, filename, data, jpegContentType); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	caption := s.captioner.Caption(ctx, data, jpegContentType)

	if err := s.metadata.Persist(ctx, filename, caption, DefaultUploader, time.Now()); err != nil {
		log.Printf("Metadata persistence incomplete for %s: %v", filename, err)
	}

	return &model.IngestResult{
		Name:    filename,
		Caption: caption,
	}, nil
}

// View composes the display payload for a stored image. A missing
// sidecar is not an error, it falls back to the default title and
// description.
func (s *photoService) View(ctx context.Context, key string) (*model.DisplayPayload, error) {
	payload := &model.DisplayPayload{
		Title:       defaultTitle,
		Description: defaultDescription,
		URL:         s.blob.PublicURL(key),
	}

	data, err := s.blob.Get(ctx, model.SidecarKey(key))
	if errors.Is(err, ErrObjectNotFound) {
		return payload, nil
	}
	if err != nil {
		return nil, err
	}

	var meta model.SidecarMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar for %s: %w", key, err)
	}
	payload.Title = meta.Title
	payload.Description = meta.Description
	return payload, nil
}

func (s *photoService) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.blob.Download(ctx, key)
}

func (s *photoService) Sidecar(ctx context.Context, key string) ([]byte, error) {
	return s.blob.Get(ctx, key)
}

// ListPhotos enumerates stored image keys, keeping only JPEG extensions.
// Order is whatever the store returns.
func (s *photoService) ListPhotos(ctx context.Context) ([]string, error) {
	keys, err := s.blob.List(ctx)
	if err != nil {
		return nil, err
	}

	photos := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, ".jpg") || strings.HasSuffix(key, ".jpeg") {
			photos = append(photos, key)
		}
	}
	return photos, nil
}

func (s *photoService) FindRecords(ctx context.Context, filters map[string]interface{}) ([]model.PhotoRecord, error) {
	return s.metadata.Find(ctx, filters)
}
