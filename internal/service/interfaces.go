package service

import (
	"context"
	"io"
	"time"
	"vkozyrev/photocaption/internal/model"
)

// BlobStorage is the object-store the images and their JSON sidecars
// live in.
type BlobStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	List(ctx context.Context) ([]string, error)
	PublicURL(key string) string
}

// Captioner derives a title/description for an image. It never fails:
// captioning problems degrade to sentinel captions.
type Captioner interface {
	Caption(ctx context.Context, image []byte, mimeType string) model.Caption
}

// MetadataService persists derived metadata as a JSON sidecar and,
// when the structured store is configured, as a queryable record.
type MetadataService interface {
	Persist(ctx context.Context, key string, caption model.Caption, uploader string, createdAt time.Time) error
	Find(ctx context.Context, filters map[string]interface{}) ([]model.PhotoRecord, error)
	ReplayOutbox(ctx context.Context)
}

type PhotoService interface {
	Ingest(ctx context.Context, filename string, data []byte) (*model.IngestResult, error)
	View(ctx context.Context, key string) (*model.DisplayPayload, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Sidecar(ctx context.Context, key string) ([]byte, error)
	ListPhotos(ctx context.Context) ([]string, error)
	FindRecords(ctx context.Context, filters map[string]interface{}) ([]model.PhotoRecord, error)
}
