package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
	"vkozyrev/photocaption/internal/model"
	"vkozyrev/photocaption/internal/repository"
)

// ErrNoStructuredStore is returned from Find when the service runs in
// sidecar-only mode.
var ErrNoStructuredStore = errors.New("structured store is not configured")

const sidecarContentType = "application/json"

// metadataService performs the dual write: a JSON sidecar next to the
// image and, when a database is configured, a queryable photo record.
// There is no transaction across the two stores. A failed leg goes to
// the outbox and is replayed later; both legs overwrite by image name,
// so replays are safe.
type metadataService struct {
	blob   BlobStorage
	photos repository.PhotoRepository
	outbox repository.OutboxRepository
}

func NewMetadataService(blob BlobStorage, photos repository.PhotoRepository, outbox repository.OutboxRepository) MetadataService {
	return &metadataService{
		blob:   blob,
		photos: photos,
		outbox: outbox,
	}
}

func (s *metadataService) Persist(ctx context.Context, key string, caption model.Caption, uploader string, createdAt time.Time) error {
	record := model.PhotoRecord{
		Name:        key,
		URL:         s.blob.PublicURL(key),
		User:        uploader,
		Timestamp:   createdAt.Unix(),
		Title:       caption.Title,
		Description: caption.Description,
	}

	var failed []string

	if err := s.writeSidecar(ctx, record); err != nil {
		log.Printf("Sidecar write failed for %s: %v", key, err)
		s.enqueueRetry(ctx, repository.OutboxEntry{Leg: repository.OutboxLegSidecar, Name: key, Record: record})
		failed = append(failed, "sidecar")
	}

	if s.photos != nil {
		if err := s.photos.Upsert(ctx, &record); err != nil {
			log.Printf("Record write failed for %s: %v", key, err)
			s.enqueueRetry(ctx, repository.OutboxEntry{Leg: repository.OutboxLegRecord, Name: key, Record: record})
			failed = append(failed, "record")
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("metadata write incomplete for %s: %v", key, failed)
	}
	return nil
}

func (s *metadataService) writeSidecar(ctx context.Context, record model.PhotoRecord) error {
	data, err := json.Marshal(model.SidecarMetadata{
		Title:       record.Title,
		Description: record.Description,
	})
	if err != nil {
		return err
	}
	return s.blob.Put(ctx, model.SidecarKey(record.Name), data, sidecarContentType)
}

// enqueueRetry hands a failed leg to the outbox. Without a configured outbox
// the failure stays log-only, matching the old best-effort behavior.
func (s *metadataService) enqueueRetry(ctx context.Context, entry repository.OutboxEntry) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Enqueue(ctx, entry); err != nil {
		log.Printf("Failed to enqueue outbox entry for %s: %v", entry.Name, err)
	}
}

func (s *metadataService) Find(ctx context.Context, filters map[string]interface{}) ([]model.PhotoRecord, error) {
	if s.photos == nil {
		return nil, ErrNoStructuredStore
	}
	return s.photos.Find(ctx, filters)
}

// ReplayOutbox drains the queue once, retrying each failed leg. Entries
// that fail again are requeued with a bumped attempt counter.
func (s *metadataService) ReplayOutbox(ctx context.Context) {
	if s.outbox == nil {
		return
	}

	pending, err := s.outbox.Len(ctx)
	if err != nil {
		log.Printf("Outbox length check failed: %v", err)
		return
	}

	for i := int64(0); i < pending; i++ {
		entry, err := s.outbox.Dequeue(ctx)
		if err != nil {
			log.Printf("Outbox dequeue failed: %v", err)
			return
		}
		if entry == nil {
			return
		}

		if err := s.replay(ctx, *entry); err != nil {
			entry.Attempts++
			log.Printf("Outbox replay failed for %s (%s, attempt %d): %v", entry.Name, entry.Leg, entry.Attempts, err)
			if err := s.outbox.Enqueue(ctx, *entry); err != nil {
				log.Printf("Failed to requeue outbox entry for %s: %v", entry.Name, err)
			}
			continue
		}
		log.Printf("Outbox replayed %s leg for %s", entry.Leg, entry.Name)
	}
}

func (s *metadataService) replay(ctx context.Context, entry repository.OutboxEntry) error {
	switch entry.Leg {
	case repository.OutboxLegSidecar:
		return s.writeSidecar(ctx, entry.Record)
	case repository.OutboxLegRecord:
		if s.photos == nil {
			return ErrNoStructuredStore
		}
		record := entry.Record
		return s.photos.Upsert(ctx, &record)
	default:
		return fmt.Errorf("unknown outbox leg %q", entry.Leg)
	}
}
