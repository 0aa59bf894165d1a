package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"vkozyrev/photocaption/internal/model"
	"vkozyrev/photocaption/internal/repository"
)

// fakeBlob is an in-memory BlobStorage. Keys listed in failPuts reject
// writes, which is how the dual-write tests break a single leg.
type fakeBlob struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	failPuts map[string]bool
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{
		objects:  make(map[string][]byte),
		types:    make(map[string]string),
		failPuts: make(map[string]bool),
	}
}

func (f *fakeBlob) Put(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPuts[key] {
		return fmt.Errorf("put %s: injected failure", key)
	}
	f.objects[key] = append([]byte(nil), data...)
	f.types[key] = contentType
	return nil
}

func (f *fakeBlob) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeBlob) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	data, err := f.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return io.NopCloser(bytes.NewReader(data)), f.types[key], nil
}

func (f *fakeBlob) List(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	return keys, nil
}

func (f *fakeBlob) PublicURL(key string) string {
	return "https://blobs.test/bucket/" + key
}

// fakeCaptioner returns a fixed caption.
type fakeCaptioner struct {
	caption model.Caption
}

func (f *fakeCaptioner) Caption(ctx context.Context, image []byte, mimeType string) model.Caption {
	return f.caption
}

// fakePhotoRepo is an in-memory PhotoRepository keyed by record name.
type fakePhotoRepo struct {
	mu      sync.Mutex
	records map[string]model.PhotoRecord
	fail    bool
}

func newFakePhotoRepo() *fakePhotoRepo {
	return &fakePhotoRepo{records: make(map[string]model.PhotoRecord)}
}

func (f *fakePhotoRepo) Upsert(ctx context.Context, record *model.PhotoRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("upsert: injected failure")
	}
	if existing, ok := f.records[record.Name]; ok {
		record.ID = existing.ID
	} else if record.ID == "" {
		record.ID = fmt.Sprintf("id-%d", len(f.records)+1)
	}
	f.records[record.Name] = *record
	return nil
}

func (f *fakePhotoRepo) Find(ctx context.Context, filters map[string]interface{}) ([]model.PhotoRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("find: injected failure")
	}
	var out []model.PhotoRecord
	for _, record := range f.records {
		if name, ok := filters["name"]; ok && record.Name != name {
			continue
		}
		if user, ok := filters["user"]; ok && record.User != user {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// fakeOutbox is an in-memory OutboxRepository.
type fakeOutbox struct {
	mu      sync.Mutex
	entries []repository.OutboxEntry
}

func (f *fakeOutbox) Enqueue(ctx context.Context, entry repository.OutboxEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeOutbox) Dequeue(ctx context.Context) (*repository.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil, nil
	}
	entry := f.entries[0]
	f.entries = f.entries[1:]
	return &entry, nil
}

func (f *fakeOutbox) Len(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.entries)), nil
}
