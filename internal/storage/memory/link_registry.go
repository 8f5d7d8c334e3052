package memory

import (
	"context"
	"sync"

	"github.com/italolelis/tg_file_listener/internal/logctx"
	"github.com/italolelis/tg_file_listener/internal/storage"
)

// LinkRegistry is the process-wide fileID -> LinkRecord store.
// Records are kept by value, so a reader always gets a complete copy.
type LinkRegistry struct {
	mu    sync.RWMutex
	links map[string]storage.LinkRecord
}

// NewLinkRegistry returns an empty registry.
func NewLinkRegistry() *LinkRegistry {
	return &LinkRegistry{links: make(map[string]storage.LinkRecord)}
}

// Put inserts or overwrites the record for fileID. Last write wins.
func (r *LinkRegistry) Put(ctx context.Context, fileID string, record storage.LinkRecord) {
	if fileID == "" {
		logctx.LoggerFromContext(ctx).Debug("ignoring link without file id", "file_name", record.FileName)

		return
	}

	record.FileID = fileID

	r.mu.Lock()
	r.links[fileID] = record
	r.mu.Unlock()
}

// Get returns the record for fileID or storage.ErrLinkNotFound.
func (r *LinkRegistry) Get(_ context.Context, fileID string) (storage.LinkRecord, error) {
	r.mu.RLock()
	record, ok := r.links[fileID]
	r.mu.RUnlock()

	if !ok {
		return storage.LinkRecord{}, storage.ErrLinkNotFound
	}

	return record, nil
}

// Len returns the number of registered links.
func (r *LinkRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.links)
}

var _ storage.LinkRepository = (*LinkRegistry)(nil)
