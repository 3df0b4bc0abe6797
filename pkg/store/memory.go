package store

import (
	"context"
	"sync"
	"time"

	"github.com/xhad/duo/internal/models"
)

// MemoryStore is the ledger used when no database is configured. It is
// lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]models.IndexedDocument // by store id
}

func NewMemory() *MemoryStore {
	return &MemoryStore{docs: make(map[string]models.IndexedDocument)}
}

func (ms *MemoryStore) Record(ctx context.Context, doc models.IndexedDocument) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.docs[doc.StoreID] = doc
	return nil
}

func (ms *MemoryStore) Lookup(ctx context.Context, sha256 string, since time.Time) (*models.IndexedDocument, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var best *models.IndexedDocument
	for _, doc := range ms.docs {
		if doc.SHA256 != sha256 || doc.CreatedAt.Before(since) {
			continue
		}
		if best == nil || doc.CreatedAt.After(best.CreatedAt) {
			d := doc
			best = &d
		}
	}
	return best, nil
}

func (ms *MemoryStore) Close() {}
