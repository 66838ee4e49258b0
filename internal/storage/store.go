package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/dreamware/primesplit/internal/job"
)

// ErrJobNotFound is returned when a job id is unknown to the store
var ErrJobNotFound = errors.New("job not found")

// Store defines the interface for job record persistence
// All implementations must be thread-safe for concurrent access
type Store interface {
	// Create inserts a new record
	// Fails if a record with the same ID exists
	Create(ctx context.Context, rec *job.Record) error

	// Update replaces an existing record
	// Returns ErrJobNotFound if the record doesn't exist
	Update(ctx context.Context, rec *job.Record) error

	// Get retrieves a record by ID
	// Returns ErrJobNotFound if the record doesn't exist
	Get(ctx context.Context, id string) (*job.Record, error)

	// List returns up to limit records, newest first
	List(ctx context.Context, limit int) ([]*job.Record, error)

	// Close releases any resources held by the store
	Close() error
}

// MemoryStore implements Store with an in-memory map
// Uses sync.RWMutex for thread-safe concurrent access
type MemoryStore struct {
	data map[string]*job.Record // Job ID -> record
	mu   sync.RWMutex           // Protects concurrent access
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*job.Record),
	}
}

// Create stores a copy of rec
func (m *MemoryStore) Create(ctx context.Context, rec *job.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[rec.ID]; exists {
		return errors.Errorf("job %s already exists", rec.ID)
	}
	m.data[rec.ID] = rec.Clone()
	return nil
}

// Update replaces the stored copy of rec
func (m *MemoryStore) Update(ctx context.Context, rec *job.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[rec.ID]; !exists {
		return ErrJobNotFound
	}
	m.data[rec.ID] = rec.Clone()
	return nil
}

// Get returns a copy of the record to prevent external modification
func (m *MemoryStore) Get(ctx context.Context, id string) (*job.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.data[id]
	if !exists {
		return nil, ErrJobNotFound
	}
	return rec.Clone(), nil
}

// List returns copies of the newest records
func (m *MemoryStore) List(ctx context.Context, limit int) ([]*job.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]*job.Record, 0, len(m.data))
	for _, rec := range m.data {
		out = append(out, rec.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the memory store
func (m *MemoryStore) Close() error { return nil }
