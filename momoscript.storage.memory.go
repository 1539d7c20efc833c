package momoscript

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of PackStorage.
// It is primarily intended for testing and for packs assembled in code.
type MemoryStorage struct {
	mu     sync.RWMutex
	packs  map[string]*StoredPack
	closed bool
}

// MemoryStorageDriver is the driver for creating MemoryStorage instances.
type MemoryStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameMemory, &MemoryStorageDriver{})
}

// Open creates a new MemoryStorage instance.
// The connection string is ignored.
func (d *MemoryStorageDriver) Open(connectionString string) (PackStorage, error) {
	return NewMemoryStorage(), nil
}

// NewMemoryStorage creates a new in-memory pack storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		packs: make(map[string]*StoredPack),
	}
}

// Get retrieves a pack by name.
func (s *MemoryStorage) Get(ctx context.Context, name string) (*StoredPack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	pack, ok := s.packs[name]
	if !ok {
		return nil, NewPackNotFoundError(name)
	}
	return copyStoredPack(pack), nil
}

// Save stores a pack, replacing an existing pack with the same name.
func (s *MemoryStorage) Save(ctx context.Context, pack *StoredPack) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePackForSave(pack); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	now := time.Now()
	stored := copyStoredPack(pack)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if existing, ok := s.packs[pack.Name]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	s.packs[pack.Name] = stored

	pack.CreatedAt = stored.CreatedAt
	pack.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete removes a pack by name.
func (s *MemoryStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}
	if _, ok := s.packs[name]; !ok {
		return NewPackNotFoundError(name)
	}
	delete(s.packs, name)
	return nil
}

// List returns packs matching the query.
func (s *MemoryStorage) List(ctx context.Context, query *PackQuery) ([]*StoredPack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	if query == nil {
		query = &PackQuery{}
	}

	results := make([]*StoredPack, 0, len(s.packs))
	for name, pack := range s.packs {
		if matchesPackQuery(name, query) {
			results = append(results, copyStoredPack(pack))
		}
	}
	return paginatePacks(results, query), nil
}

// Exists checks if a pack with the given name exists.
func (s *MemoryStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}
	_, ok := s.packs[name]
	return ok, nil
}

// Close marks the storage as closed and drops all packs.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.packs = nil
	return nil
}
