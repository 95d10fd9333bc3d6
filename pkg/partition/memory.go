package partition

import (
	"context"
	"net/http"
	"sort"
	"sync"
)

const backendMemory = "memory"

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[string]map[string]*Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		partitions: make(map[string]map[string]*Entry),
	}
}

// Open returns the named partition, creating it if needed.
func (s *MemoryStore) Open(ctx context.Context, name string) (Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.partitions[name]; !exists {
		s.partitions[name] = make(map[string]*Entry)
	}
	observe(backendMemory, "open", nil)

	return &memoryPartition{store: s, name: name}, nil
}

// Names lists all partitions, sorted.
func (s *MemoryStore) Names(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.partitions))
	for name := range s.partitions {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Remove deletes a partition.
func (s *MemoryStore) Remove(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.partitions[name]
	delete(s.partitions, name)
	observe(backendMemory, "remove", nil)

	return exists, nil
}

// Len returns the number of entries in the named partition.
func (s *MemoryStore) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partitions[name])
}

type memoryPartition struct {
	store *MemoryStore
	name  string
}

func (p *memoryPartition) Name() string {
	return p.name
}

func (p *memoryPartition) Match(ctx context.Context, req *http.Request) (*http.Response, error) {
	return p.match(req, keyForRequest(req))
}

func (p *memoryPartition) MatchKey(ctx context.Context, method, rawURL string) (*http.Response, error) {
	return p.match(nil, RequestKey(method, rawURL))
}

func (p *memoryPartition) match(req *http.Request, key string) (*http.Response, error) {
	p.store.mu.RLock()
	entry, exists := p.store.partitions[p.name][key]
	p.store.mu.RUnlock()

	if !exists {
		observe(backendMemory, "match", ErrCacheMiss)
		return nil, ErrCacheMiss
	}

	observe(backendMemory, "match", nil)
	return EntryToResponse(req, entry), nil
}

func (p *memoryPartition) Put(ctx context.Context, req *http.Request, resp *http.Response) error {
	entry, err := ResponseToEntry(req, resp)
	if err != nil {
		observe(backendMemory, "put", err)
		return err
	}

	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	// A partition removed while a write was in flight is recreated, as a
	// platform cache would be on the next open.
	entries, exists := p.store.partitions[p.name]
	if !exists {
		entries = make(map[string]*Entry)
		p.store.partitions[p.name] = entries
	}
	entries[keyForRequest(req)] = entry

	observe(backendMemory, "put", nil)
	PartitionBytesWritten.WithLabelValues(backendMemory).Add(float64(len(entry.Body)))

	return nil
}

func (p *memoryPartition) Delete(ctx context.Context, req *http.Request) (bool, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	key := keyForRequest(req)
	_, exists := p.store.partitions[p.name][key]
	delete(p.store.partitions[p.name], key)
	observe(backendMemory, "delete", nil)

	return exists, nil
}
