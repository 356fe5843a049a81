package memory

import (
	"context"
	"sort"
	"sync"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/repository/contract"
)

type VectorIndex struct {
	mu      sync.RWMutex
	entries map[string]entity.VectorIndexEntry
}

func NewVectorIndex() contract.VectorIndex {
	return &VectorIndex{entries: map[string]entity.VectorIndexEntry{}}
}

func (s *VectorIndex) Put(ctx context.Context, entry entity.VectorIndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.VectorId] = entry
	return nil
}

func (s *VectorIndex) Get(ctx context.Context, vectorId string) (*entity.VectorIndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[vectorId]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (s *VectorIndex) List(ctx context.Context) ([]entity.VectorIndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]entity.VectorIndexEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].VectorId < entries[j].VectorId
	})
	return entries, nil
}

func (s *VectorIndex) Replace(ctx context.Context, entries []entity.VectorIndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entity.VectorIndexEntry, len(entries))
	for _, entry := range entries {
		s.entries[entry.VectorId] = entry
	}
	return nil
}
