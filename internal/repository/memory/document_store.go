// Package memory holds in-memory store implementations backing unit tests
// and the no-database development mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/repository/contract"
)

type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]entity.Document
}

func NewDocumentStore() contract.DocumentStore {
	return &DocumentStore{collections: map[string]map[string]entity.Document{}}
}

func (s *DocumentStore) EnsureCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = map[string]entity.Document{}
	}
	return nil
}

func (s *DocumentStore) Collections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *DocumentStore) Add(ctx context.Context, collection string, doc entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = map[string]entity.Document{}
	}
	s.collections[collection][doc.Id] = doc
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*entity.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (s *DocumentStore) Update(ctx context.Context, collection, id string, doc entity.Document) error {
	doc.Id = id
	return s.Add(ctx, collection, doc)
}

func (s *DocumentStore) List(ctx context.Context, collection string) ([]entity.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byId := s.collections[collection]
	ids := make([]string, 0, len(byId))
	for id := range byId {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]entity.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, byId[id])
	}
	return docs, nil
}

func (s *DocumentStore) Empty(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, byId := range s.collections {
		if len(byId) > 0 {
			return false, nil
		}
	}
	return true, nil
}
