package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/repository/contract"
)

type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]entity.VectorDocument
}

func NewVectorStore() contract.VectorStore {
	return &VectorStore{collections: map[string]map[string]entity.VectorDocument{}}
}

func (s *VectorStore) EnsureCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = map[string]entity.VectorDocument{}
	}
	return nil
}

func (s *VectorStore) Collections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *VectorStore) Add(ctx context.Context, collection string, doc entity.VectorDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = map[string]entity.VectorDocument{}
	}
	s.collections[collection][doc.Id] = doc
	return nil
}

func (s *VectorStore) Get(ctx context.Context, collection, id string) (*entity.VectorDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (s *VectorStore) Update(ctx context.Context, collection, id string, doc entity.VectorDocument) error {
	doc.Id = id
	return s.Add(ctx, collection, doc)
}

func (s *VectorStore) List(ctx context.Context, collection string) ([]entity.VectorDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byId := s.collections[collection]
	ids := make([]string, 0, len(byId))
	for id := range byId {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]entity.VectorDocument, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, byId[id])
	}
	return docs, nil
}

func (s *VectorStore) Search(ctx context.Context, collection string, vector []float32, filter map[string]string, limit int) ([]entity.ScoredVectorDocument, error) {
	if limit <= 0 {
		limit = 5
	}

	docs, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	matched := make([]entity.ScoredVectorDocument, 0, len(docs))
	for _, doc := range docs {
		if !matchesFilter(doc.Metadata, filter) {
			continue
		}
		if vector == nil {
			matched = append(matched, entity.ScoredVectorDocument{Document: doc})
			continue
		}
		if doc.Embedding == nil {
			continue
		}
		matched = append(matched, entity.ScoredVectorDocument{
			Document:   doc,
			Similarity: cosineSimilarity(vector, doc.Embedding),
		})
	}

	if vector != nil {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Similarity > matched[j].Similarity
		})
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *VectorStore) Empty(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, byId := range s.collections {
		if len(byId) > 0 {
			return false, nil
		}
	}
	return true, nil
}

func matchesFilter(metadata, filter map[string]string) bool {
	for key, want := range filter {
		if metadata[key] != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
