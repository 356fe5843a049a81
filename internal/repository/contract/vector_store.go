package contract

import (
	"context"

	"ai-counseling-be/internal/entity"
)

// VectorStore is the secondary, similarity-searchable mirror of the primary
// store. Add upserts by id, which keeps reconciliation idempotent.
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string) error
	Collections(ctx context.Context) ([]string, error)
	Add(ctx context.Context, collection string, doc entity.VectorDocument) error
	Get(ctx context.Context, collection, id string) (*entity.VectorDocument, error)
	Update(ctx context.Context, collection, id string, doc entity.VectorDocument) error
	List(ctx context.Context, collection string) ([]entity.VectorDocument, error)
	// Search returns documents ordered by cosine similarity when vector is
	// non-nil; otherwise the first limit documents matching filter.
	Search(ctx context.Context, collection string, vector []float32, filter map[string]string, limit int) ([]entity.ScoredVectorDocument, error)
	Empty(ctx context.Context) (bool, error)
}

// VectorIndex is the authoritative lookup table maintained alongside the
// secondary store's feature-vector collection.
type VectorIndex interface {
	Put(ctx context.Context, entry entity.VectorIndexEntry) error
	Get(ctx context.Context, vectorId string) (*entity.VectorIndexEntry, error)
	List(ctx context.Context) ([]entity.VectorIndexEntry, error)
	// Replace swaps the whole index, used by reverse-export reconciliation.
	Replace(ctx context.Context, entries []entity.VectorIndexEntry) error
}
