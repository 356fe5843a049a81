package contract

import (
	"context"

	"ai-counseling-be/internal/entity"
)

// DocumentStore is the primary, authoritative store: serialized structured
// records keyed by string id within named collections. Collections are
// created idempotently; creating one that exists is not an error.
type DocumentStore interface {
	EnsureCollection(ctx context.Context, name string) error
	Collections(ctx context.Context) ([]string, error)
	Add(ctx context.Context, collection string, doc entity.Document) error
	Get(ctx context.Context, collection, id string) (*entity.Document, error)
	Update(ctx context.Context, collection, id string, doc entity.Document) error
	List(ctx context.Context, collection string) ([]entity.Document, error)
	// Empty reports whether the store holds no documents at all, used by
	// startup reconciliation to pick its mode.
	Empty(ctx context.Context) (bool, error)
}
