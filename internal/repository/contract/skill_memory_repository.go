package contract

import (
	"context"

	"ai-counseling-be/internal/entity"
)

// SkillQuery selects skill memories for one owner role. When QueryText is
// set, retrieval is by similarity; otherwise entries come back in store
// order, up to Limit.
type SkillQuery struct {
	OwnerRole   string
	TherapyType string
	QueryText   string
	Limit       int
}

type SkillMemoryRepository interface {
	Get(ctx context.Context, q SkillQuery) ([]entity.SkillMemory, error)
	// Put upserts by id into both the primary and secondary stores.
	Put(ctx context.Context, skill *entity.SkillMemory) error
}
