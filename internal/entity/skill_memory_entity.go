package entity

import "time"

// Role identifiers for skill ownership.
const (
	OwnerProfiler  = "profiler"
	OwnerTherapist = "therapist"
)

// SkillMemory is a persisted lesson/technique entry attributed to a role.
// Entries are never deleted; they are retrieved in full or top-K by
// similarity to a query.
type SkillMemory struct {
	Id          string    `json:"id"`
	Content     string    `json:"content"`
	OwnerRole   string    `json:"owner_role"`
	TherapyType string    `json:"therapy_type,omitempty"` // set when OwnerRole is therapist
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
