package contract

import (
	"context"
	"time"

	"ai-counseling-be/pkg/counseling"
)

// SessionSummary is the listing projection of a persisted session.
type SessionSummary struct {
	SessionId    string    `json:"session_id"`
	SubjectId    string    `json:"subject_id"`
	Mode         string    `json:"mode"`
	CurrentStage string    `json:"current_stage"`
	Finalized    bool      `json:"finalized"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionRepository persists full workflow state. Save is called after every
// executed node, so it upserts.
type SessionRepository interface {
	Save(ctx context.Context, state *counseling.SessionState) error
	Get(ctx context.Context, sessionId string) (*counseling.SessionState, error)
	ListForSubject(ctx context.Context, subjectId string) ([]SessionSummary, error)
}
