package entity

import "time"

// ScaleResult is one named psychological scale outcome. Lower scores denote
// a better state, so improvement = sum(pre) - sum(post).
type ScaleResult struct {
	Score      int    `json:"score"`
	Assessment string `json:"assessment"`
}

const (
	RecordStatusActive   = "active"
	RecordStatusArchived = "archived"
)

// MedicalRecord is the structured outcome artifact produced once per
// completed session, one per (subject, therapy modality) pair. Immutable
// after creation except for explicit update calls.
type MedicalRecord struct {
	Id               string                 `json:"id"`
	SubjectId        string                 `json:"subject_id"`
	TherapyType      string                 `json:"therapy_type"`
	Diagnoses        []string               `json:"diagnoses"`
	Plan             map[string]interface{} `json:"plan"`
	ProcessSummary   string                 `json:"process_summary"`
	Outcome          map[string]interface{} `json:"outcome"`
	PreScales        map[string]ScaleResult `json:"pre_scales"`
	PostScales       map[string]ScaleResult `json:"post_scales"`
	ImprovementScore int                    `json:"improvement_score"`
	Status           string                 `json:"status"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}
