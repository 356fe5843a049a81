package entity

import "time"

// FeatureVector is one embedded subject-feature entry. Embedding is nil when
// generation failed; the entry is kept anyway and backfilled later.
type FeatureVector struct {
	Id          string    `json:"id"`
	SubjectId   string    `json:"subject_id"`
	FeatureText string    `json:"feature_text"`
	Embedding   []float32 `json:"embedding,omitempty"`
	RecordId    string    `json:"record_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
