package entity

import (
	"encoding/json"
	"time"
)

// Document is a primary-store record: a JSON payload keyed by string id
// within a named collection.
type Document struct {
	Id   string
	Data json.RawMessage
}

// VectorDocument is a secondary-store record. Embedding is nil when
// embedding generation failed; such documents are still searchable by their
// stored content through the bag-of-words fallback.
type VectorDocument struct {
	Id        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
	UpdatedAt time.Time
}

// ScoredVectorDocument wraps VectorDocument with its similarity score
type ScoredVectorDocument struct {
	Document   VectorDocument
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

// VectorIndexEntry is the authoritative lookup row for a feature vector:
// vector id → owning subject and optional linked record.
type VectorIndexEntry struct {
	VectorId  string
	SubjectId string
	RecordId  string
	UpdatedAt time.Time
}
