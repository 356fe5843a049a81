package model

import "time"

// VectorIndexEntry is the authoritative lookup table maintained alongside
// the secondary store's feature-vector collection. An index row exists only
// if the vector document exists; the reverse is tolerated and repaired by
// reconciliation.
type VectorIndexEntry struct {
	VectorId  string    `gorm:"primaryKey;size:128"`
	SubjectId string    `gorm:"size:128;index"`
	RecordId  string    `gorm:"size:128"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (VectorIndexEntry) TableName() string {
	return "vector_index_entries"
}
