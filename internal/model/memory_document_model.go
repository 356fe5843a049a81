package model

import (
	"time"

	"gorm.io/datatypes"
)

// MemoryCollection registers a named primary-store collection. Collections
// are created idempotently before first use, so an empty collection is
// distinguishable from a missing one.
type MemoryCollection struct {
	Name      string    `gorm:"primaryKey;size:128"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (MemoryCollection) TableName() string {
	return "memory_collections"
}

type MemoryDocument struct {
	Collection string         `gorm:"primaryKey;size:128"`
	DocId      string         `gorm:"primaryKey;size:128"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (MemoryDocument) TableName() string {
	return "memory_documents"
}
