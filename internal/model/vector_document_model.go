package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type VectorCollection struct {
	Name      string    `gorm:"primaryKey;size:128"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (VectorCollection) TableName() string {
	return "vector_collections"
}

// VectorDocument mirrors a primary document into the similarity-searchable
// store. Embedding is nullable: documents whose embedding generation failed
// are stored without a vector and remain retrievable by content.
type VectorDocument struct {
	Collection string            `gorm:"primaryKey;size:128"`
	DocId      string            `gorm:"primaryKey;size:128"`
	Content    string            `gorm:"type:text"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	Embedding  *pgvector.Vector  `gorm:"type:vector(768)"` // nomic-embed-text dimensionality
	CreatedAt  time.Time         `gorm:"autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime"`
}

func (VectorDocument) TableName() string {
	return "vector_documents"
}
