package mapper

import (
	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type VectorDocumentMapper struct{}

func NewVectorDocumentMapper() *VectorDocumentMapper {
	return &VectorDocumentMapper{}
}

func (m *VectorDocumentMapper) ToModel(collection string, e *entity.VectorDocument) *model.VectorDocument {
	metadata := make(datatypes.JSONMap, len(e.Metadata))
	for k, v := range e.Metadata {
		metadata[k] = v
	}

	var vec *pgvector.Vector
	if e.Embedding != nil {
		v := pgvector.NewVector(e.Embedding)
		vec = &v
	}

	return &model.VectorDocument{
		Collection: collection,
		DocId:      e.Id,
		Content:    e.Content,
		Metadata:   metadata,
		Embedding:  vec,
		UpdatedAt:  e.UpdatedAt,
	}
}

func (m *VectorDocumentMapper) ToEntity(doc *model.VectorDocument) *entity.VectorDocument {
	metadata := make(map[string]string, len(doc.Metadata))
	for k, v := range doc.Metadata {
		if s, ok := v.(string); ok {
			metadata[k] = s
		}
	}

	var embedding []float32
	if doc.Embedding != nil {
		embedding = doc.Embedding.Slice()
	}

	return &entity.VectorDocument{
		Id:        doc.DocId,
		Content:   doc.Content,
		Metadata:  metadata,
		Embedding: embedding,
		UpdatedAt: doc.UpdatedAt,
	}
}

type IndexEntryMapper struct{}

func NewIndexEntryMapper() *IndexEntryMapper {
	return &IndexEntryMapper{}
}

func (m *IndexEntryMapper) ToModel(e *entity.VectorIndexEntry) *model.VectorIndexEntry {
	return &model.VectorIndexEntry{
		VectorId:  e.VectorId,
		SubjectId: e.SubjectId,
		RecordId:  e.RecordId,
		UpdatedAt: e.UpdatedAt,
	}
}

func (m *IndexEntryMapper) ToEntity(row *model.VectorIndexEntry) *entity.VectorIndexEntry {
	return &entity.VectorIndexEntry{
		VectorId:  row.VectorId,
		SubjectId: row.SubjectId,
		RecordId:  row.RecordId,
		UpdatedAt: row.UpdatedAt,
	}
}
