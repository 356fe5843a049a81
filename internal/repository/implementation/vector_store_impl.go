package implementation

import (
	"context"
	"errors"
	"fmt"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/mapper"
	"ai-counseling-be/internal/model"
	"ai-counseling-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VectorStoreImpl struct {
	db     *gorm.DB
	mapper *mapper.VectorDocumentMapper
}

func NewVectorStore(db *gorm.DB) contract.VectorStore {
	return &VectorStoreImpl{
		db:     db,
		mapper: mapper.NewVectorDocumentMapper(),
	}
}

func (r *VectorStoreImpl) EnsureCollection(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.VectorCollection{Name: name}).Error
}

func (r *VectorStoreImpl) Collections(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Model(&model.VectorCollection{}).
		Order("name").
		Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *VectorStoreImpl) Add(ctx context.Context, collection string, doc entity.VectorDocument) error {
	m := r.mapper.ToModel(collection, &doc)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "metadata", "embedding", "updated_at"}),
		}).
		Create(m).Error
}

func (r *VectorStoreImpl) Get(ctx context.Context, collection, id string) (*entity.VectorDocument, error) {
	var m model.VectorDocument
	err := r.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *VectorStoreImpl) Update(ctx context.Context, collection, id string, doc entity.VectorDocument) error {
	doc.Id = id
	return r.Add(ctx, collection, doc)
}

func (r *VectorStoreImpl) List(ctx context.Context, collection string) ([]entity.VectorDocument, error) {
	var models []model.VectorDocument
	err := r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("doc_id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	docs := make([]entity.VectorDocument, len(models))
	for i := range models {
		docs[i] = *r.mapper.ToEntity(&models[i])
	}
	return docs, nil
}

func (r *VectorStoreImpl) Search(ctx context.Context, collection string, vector []float32, filter map[string]string, limit int) ([]entity.ScoredVectorDocument, error) {
	if limit <= 0 {
		limit = 5
	}

	query := r.db.WithContext(ctx).
		Table("vector_documents").
		Where("collection = ?", collection)
	for key, value := range filter {
		query = query.Where("metadata ->> ? = ?", key, value)
	}

	if vector == nil {
		var models []model.VectorDocument
		if err := query.Order("doc_id").Limit(limit).Find(&models).Error; err != nil {
			return nil, err
		}
		scored := make([]entity.ScoredVectorDocument, len(models))
		for i := range models {
			scored[i] = entity.ScoredVectorDocument{Document: *r.mapper.ToEntity(&models[i])}
		}
		return scored, nil
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding <=> query) recovers the similarity.
	type result struct {
		model.VectorDocument
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(vector)
	err := query.
		Select("vector_documents.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("embedding IS NOT NULL").
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("vector search in %s: %w", collection, err)
	}

	scored := make([]entity.ScoredVectorDocument, len(results))
	for i := range results {
		scored[i] = entity.ScoredVectorDocument{
			Document:   *r.mapper.ToEntity(&results[i].VectorDocument),
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}

func (r *VectorStoreImpl) Empty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.VectorDocument{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}
