package implementation

import (
	"context"
	"encoding/json"
	"errors"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/model"
	"ai-counseling-be/internal/repository/contract"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentStoreImpl is the primary long-term store: one JSONB row per
// document, grouped by collection.
type DocumentStoreImpl struct {
	db *gorm.DB
}

func NewDocumentStore(db *gorm.DB) contract.DocumentStore {
	return &DocumentStoreImpl{db: db}
}

func (r *DocumentStoreImpl) EnsureCollection(ctx context.Context, collection string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.MemoryCollection{Name: collection}).Error
}

func (r *DocumentStoreImpl) Collections(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Model(&model.MemoryCollection{}).
		Order("name").
		Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *DocumentStoreImpl) Add(ctx context.Context, collection string, doc entity.Document) error {
	m := &model.MemoryDocument{
		Collection: collection,
		DocId:      doc.Id,
		Payload:    datatypes.JSON(doc.Data),
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *DocumentStoreImpl) Get(ctx context.Context, collection, id string) (*entity.Document, error) {
	var m model.MemoryDocument
	err := r.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity.Document{Id: m.DocId, Data: json.RawMessage(m.Payload)}, nil
}

func (r *DocumentStoreImpl) Update(ctx context.Context, collection, id string, doc entity.Document) error {
	m := &model.MemoryDocument{
		Collection: collection,
		DocId:      id,
		Payload:    datatypes.JSON(doc.Data),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload"}),
		}).
		Create(m).Error
}

func (r *DocumentStoreImpl) List(ctx context.Context, collection string) ([]entity.Document, error) {
	var models []model.MemoryDocument
	err := r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("doc_id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	docs := make([]entity.Document, len(models))
	for i, m := range models {
		docs[i] = entity.Document{Id: m.DocId, Data: json.RawMessage(m.Payload)}
	}
	return docs, nil
}

func (r *DocumentStoreImpl) Empty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.MemoryDocument{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}
