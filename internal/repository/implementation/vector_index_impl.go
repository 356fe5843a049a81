package implementation

import (
	"context"
	"errors"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/mapper"
	"ai-counseling-be/internal/model"
	"ai-counseling-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VectorIndexImpl struct {
	db     *gorm.DB
	mapper *mapper.IndexEntryMapper
}

func NewVectorIndex(db *gorm.DB) contract.VectorIndex {
	return &VectorIndexImpl{
		db:     db,
		mapper: mapper.NewIndexEntryMapper(),
	}
}

func (r *VectorIndexImpl) Put(ctx context.Context, entry entity.VectorIndexEntry) error {
	m := r.mapper.ToModel(&entry)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vector_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"subject_id", "record_id", "updated_at"}),
		}).
		Create(m).Error
}

func (r *VectorIndexImpl) Get(ctx context.Context, vectorId string) (*entity.VectorIndexEntry, error) {
	var m model.VectorIndexEntry
	err := r.db.WithContext(ctx).Where("vector_id = ?", vectorId).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *VectorIndexImpl) List(ctx context.Context) ([]entity.VectorIndexEntry, error) {
	var models []model.VectorIndexEntry
	if err := r.db.WithContext(ctx).Order("vector_id").Find(&models).Error; err != nil {
		return nil, err
	}
	entries := make([]entity.VectorIndexEntry, len(models))
	for i := range models {
		entries[i] = *r.mapper.ToEntity(&models[i])
	}
	return entries, nil
}

// Replace swaps the whole index inside one transaction, so a failed
// reverse-export never leaves a half-written table behind.
func (r *VectorIndexImpl) Replace(ctx context.Context, entries []entity.VectorIndexEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.VectorIndexEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		models := make([]*model.VectorIndexEntry, len(entries))
		for i := range entries {
			models[i] = r.mapper.ToModel(&entries[i])
		}
		return tx.Create(models).Error
	})
}
