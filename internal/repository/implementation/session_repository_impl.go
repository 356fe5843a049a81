package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ai-counseling-be/internal/model"
	"ai-counseling-be/internal/repository/contract"
	"ai-counseling-be/pkg/counseling"
)

type SessionRepositoryImpl struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

func (r *SessionRepositoryImpl) Save(ctx context.Context, state *counseling.SessionState) error {
	state.UpdatedAt = time.Now()
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", state.SessionId, err)
	}
	m := &model.CounselingSession{
		Id:           state.SessionId,
		SubjectId:    state.SubjectId,
		Mode:         string(state.Mode),
		CurrentStage: state.CurrentStage,
		Finalized:    state.Finalized,
		State:        datatypes.JSON(payload),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"current_stage", "finalized", "state", "updated_at"}),
		}).
		Create(m).Error
}

func (r *SessionRepositoryImpl) Get(ctx context.Context, sessionId string) (*counseling.SessionState, error) {
	var m model.CounselingSession
	err := r.db.WithContext(ctx).Where("id = ?", sessionId).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var state counseling.SessionState
	if err := json.Unmarshal(m.State, &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionId, err)
	}
	return &state, nil
}

func (r *SessionRepositoryImpl) ListForSubject(ctx context.Context, subjectId string) ([]contract.SessionSummary, error) {
	var models []model.CounselingSession
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectId).
		Order("updated_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	summaries := make([]contract.SessionSummary, len(models))
	for i, m := range models {
		summaries[i] = contract.SessionSummary{
			SessionId:    m.Id,
			SubjectId:    m.SubjectId,
			Mode:         m.Mode,
			CurrentStage: m.CurrentStage,
			Finalized:    m.Finalized,
			UpdatedAt:    m.UpdatedAt,
		}
	}
	return summaries, nil
}
