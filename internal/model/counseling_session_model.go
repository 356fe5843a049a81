package model

import (
	"time"

	"gorm.io/datatypes"
)

// CounselingSession persists one workflow run. State holds the full session
// state as JSON; the scalar columns are denormalized for listing queries.
type CounselingSession struct {
	Id           string         `gorm:"primaryKey;size:64"`
	SubjectId    string         `gorm:"size:128;index"`
	Mode         string         `gorm:"size:16"`
	CurrentStage string         `gorm:"size:32"`
	Finalized    bool           `gorm:"default:false"`
	State        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
}

func (CounselingSession) TableName() string {
	return "counseling_sessions"
}
