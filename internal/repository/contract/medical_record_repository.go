package contract

import (
	"context"

	"ai-counseling-be/internal/entity"
)

type MedicalRecordRepository interface {
	// Create assigns a collision-resistant id derived from the subject and
	// creation time, writes to both stores, and returns the id.
	Create(ctx context.Context, subjectId string, record *entity.MedicalRecord) (string, error)
	Get(ctx context.Context, recordId string) (*entity.MedicalRecord, error)
	ListForSubject(ctx context.Context, subjectId string) ([]entity.MedicalRecord, error)
	Update(ctx context.Context, recordId string, record *entity.MedicalRecord) error
}
