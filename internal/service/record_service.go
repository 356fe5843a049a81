package service

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/repository/contract"
)

type IRecordService interface {
	GetRecord(ctx context.Context, recordId string) (*entity.MedicalRecord, error)
	ListForSubject(ctx context.Context, subjectId string) ([]entity.MedicalRecord, error)
}

type recordService struct {
	records contract.MedicalRecordRepository
}

func NewRecordService(records contract.MedicalRecordRepository) IRecordService {
	return &recordService{records: records}
}

func (s *recordService) GetRecord(ctx context.Context, recordId string) (*entity.MedicalRecord, error) {
	record, err := s.records.Get(ctx, recordId)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "record not found")
	}
	return record, nil
}

func (s *recordService) ListForSubject(ctx context.Context, subjectId string) ([]entity.MedicalRecord, error) {
	return s.records.ListForSubject(ctx, subjectId)
}
