package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/internal/repository/contract"
	"ai-counseling-be/pkg/embedding"
	"ai-counseling-be/pkg/memory"
)

type MedicalRecordRepositoryImpl struct {
	primary   contract.DocumentStore
	secondary contract.VectorStore
	embedder  embedding.Provider
	log       logger.ILogger
}

func NewMedicalRecordRepository(
	primary contract.DocumentStore,
	secondary contract.VectorStore,
	embedder embedding.Provider,
	log logger.ILogger,
) contract.MedicalRecordRepository {
	return &MedicalRecordRepositoryImpl{
		primary:   primary,
		secondary: secondary,
		embedder:  embedder,
		log:       log,
	}
}

func (r *MedicalRecordRepositoryImpl) Create(ctx context.Context, subjectId string, record *entity.MedicalRecord) (string, error) {
	if err := r.primary.EnsureCollection(ctx, memory.CollectionMedicalRecords); err != nil {
		return "", err
	}
	if err := r.secondary.EnsureCollection(ctx, memory.CollectionMedicalRecords); err != nil {
		return "", err
	}

	// Subject plus timestamp keeps ids readable; the uuid suffix makes
	// them collision-resistant when one subject finishes two sessions in
	// the same second.
	recordId := fmt.Sprintf("record_%s_%d_%s", subjectId, time.Now().Unix(), uuid.New().String()[:8])
	record.Id = recordId
	record.SubjectId = subjectId
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = entity.RecordStatusActive
	}

	if err := r.write(ctx, record); err != nil {
		return "", err
	}
	return recordId, nil
}

func (r *MedicalRecordRepositoryImpl) Get(ctx context.Context, recordId string) (*entity.MedicalRecord, error) {
	doc, err := r.primary.Get(ctx, memory.CollectionMedicalRecords, recordId)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	var record entity.MedicalRecord
	if err := json.Unmarshal(doc.Data, &record); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", recordId, err)
	}
	return &record, nil
}

func (r *MedicalRecordRepositoryImpl) ListForSubject(ctx context.Context, subjectId string) ([]entity.MedicalRecord, error) {
	docs, err := r.primary.List(ctx, memory.CollectionMedicalRecords)
	if err != nil {
		return nil, err
	}
	records := make([]entity.MedicalRecord, 0)
	for _, doc := range docs {
		var record entity.MedicalRecord
		if err := json.Unmarshal(doc.Data, &record); err != nil {
			r.log.Warn("repository.medical_record", "malformed record payload skipped", map[string]interface{}{
				"doc_id": doc.Id,
				"error":  err.Error(),
			})
			continue
		}
		if record.SubjectId == subjectId {
			records = append(records, record)
		}
	}
	return records, nil
}

func (r *MedicalRecordRepositoryImpl) Update(ctx context.Context, recordId string, record *entity.MedicalRecord) error {
	record.Id = recordId
	record.UpdatedAt = time.Now()
	return r.write(ctx, record)
}

// write upserts into the primary store first, then mirrors into the
// secondary one. A failed mirror is logged, not raised: the drift is
// repaired at the next startup reconciliation.
func (r *MedicalRecordRepositoryImpl) write(ctx context.Context, record *entity.MedicalRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := r.primary.Update(ctx, memory.CollectionMedicalRecords, record.Id, entity.Document{Id: record.Id, Data: payload}); err != nil {
		return err
	}

	var vector []float32
	if record.ProcessSummary != "" {
		vector, err = r.embedder.Generate(ctx, record.ProcessSummary)
		if err != nil {
			r.log.Warn("repository.medical_record", "embedding failed, storing record without vector", map[string]interface{}{
				"doc_id": record.Id,
				"error":  err.Error(),
			})
			vector = nil
		}
	}

	mirrorErr := r.secondary.Add(ctx, memory.CollectionMedicalRecords, entity.VectorDocument{
		Id:      record.Id,
		Content: record.ProcessSummary,
		Metadata: map[string]string{
			"subject_id": record.SubjectId,
			"status":     record.Status,
		},
		Embedding: vector,
		UpdatedAt: time.Now(),
	})
	if mirrorErr != nil {
		r.log.Warn("repository.medical_record", "record not mirrored to secondary store", map[string]interface{}{
			"doc_id": record.Id,
			"error":  mirrorErr.Error(),
		})
	}
	return nil
}
