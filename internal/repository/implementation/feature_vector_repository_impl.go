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

type FeatureVectorRepositoryImpl struct {
	primary   contract.DocumentStore
	secondary contract.VectorStore
	index     contract.VectorIndex
	embedder  embedding.Provider
	log       logger.ILogger
}

func NewFeatureVectorRepository(
	primary contract.DocumentStore,
	secondary contract.VectorStore,
	index contract.VectorIndex,
	embedder embedding.Provider,
	log logger.ILogger,
) contract.FeatureVectorRepository {
	return &FeatureVectorRepositoryImpl{
		primary:   primary,
		secondary: secondary,
		index:     index,
		embedder:  embedder,
		log:       log,
	}
}

func (r *FeatureVectorRepositoryImpl) Create(ctx context.Context, subjectId, featureText, recordId string) (string, error) {
	if err := r.primary.EnsureCollection(ctx, memory.CollectionStudentVectors); err != nil {
		return "", err
	}
	if err := r.secondary.EnsureCollection(ctx, memory.CollectionStudentVectors); err != nil {
		return "", err
	}

	vectorId := fmt.Sprintf("vec_%s_%s", subjectId, uuid.New().String()[:8])
	now := time.Now()

	vector, err := r.embedder.Generate(ctx, featureText)
	if err != nil {
		r.log.Warn("repository.feature_vector", "embedding failed, storing feature without vector", map[string]interface{}{
			"doc_id": vectorId,
			"error":  err.Error(),
		})
		vector = nil
	}

	feature := entity.FeatureVector{
		Id:          vectorId,
		SubjectId:   subjectId,
		FeatureText: featureText,
		Embedding:   vector,
		RecordId:    recordId,
		CreatedAt:   now,
	}
	payload, err := json.Marshal(feature)
	if err != nil {
		return "", err
	}
	if err := r.primary.Add(ctx, memory.CollectionStudentVectors, entity.Document{Id: vectorId, Data: payload}); err != nil {
		return "", err
	}

	// Vector document first, index row second: an index row must never
	// point at a missing vector, while the reverse is tolerated and
	// repaired at the next rebuild.
	if err := r.secondary.Add(ctx, memory.CollectionStudentVectors, entity.VectorDocument{
		Id:      vectorId,
		Content: featureText,
		Metadata: map[string]string{
			"subject_id": subjectId,
			"record_id":  recordId,
		},
		Embedding: vector,
		UpdatedAt: now,
	}); err != nil {
		return "", err
	}
	if err := r.index.Put(ctx, entity.VectorIndexEntry{
		VectorId:  vectorId,
		SubjectId: subjectId,
		RecordId:  recordId,
		UpdatedAt: now,
	}); err != nil {
		return "", err
	}
	return vectorId, nil
}

func (r *FeatureVectorRepositoryImpl) Get(ctx context.Context, vectorId string) (*entity.FeatureVector, error) {
	doc, err := r.primary.Get(ctx, memory.CollectionStudentVectors, vectorId)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	var feature entity.FeatureVector
	if err := json.Unmarshal(doc.Data, &feature); err != nil {
		return nil, fmt.Errorf("decode feature vector %s: %w", vectorId, err)
	}
	return &feature, nil
}

func (r *FeatureVectorRepositoryImpl) ListForSubject(ctx context.Context, subjectId string) ([]entity.FeatureVector, error) {
	entries, err := r.index.List(ctx)
	if err != nil {
		return nil, err
	}
	features := make([]entity.FeatureVector, 0)
	for _, entry := range entries {
		if entry.SubjectId != subjectId {
			continue
		}
		feature, err := r.Get(ctx, entry.VectorId)
		if err != nil {
			return nil, err
		}
		if feature != nil {
			features = append(features, *feature)
		}
	}
	return features, nil
}
