package contract

import (
	"context"

	"ai-counseling-be/internal/entity"
)

type FeatureVectorRepository interface {
	// Create stores a feature vector for a subject and writes its index row.
	// The vector document is written first: an index row never exists
	// without its vector, while a vector without an index row is tolerated
	// and repaired at the next rebuild.
	Create(ctx context.Context, subjectId, featureText, recordId string) (string, error)
	Get(ctx context.Context, vectorId string) (*entity.FeatureVector, error)
	ListForSubject(ctx context.Context, subjectId string) ([]entity.FeatureVector, error)
}
