package embedding

import "context"

// Provider generates text embeddings for similarity search. A nil vector
// with a nil error is a valid outcome: the text could not be embedded and
// the document is stored without a vector.
type Provider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}
