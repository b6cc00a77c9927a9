package embeddings

import "context"

// Provider turns text into a fixed-length embedding vector
type Provider interface {
	// Embed generates the embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for several texts, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length the provider produces
	Dimensions() int

	// Model returns the model identifier used by the provider
	Model() string
}
