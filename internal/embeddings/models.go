package embeddings

// Supported embedding models and their dimensions
const (
	ModelTextEmbeddingAda002 = "text-embedding-ada-002"
	ModelTextEmbedding3Small = "text-embedding-3-small"
	ModelAllMiniLM           = "all-minilm"
	ModelNomicEmbedText      = "nomic-embed-text"

	DimTextEmbeddingAda002 = 1536
	DimTextEmbedding3Small = 1536
	DimAllMiniLM           = 384
	DimNomicEmbedText      = 768
)

// ModelDimensions returns the vector length for a given model
func ModelDimensions(model string) int {
	switch model {
	case ModelTextEmbeddingAda002:
		return DimTextEmbeddingAda002
	case ModelTextEmbedding3Small:
		return DimTextEmbedding3Small
	case ModelAllMiniLM:
		return DimAllMiniLM
	case ModelNomicEmbedText:
		return DimNomicEmbedText
	default:
		return DimAllMiniLM
	}
}
