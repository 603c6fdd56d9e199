package ai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Embedder generates text embeddings via the OpenAI API.
type Embedder struct {
	client *openai.Client
	model  string
}

func NewEmbedder(apiKey, model string) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embeddings API key not set")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &Embedder{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Embed returns one vector per input chunk, in input order.
func (e *Embedder) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: chunks,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) != len(chunks) {
		return nil, fmt.Errorf("embed: got %d vectors for %d chunks", len(resp.Data), len(chunks))
	}

	vectors := make([][]float32, len(chunks))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("embed: vector index %d out of range", data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	return vectors, nil
}
