package providers

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pgvector/pgvector-go"
	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingRankerInterface is the secondary ranking fallback used when the
// advisor's ranking call fails: candidates are scored by embedding similarity
// against the interest text.
type EmbeddingRankerInterface interface {
	RankByEmbedding(ctx context.Context, candidates []PointOfInterest, interests []string, maxPois int) ([]string, error)
}

type EmbeddingRanker struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewEmbeddingRanker(apiKey, model string) *EmbeddingRanker {
	embeddingModel := openai.SmallEmbedding3
	if model != "" {
		embeddingModel = openai.EmbeddingModel(model)
	}
	return &EmbeddingRanker{
		client: openai.NewClient(apiKey),
		model:  embeddingModel,
	}
}

func (r *EmbeddingRanker) embed(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	resp, err := r.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: r.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	vectors := make([]pgvector.Vector, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = pgvector.NewVector(d.Embedding)
	}
	return vectors, nil
}

func (r *EmbeddingRanker) RankByEmbedding(ctx context.Context, candidates []PointOfInterest, interests []string, maxPois int) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, strings.Join(interests, ", "))
	for _, c := range candidates {
		texts = append(texts, fmt.Sprintf("%s | %s | %s", c.Name, c.Category, strings.Join(c.Tags, " ")))
	}

	vectors, err := r.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	query := vectors[0]
	type scored struct {
		id    string
		score float64
	}
	scores := make([]scored, len(candidates))
	for i, c := range candidates {
		scores[i] = scored{id: c.ID, score: cosineSimilarity(query, vectors[i+1])}
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if maxPois > len(scores) {
		maxPois = len(scores)
	}
	ids := make([]string, 0, maxPois)
	for _, s := range scores[:maxPois] {
		ids = append(ids, s.id)
	}
	return ids, nil
}

func cosineSimilarity(a, b pgvector.Vector) float64 {
	av, bv := a.Slice(), b.Slice()
	if len(av) != len(bv) || len(av) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range av {
		dot += float64(av[i]) * float64(bv[i])
		normA += float64(av[i]) * float64(av[i])
		normB += float64(bv[i]) * float64(bv[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ EmbeddingRankerInterface = (*EmbeddingRanker)(nil)
