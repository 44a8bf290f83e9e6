package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	geminiBatchSize  = 50
	geminiRetryDelay = 6 * time.Second
	geminiMaxRetries = 5
)

type embedContentFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)

// GeminiEmbedder embeds passages with the Gemini embedding models. Batches
// are paced by a limiter; rate limited calls back off and retry.
type GeminiEmbedder struct {
	embed      embedContentFunc
	model      string
	dimension  int
	limiter    *rate.Limiter
	retries    int
	retryDelay time.Duration
}

func NewGeminiEmbedder(ctx context.Context, apiKey string, modelName string, dim int) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGeminiEmbedder(client.Models.EmbedContent, modelName, dim), nil
}

func newGeminiEmbedder(fn embedContentFunc, model string, dim int) *GeminiEmbedder {
	return &GeminiEmbedder{
		embed:      fn,
		model:      model,
		dimension:  dim,
		limiter:    rate.NewLimiter(rate.Every(700*time.Millisecond), 1),
		retries:    geminiMaxRetries,
		retryDelay: geminiRetryDelay,
	}
}

func (g *GeminiEmbedder) Dimension() int {
	return g.dimension
}

func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, geminiBatchSize) {
		vectors, err := g.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		results = append(results, vectors...)
	}
	return results, nil
}

func (g *GeminiEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(batch))
	for i, text := range batch {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	var cfg *genai.EmbedContentConfig
	if g.dimension > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(g.dimension))}
	}

	delay := g.retryDelay
	for attempt := 0; ; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		res, err := g.embed(ctx, g.model, contents, cfg)
		if err == nil {
			return embeddingValues(res, len(batch))
		}
		if !isRateLimitError(err) || attempt >= g.retries {
			return nil, fmt.Errorf("failed to embed text: %w", err)
		}
		if !waitOrCancel(ctx, delay) {
			return nil, ctx.Err()
		}
		delay *= 2
	}
}

func embeddingValues(res *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if res == nil || len(res.Embeddings) != want {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", got, want)
	}
	out := make([][]float32, want)
	for i, emb := range res.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

func isRateLimitError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Status == "RESOURCE_EXHAUSTED"
	}
	return err != nil && strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}

func waitOrCancel(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
