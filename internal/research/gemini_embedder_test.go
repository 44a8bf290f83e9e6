package research

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type scriptedEmbed struct {
	errs  []error
	calls int
	sizes []int
	dims  []int32
}

func (s *scriptedEmbed) call(_ context.Context, _ string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	s.calls++
	s.sizes = append(s.sizes, len(contents))
	if cfg != nil && cfg.OutputDimensionality != nil {
		s.dims = append(s.dims, *cfg.OutputDimensionality)
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	res := &genai.EmbedContentResponse{}
	for range contents {
		res.Embeddings = append(res.Embeddings, &genai.ContentEmbedding{Values: []float32{1, 0}})
	}
	return res, nil
}

func fastGemini(s *scriptedEmbed) *GeminiEmbedder {
	g := newGeminiEmbedder(s.call, "text-embedding-004", 2)
	g.limiter = rate.NewLimiter(rate.Inf, 1)
	g.retryDelay = time.Millisecond
	return g
}

func TestGeminiEmbedder_BatchesAndDimension(t *testing.T) {
	s := &scriptedEmbed{}
	texts := make([]string, geminiBatchSize+3)
	for i := range texts {
		texts[i] = "passage"
	}

	vecs, err := fastGemini(s).Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vecs, len(texts))
	assert.Equal(t, []int{geminiBatchSize, 3}, s.sizes)
	assert.Equal(t, []int32{2, 2}, s.dims)
}

func TestGeminiEmbedder_RetriesRateLimits(t *testing.T) {
	s := &scriptedEmbed{errs: []error{
		genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"},
		genai.APIError{Code: 429},
	}}

	vecs, err := fastGemini(s).Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 3, s.calls)
}

func TestGeminiEmbedder_OtherErrorsFailFast(t *testing.T) {
	s := &scriptedEmbed{errs: []error{genai.APIError{Code: 400, Message: "bad model"}}}

	_, err := fastGemini(s).Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, 1, s.calls)
	assert.Contains(t, err.Error(), "failed to embed text")
}

func TestGeminiEmbedder_GivesUpAfterRetries(t *testing.T) {
	limited := genai.APIError{Code: 429}
	s := &scriptedEmbed{errs: []error{limited, limited, limited}}
	g := fastGemini(s)
	g.retries = 2

	_, err := g.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, 3, s.calls)
}

func TestEmbeddingValues_CountMismatch(t *testing.T) {
	_, err := embeddingValues(&genai.EmbedContentResponse{}, 2)
	assert.ErrorContains(t, err, "got 0, expected 2")
	_, err = embeddingValues(nil, 1)
	assert.Error(t, err)
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, isRateLimitError(genai.APIError{Code: 429}))
	assert.True(t, isRateLimitError(&genai.APIError{Status: "RESOURCE_EXHAUSTED"}))
	assert.False(t, isRateLimitError(genai.APIError{Code: 500}))
	assert.False(t, isRateLimitError(errors.New("connection reset")))
	assert.False(t, isRateLimitError(nil))
}
