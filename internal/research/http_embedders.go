package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	httpEmbedBatchSize = 64
	httpEmbedRetries   = 5
	httpRetryDelay     = 3 * time.Second
)

// jsonPoster posts JSON with pacing and retries on 429 and 5xx responses.
type jsonPoster struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	limiter    *rate.Limiter
	retries    int
	retryDelay time.Duration
	name       string
}

func (p *jsonPoster) post(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			data, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				return nil, readErr
			}
			switch {
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = fmt.Errorf("%s embed request failed (%d): %s", p.name, resp.StatusCode, errorMessage(data))
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				return nil, fmt.Errorf("%s embed request failed (%d): %s", p.name, resp.StatusCode, errorMessage(data))
			default:
				return data, nil
			}
		}
		if attempt == p.retries {
			break
		}
		if !waitOrCancel(ctx, p.retryDelay) {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func errorMessage(data []byte) string {
	var body struct {
		Error any `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		switch e := body.Error.(type) {
		case string:
			return e
		case map[string]any:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(data))
}

// OpenAIEmbedder calls an OpenAI compatible embeddings endpoint.
type OpenAIEmbedder struct {
	poster    *jsonPoster
	apiKey    string
	model     string
	dimension int
}

type openAIEmbeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions *int     `json:"dimensions,omitempty"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func NewOpenAIEmbedder(apiKey, model string, dim int, baseURL string) *OpenAIEmbedder {
	endpoint := strings.TrimSpace(baseURL)
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/embeddings"
	}
	return &OpenAIEmbedder{
		poster: &jsonPoster{
			client:     &http.Client{Timeout: 60 * time.Second},
			endpoint:   endpoint,
			apiKey:     apiKey,
			limiter:    rate.NewLimiter(rate.Every(400*time.Millisecond), 1),
			retries:    httpEmbedRetries,
			retryDelay: httpRetryDelay,
			name:       "openai",
		},
		apiKey:    apiKey,
		model:     model,
		dimension: dim,
	}
}

func (o *OpenAIEmbedder) Dimension() int {
	return o.dimension
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if strings.TrimSpace(o.apiKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if strings.TrimSpace(o.model) == "" {
		return nil, fmt.Errorf("openai embedding model is required")
	}

	results := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, httpEmbedBatchSize) {
		payload := openAIEmbeddingRequest{Model: o.model, Input: batch}
		if o.dimension > 0 {
			payload.Dimensions = &o.dimension
		}
		data, err := o.poster.post(ctx, payload)
		if err != nil {
			return nil, err
		}

		var parsed openAIEmbeddingResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, err
		}
		if len(parsed.Data) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(parsed.Data), len(batch))
		}
		out := make([][]float32, len(batch))
		for _, item := range parsed.Data {
			if item.Index >= 0 && item.Index < len(batch) {
				out[item.Index] = item.Embedding
			}
		}
		for i := range out {
			if len(out[i]) == 0 {
				return nil, fmt.Errorf("embedding missing at index %d", i)
			}
		}
		results = append(results, out...)
	}
	return results, nil
}

// OllamaEmbedder calls a local Ollama /api/embed endpoint.
type OllamaEmbedder struct {
	poster    *jsonPoster
	model     string
	dimension int
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func NewOllamaEmbedder(model string, dim int, baseURL string) *OllamaEmbedder {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = "http://127.0.0.1:11434"
	}
	url = strings.TrimRight(url, "/")
	if !strings.HasSuffix(url, "/api/embed") {
		url += "/api/embed"
	}
	return &OllamaEmbedder{
		poster: &jsonPoster{
			client:     &http.Client{Timeout: 90 * time.Second},
			endpoint:   url,
			limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
			retries:    1,
			retryDelay: time.Second,
			name:       "ollama",
		},
		model:     model,
		dimension: dim,
	}
}

func (o *OllamaEmbedder) Dimension() int {
	return o.dimension
}

func (o *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if strings.TrimSpace(o.model) == "" {
		return nil, fmt.Errorf("ollama embedding model is required")
	}

	out := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, httpEmbedBatchSize) {
		data, err := o.poster.post(ctx, ollamaEmbedRequest{Model: o.model, Input: batch})
		if err != nil {
			return nil, err
		}
		var parsed ollamaEmbedResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, err
		}
		if len(parsed.Embeddings) != len(batch) {
			return nil, fmt.Errorf("ollama embedding count mismatch: got %d, expected %d", len(parsed.Embeddings), len(batch))
		}
		out = append(out, parsed.Embeddings...)
	}

	if o.dimension <= 0 && len(out) > 0 {
		o.dimension = len(out[0])
	}
	return out, nil
}
