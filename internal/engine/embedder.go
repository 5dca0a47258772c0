package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
	Dimensions() int
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	dims    int
	client  *http.Client
}

// NewOpenAIEmbedder creates an embedder against an OpenAI-compatible API.
// baseURL defaults to https://api.openai.com, model to
// text-embedding-3-small, dims to 1536.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dims int, timeout time.Duration) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dims <= 0 {
		dims = 1536
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		dims:    dims,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OpenAIEmbedder) Model() string   { return "openai:" + o.model }
func (o *OpenAIEmbedder) Dimensions() int { return o.dims }

// Embed sends text to the embeddings endpoint and returns the vector.
func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	reqBody := map[string]any{
		"model": o.model,
		"input": text,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("embeddings response contained no data")
	}

	return result.Data[0].Embedding, nil
}

// fallbackVocab is the fixed vocabulary for local fallback vectors. Small by
// design: the fallback only has to produce deterministic, comparably-shaped
// vectors when the remote service is unreachable.
var fallbackVocab = []string{
	"meeting", "task", "project", "deadline", "call", "email", "report",
	"presentation", "work", "home", "family", "friend", "lunch", "dinner",
	"morning", "afternoon", "evening", "night", "today", "tomorrow",
	"yesterday", "week", "month", "year", "important", "urgent", "reminder",
}

// FallbackEmbedder builds bag-of-words vectors over a fixed vocabulary.
// Vectors are L2-normalized and then zero-padded or truncated to the
// configured dimension. That padding policy applies only here — externally
// sourced vectors are never resized.
type FallbackEmbedder struct {
	vocab []string
	dims  int
}

// NewFallbackEmbedder creates a fallback embedder producing vectors of the
// given dimension.
func NewFallbackEmbedder(dims int) *FallbackEmbedder {
	if dims <= 0 {
		dims = len(fallbackVocab)
	}
	return &FallbackEmbedder{vocab: fallbackVocab, dims: dims}
}

func (f *FallbackEmbedder) Model() string   { return "fallback" }
func (f *FallbackEmbedder) Dimensions() int { return f.dims }

// Embed counts vocabulary occurrences in the lower-cased input, normalizes,
// and shapes the result to the configured dimension. Never fails.
func (f *FallbackEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	counts := make(map[string]int)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		counts[w]++
	}

	vec := make([]float64, len(f.vocab))
	for i, term := range f.vocab {
		vec[i] = float64(counts[term])
	}
	l2Normalize(vec)

	if len(vec) < f.dims {
		padded := make([]float64, f.dims)
		copy(padded, vec)
		return padded, nil
	}
	return vec[:f.dims], nil
}

func l2Normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// Provider is the embedding front door: cache lookup, remote call with one
// retry, fallback vectorizer. Remote failures degrade to the fallback and
// are never surfaced to the caller; the only hard error is a remote vector
// whose dimension disagrees with the configured one.
type Provider struct {
	remote   Embedder // nil when no external service is configured
	fallback *FallbackEmbedder
	cache    *VectorCache
	dims     int
}

// NewProvider creates a Provider with the given remote embedder (may be nil)
// and an owned cache. dims fixes the dimension every vector must have.
func NewProvider(remote Embedder, dims int) *Provider {
	if dims <= 0 {
		if remote != nil {
			dims = remote.Dimensions()
		} else {
			dims = len(fallbackVocab)
		}
	}
	return &Provider{
		remote:   remote,
		fallback: NewFallbackEmbedder(dims),
		cache:    NewVectorCache(),
		dims:     dims,
	}
}

// Dimensions returns the configured vector dimension.
func (p *Provider) Dimensions() int { return p.dims }

// Model names the active embedding source.
func (p *Provider) Model() string {
	if p.remote != nil {
		return p.remote.Model()
	}
	return p.fallback.Model()
}

// ClearCache drops all cached vectors.
func (p *Provider) ClearCache() { p.cache.Clear() }

// CacheLen returns the number of cached vectors.
func (p *Provider) CacheLen() int { return p.cache.Len() }

// Embed returns the embedding vector for text. Identical input within a
// process lifetime returns the exact same cached slice.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	if vec, ok := p.cache.Get(text); ok {
		return vec, nil
	}

	if p.remote != nil {
		vec, err := p.remote.Embed(ctx, text)
		if err != nil {
			// One retry before degrading to the fallback.
			vec, err = p.remote.Embed(ctx, text)
		}
		if err == nil {
			if len(vec) != p.dims {
				return nil, fmt.Errorf("%w: remote returned %d dimensions, configured %d",
					ErrShapeMismatch, len(vec), p.dims)
			}
			return p.cache.Insert(text, vec), nil
		}
		log.Warn("remote embedding unavailable, using fallback", "err", err)
	}

	vec, _ := p.fallback.Embed(ctx, text) // fallback never fails
	return p.cache.Insert(text, vec), nil
}
