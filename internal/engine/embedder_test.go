package engine

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackEmbedderDeterministic(t *testing.T) {
	emb := NewFallbackEmbedder(32)

	a, err := emb.Embed(context.Background(), "meeting about the project deadline")
	require.NoError(t, err)
	b, err := emb.Embed(context.Background(), "meeting about the project deadline")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestFallbackEmbedderNormalized(t *testing.T) {
	emb := NewFallbackEmbedder(len(fallbackVocab))

	vec, err := emb.Embed(context.Background(), "meeting meeting urgent report")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestFallbackEmbedderPadsAndTruncates(t *testing.T) {
	padded := NewFallbackEmbedder(100)
	vec, err := padded.Embed(context.Background(), "meeting")
	require.NoError(t, err)
	assert.Len(t, vec, 100)
	for _, v := range vec[len(fallbackVocab):] {
		assert.Zero(t, v)
	}

	truncated := NewFallbackEmbedder(5)
	vec, err = truncated.Embed(context.Background(), "meeting")
	require.NoError(t, err)
	assert.Len(t, vec, 5)
}

func TestFallbackEmbedderEmptyText(t *testing.T) {
	emb := NewFallbackEmbedder(10)
	vec, err := emb.Embed(context.Background(), "nothing from the vocabulary here")
	require.NoError(t, err)
	assert.Len(t, vec, 10)
}

func TestProviderCacheHitIsIdentical(t *testing.T) {
	p := NewProvider(nil, len(fallbackVocab))

	a, err := p.Embed(context.Background(), "meeting with the team")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "meeting with the team")
	require.NoError(t, err)

	// Cache hits return the exact same slice, not just an equal one.
	require.NotEmpty(t, a)
	assert.Same(t, &a[0], &b[0])
}

func TestProviderCacheClear(t *testing.T) {
	p := NewProvider(nil, len(fallbackVocab))

	_, err := p.Embed(context.Background(), "meeting")
	require.NoError(t, err)
	assert.Equal(t, 1, p.CacheLen())

	p.ClearCache()
	assert.Equal(t, 0, p.CacheLen())
}

func TestProviderRemoteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	remote := NewOpenAIEmbedder(srv.URL, "test-key", "test-model", 3, 0)
	p := NewProvider(remote, 3)

	vec, err := p.Embed(context.Background(), "meeting")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestProviderRemoteFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	remote := NewOpenAIEmbedder(srv.URL, "test-key", "test-model", len(fallbackVocab), 0)
	p := NewProvider(remote, len(fallbackVocab))

	vec, err := p.Embed(context.Background(), "meeting")
	require.NoError(t, err)
	assert.Len(t, vec, len(fallbackVocab))
}

func TestProviderRemoteRetriesOnce(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	remote := NewOpenAIEmbedder(srv.URL, "test-key", "test-model", 3, 0)
	p := NewProvider(remote, 3)

	_, err := p.Embed(context.Background(), "meeting")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestProviderRemoteDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2]}]}`))
	}))
	defer srv.Close()

	remote := NewOpenAIEmbedder(srv.URL, "test-key", "test-model", 3, 0)
	p := NewProvider(remote, 3)

	_, err := p.Embed(context.Background(), "meeting")
	require.ErrorIs(t, err, ErrShapeMismatch)
}
