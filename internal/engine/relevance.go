package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/daybook-sh/daybook/internal/store"
)

// ErrInvalidWeightKey is returned when a weight update names an unknown
// signal. The update is rejected and the existing weights stay unchanged.
var ErrInvalidWeightKey = errors.New("invalid weight key")

// Weights blend the four relevance signals. They always sum to 1.0;
// UpdateWeights renormalizes after every mutation.
type Weights struct {
	Recency    float64 `json:"recency"`
	Frequency  float64 `json:"frequency"`
	Similarity float64 `json:"similarity"`
	Importance float64 `json:"importance"`
}

// DefaultWeights favors content similarity, then recency.
func DefaultWeights() Weights {
	return Weights{
		Recency:    0.3,
		Frequency:  0.2,
		Similarity: 0.4,
		Importance: 0.1,
	}
}

func (w Weights) sum() float64 {
	return w.Recency + w.Frequency + w.Similarity + w.Importance
}

func (w Weights) normalized() Weights {
	total := w.sum()
	if total <= 0 {
		return DefaultWeights()
	}
	w.Recency /= total
	w.Frequency /= total
	w.Similarity /= total
	w.Importance /= total
	return w
}

// ScoredEntry is an entry annotated with its relevance score. The embedded
// entry is a copy; the engine never mutates its inputs.
type ScoredEntry struct {
	store.Entry
	Score float64 `json:"relevance_score"`
}

// Connection is one edge in a connection graph.
type Connection struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Graph maps entry IDs to their connections, each list sorted descending by
// score. Built fresh per analysis call, never persisted.
type Graph map[string][]Connection

// Relevance fuses similarity, recency, access frequency, and importance
// into a single score per (query, entry) pair. The weights are the only
// mutable state; every computation copies them at call start.
type Relevance struct {
	mu       sync.RWMutex
	weights  Weights
	provider *Provider // nil means Jaccard text similarity
}

// NewRelevance creates a relevance engine. provider may be nil, in which
// case similarity falls back to word-overlap scoring.
func NewRelevance(provider *Provider) *Relevance {
	return &Relevance{
		weights:  DefaultWeights(),
		provider: provider,
	}
}

// Weights returns a copy of the current relevance weights.
func (r *Relevance) Weights() Weights {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights
}

// UpdateWeights merges the provided keys into the current weights and
// renormalizes so the four weights sum to 1.0. Unknown keys are rejected
// without changing state.
func (r *Relevance) UpdateWeights(partial map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := r.weights
	for key, value := range partial {
		switch key {
		case "recency":
			updated.Recency = value
		case "frequency":
			updated.Frequency = value
		case "similarity":
			updated.Similarity = value
		case "importance":
			updated.Importance = value
		default:
			return fmt.Errorf("%w: %q", ErrInvalidWeightKey, key)
		}
	}

	r.weights = updated.normalized()
	return nil
}

// Similarity scores entry content against a query: cosine over embeddings
// when a provider is configured, Jaccard word overlap otherwise. Scoring
// failures degrade to zero rather than propagating.
func (r *Relevance) Similarity(ctx context.Context, content, query string) float64 {
	if r.provider == nil {
		return Jaccard(content, query)
	}

	vecA, err := r.provider.Embed(ctx, content)
	if err != nil {
		log.Warn("embed content failed, scoring similarity as zero", "err", err)
		return 0
	}
	vecB, err := r.provider.Embed(ctx, query)
	if err != nil {
		log.Warn("embed query failed, scoring similarity as zero", "err", err)
		return 0
	}

	sim, err := Cosine(vecA, vecB)
	if err != nil {
		log.Warn("similarity failed, scoring as zero", "err", err)
		return 0
	}
	return sim
}

// Score computes the fused relevance of one entry to a query, clamped to
// [0,1]. freq maps entry IDs to access counts; the entry's own count is
// normalized against the maximum observed.
func (r *Relevance) Score(ctx context.Context, entry store.Entry, query string, freq map[string]int, now time.Time) float64 {
	w := r.Weights()

	maxFreq := 1
	for _, n := range freq {
		if n > maxFreq {
			maxFreq = n
		}
	}

	relevance := w.Recency*RecencyScore(entry.StartTime, now) +
		w.Similarity*r.Similarity(ctx, entry.Content, query) +
		w.Frequency*float64(freq[entry.ID])/float64(maxFreq) +
		w.Importance*entry.Importance

	return math.Min(math.Max(relevance, 0), 1)
}

// FindRelated scores every entry against the query and returns the top
// limit results, stable-sorted descending by score.
func (r *Relevance) FindRelated(ctx context.Context, entries []store.Entry, query string, freq map[string]int, limit int, now time.Time) []ScoredEntry {
	if len(entries) == 0 {
		return nil
	}

	results := make([]ScoredEntry, 0, len(entries))
	for _, e := range entries {
		results = append(results, ScoredEntry{
			Entry: e,
			Score: r.Score(ctx, e, query, freq, now),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// BuildGraph computes pairwise similarity over entry content and connects
// pairs at or above threshold. Self-edges are excluded and each node's edge
// list is sorted descending. A shape error on one pair skips that pair;
// the rest of the batch continues.
//
// Cost is quadratic in entry count — callers should bound large corpora
// with a context deadline.
func (r *Relevance) BuildGraph(ctx context.Context, entries []store.Entry, threshold float64) (Graph, error) {
	graph := make(Graph, len(entries))
	if len(entries) == 0 {
		return graph, nil
	}

	// Embed every entry once up front. Entries that cannot be embedded are
	// scored by text overlap instead.
	vectors := make(map[string][]float64, len(entries))
	if r.provider != nil {
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			vec, err := r.provider.Embed(ctx, e.Content)
			if err != nil {
				log.Warn("embed entry for graph failed", "id", e.ID, "err", err)
				continue
			}
			vectors[e.ID] = vec
		}
	}

	for i := range entries {
		a := entries[i]
		graph[a.ID] = []Connection{}

		for j := range entries {
			if i == j {
				continue
			}
			b := entries[j]

			var sim float64
			vecA, okA := vectors[a.ID]
			vecB, okB := vectors[b.ID]
			if okA && okB {
				var err error
				sim, err = Cosine(vecA, vecB)
				if err != nil {
					log.Warn("graph pair skipped", "a", a.ID, "b", b.ID, "err", err)
					continue
				}
			} else {
				sim = Jaccard(a.Content, b.Content)
			}

			if sim >= threshold {
				graph[a.ID] = append(graph[a.ID], Connection{ID: b.ID, Score: sim})
			}
		}

		sort.SliceStable(graph[a.ID], func(x, y int) bool {
			return graph[a.ID][x].Score > graph[a.ID][y].Score
		})
	}

	return graph, nil
}

// Attention computes a normalized attention distribution over entries for a
// query: (1-temporalFactor)*similarity + temporalFactor*recency per entry,
// normalized to sum to 1.0. Recomputed per call — it depends on now and on
// the query — and never cached.
func (r *Relevance) Attention(ctx context.Context, entries []store.Entry, query string, temporalFactor float64, now time.Time) map[string]float64 {
	weights := make(map[string]float64, len(entries))
	if len(entries) == 0 {
		return weights
	}

	for _, e := range entries {
		similarity := r.Similarity(ctx, e.Content, query)
		recency := RecencyScore(e.StartTime, now)
		weights[e.ID] = (1-temporalFactor)*similarity + temporalFactor*recency
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	if total > 0 {
		for id := range weights {
			weights[id] /= total
		}
	}
	return weights
}
