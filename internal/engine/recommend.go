package engine

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/daybook-sh/daybook/internal/store"
)

// FrequencyProvider supplies per-entry access counts for behavioral
// scoring. The store-backed provider counts real retrievals; see
// HeuristicFrequency for the no-store placeholder.
type FrequencyProvider interface {
	Frequencies(entries []store.Entry) (map[string]int, error)
}

// HeuristicFrequency estimates access counts from entry age: newer entries
// are assumed accessed more, with bounded randomness simulating uneven
// usage. A placeholder policy, not a guarantee — prefer a real provider.
type HeuristicFrequency struct {
	rng *rand.Rand
	now func() time.Time
}

// NewHeuristicFrequency creates a heuristic provider. The seed fixes the
// randomness so tests can pin the output.
func NewHeuristicFrequency(seed int64) *HeuristicFrequency {
	return &HeuristicFrequency{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Frequencies maps each entry to max(0, 10 - age_weeks) plus up to 2 random
// extra accesses.
func (h *HeuristicFrequency) Frequencies(entries []store.Entry) (map[string]int, error) {
	now := h.now()
	freq := make(map[string]int, len(entries))
	for _, e := range entries {
		daysOld := int(now.Sub(e.StartTime).Hours() / 24)
		base := 10 - daysOld/7
		if base < 0 {
			base = 0
		}
		freq[e.ID] = base + h.rng.Intn(3)
	}
	return freq, nil
}

// StrategyWeights blend the three recommendation strategies. Overrides are
// renormalized to sum to 1.0.
type StrategyWeights struct {
	Content    float64 `json:"content"`
	Temporal   float64 `json:"temporal"`
	Behavioral float64 `json:"behavioral"`
}

// DefaultStrategyWeights favors content similarity.
func DefaultStrategyWeights() StrategyWeights {
	return StrategyWeights{Content: 0.5, Temporal: 0.3, Behavioral: 0.2}
}

func (w StrategyWeights) normalized() StrategyWeights {
	total := w.Content + w.Temporal + w.Behavioral
	if total <= 0 {
		return DefaultStrategyWeights()
	}
	w.Content /= total
	w.Temporal /= total
	w.Behavioral /= total
	return w
}

// temporalRefHalfLifeDays controls decay around a referenced date when
// scoring the temporal strategy.
const temporalRefHalfLifeDays = 7.0

// behavioralHourBoost is the flat bonus for entries created within ±1 hour
// of the current hour of day.
const behavioralHourBoost = 0.2

// Recommender orchestrates the content, temporal, and behavioral ranking
// strategies and merges their scores. Stateless per call apart from the
// relevance weights it delegates to.
type Recommender struct {
	relevance *Relevance
	freq      FrequencyProvider
	now       func() time.Time

	temporalWindow int // days; DefaultTemporalWindowDays when zero
}

// NewRecommender creates a recommender. freq may be nil, in which case an
// age-heuristic provider is used.
func NewRecommender(relevance *Relevance, freq FrequencyProvider) *Recommender {
	if freq == nil {
		freq = NewHeuristicFrequency(time.Now().UnixNano())
	}
	return &Recommender{
		relevance: relevance,
		freq:      freq,
		now:       time.Now,
	}
}

// Relevance exposes the underlying relevance engine (weight updates, graph
// building).
func (r *Recommender) Relevance() *Relevance { return r.relevance }

// SetTemporalWindow overrides the connection window, in days, used when
// generating insights.
func (r *Recommender) SetTemporalWindow(days int) {
	r.temporalWindow = days
}

// Recommend ranks entries against a query by fusing the three strategies
// and returns the top maxResults annotated with their combined score.
// prefs overrides the default strategy weights when non-nil. A failing
// frequency provider degrades that signal to zero rather than erroring.
func (r *Recommender) Recommend(ctx context.Context, query string, entries []store.Entry, maxResults int, prefs *StrategyWeights) []ScoredEntry {
	if len(entries) == 0 {
		return nil
	}

	weights := DefaultStrategyWeights()
	if prefs != nil {
		weights = prefs.normalized()
	}

	now := r.now()

	freq, err := r.freq.Frequencies(entries)
	if err != nil {
		log.Warn("frequency provider failed, behavioral signal degraded", "err", err)
		freq = map[string]int{}
	}

	contentScores := r.contentScores(ctx, query, entries, freq, now)
	temporalScores := r.temporalScores(query, entries, now)
	behavioralScores := r.behavioralScores(entries, freq, now)

	combined := make(map[string]float64, len(entries))
	for id, score := range contentScores {
		combined[id] += weights.Content * score
	}
	for id, score := range temporalScores {
		combined[id] += weights.Temporal * score
	}
	for id, score := range behavioralScores {
		combined[id] += weights.Behavioral * score
	}

	results := make([]ScoredEntry, 0, len(entries))
	for _, e := range entries {
		score, ok := combined[e.ID]
		if !ok {
			continue
		}
		results = append(results, ScoredEntry{Entry: e, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// contentScores delegates to the relevance engine over the full corpus.
func (r *Recommender) contentScores(ctx context.Context, query string, entries []store.Entry, freq map[string]int, now time.Time) map[string]float64 {
	related := r.relevance.FindRelated(ctx, entries, query, freq, len(entries), now)
	scores := make(map[string]float64, len(related))
	for _, s := range related {
		scores[s.ID] = s.Score
	}
	return scores
}

// temporalScores scores entries by proximity to dates referenced in the
// query. With no explicit reference the query is anchored at now with full
// weight. Multiple references take the max per entry.
func (r *Recommender) temporalScores(query string, entries []store.Entry, now time.Time) map[string]float64 {
	refs := ExtractDateRefs(query, now)
	if len(refs) == 0 {
		refs = []DateRef{{Time: now, Weight: 1.0}}
	}

	scores := make(map[string]float64, len(entries))
	for _, e := range entries {
		for _, ref := range refs {
			days := math.Abs(ref.Time.Sub(e.StartTime).Hours() / 24)
			score := math.Exp(-days/temporalRefHalfLifeDays) * ref.Weight
			if score > scores[e.ID] {
				scores[e.ID] = score
			}
		}
	}
	return scores
}

// behavioralScores normalizes access frequency to [0,1] and boosts entries
// created within ±1 hour of the current hour of day.
func (r *Recommender) behavioralScores(entries []store.Entry, freq map[string]int, now time.Time) map[string]float64 {
	scores := make(map[string]float64, len(entries))

	maxFreq := 0
	for _, n := range freq {
		if n > maxFreq {
			maxFreq = n
		}
	}
	if maxFreq > 0 {
		for id, n := range freq {
			scores[id] = float64(n) / float64(maxFreq)
		}
	}

	currentHour := now.Hour()
	for _, e := range entries {
		diff := hourDistance(e.StartTime.Hour(), currentHour)
		if diff <= 1 {
			scores[e.ID] = math.Min(scores[e.ID]+behavioralHourBoost, 1.0)
		}
	}
	return scores
}

// hourDistance is the circular distance between two hours of day.
func hourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}
