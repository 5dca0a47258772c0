package engine

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/daybook-sh/daybook/internal/store"
)

// semanticGraphThreshold is the similarity cut for the insight-time
// semantic connection graph.
const semanticGraphThreshold = 0.6

// EntityCount is one row of the entity frequency histogram.
type EntityCount struct {
	Entity string `json:"entity"`
	Count  int    `json:"count"`
}

// TopicCluster groups entries sharing a frequent content word.
type TopicCluster struct {
	Topic      string   `json:"topic"`
	EntryCount int      `json:"entry_count"`
	EntryIDs   []string `json:"entry_ids"`
}

// ConnectedEntry reports how many temporal and semantic connections an
// entry participates in.
type ConnectedEntry struct {
	ID       string `json:"id"`
	Temporal int    `json:"temporal"`
	Semantic int    `json:"semantic"`
	Total    int    `json:"total"`
}

// Timeframe bounds an insight report.
type Timeframe struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	TotalEntries int       `json:"total_entries"`
}

// ActivityPatterns holds when the user tends to log, as percentages.
type ActivityPatterns struct {
	TimeOfDay map[string]float64 `json:"time_of_day"`
	Weekday   map[string]float64 `json:"weekday"`
}

// InsightReport aggregates patterns, clusters, and connection counts over a
// trailing window of entries.
type InsightReport struct {
	Timeframe       Timeframe        `json:"timeframe"`
	Activity        ActivityPatterns `json:"activity_patterns"`
	TopEntities     []EntityCount    `json:"top_entities"`
	TopicClusters   []TopicCluster   `json:"topic_clusters"`
	TemporalCount   int              `json:"temporal_connection_count"`
	SemanticCount   int              `json:"semantic_connection_count"`
	HighlyConnected []ConnectedEntry `json:"highly_connected"`
	Message         string           `json:"message,omitempty"`
}

var (
	contentWordPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)

	stopWords = map[string]bool{
		"and": true, "the": true, "of": true, "in": true, "for": true,
		"with": true, "on": true, "at": true, "from": true, "by": true,
		"about": true, "as": true, "is": true, "was": true, "were": true,
		"be": true, "been": true, "being": true, "have": true, "has": true,
		"had": true, "do": true, "does": true, "did": true, "but": true,
		"an": true, "this": true, "that": true, "these": true, "those": true,
		"am": true, "are": true, "will": true, "would": true, "should": true,
		"can": true, "could": true, "may": true, "might": true, "must": true,
		"shall": true,
	}
)

// Insights analyzes the trailing windowDays of entries: activity histograms,
// top entities, topic clusters, and connection graphs. An empty corpus or
// an empty window yields a report with a message rather than an error, and
// semantic-graph failures degrade to temporal-only connections.
func (r *Recommender) Insights(ctx context.Context, entries []store.Entry, windowDays int) *InsightReport {
	now := r.now()
	if windowDays <= 0 {
		windowDays = 30
	}
	cutoff := now.AddDate(0, 0, -windowDays)

	report := &InsightReport{
		Timeframe: Timeframe{Start: cutoff, End: now},
		Activity: ActivityPatterns{
			TimeOfDay: map[string]float64{},
			Weekday:   map[string]float64{},
		},
	}

	if len(entries) == 0 {
		report.Message = "no entries"
		return report
	}

	var recent []store.Entry
	for _, e := range entries {
		if !e.StartTime.Before(cutoff) {
			recent = append(recent, e)
		}
	}
	report.Timeframe.TotalEntries = len(recent)

	if len(recent) == 0 {
		report.Message = "no entries in the requested window"
		return report
	}

	entityFreq := make(map[string]int)
	for _, e := range recent {
		bucket := timeOfDayBucket(e.StartTime.Hour())
		report.Activity.TimeOfDay[bucket]++
		report.Activity.Weekday[e.StartTime.Weekday().String()]++

		for _, entity := range ExtractEntities(e.Content) {
			entityFreq[entity]++
		}
	}

	// Histograms as percentages of the window's entry count.
	total := float64(len(recent))
	for k, v := range report.Activity.TimeOfDay {
		report.Activity.TimeOfDay[k] = v / total * 100
	}
	for k, v := range report.Activity.Weekday {
		report.Activity.Weekday[k] = v / total * 100
	}

	report.TopEntities = topEntities(entityFreq, 10)
	report.TopicClusters = topicClusters(recent)

	window := r.temporalWindow
	if window <= 0 {
		window = DefaultTemporalWindowDays
	}
	temporal := TemporalConnections(recent, window)
	for _, conns := range temporal {
		report.TemporalCount += len(conns)
	}

	semantic := Graph{}
	if graph, err := r.relevance.BuildGraph(ctx, recent, semanticGraphThreshold); err != nil {
		log.Warn("semantic graph failed, temporal-only insights", "err", err)
	} else {
		semantic = graph
		for _, conns := range semantic {
			report.SemanticCount += len(conns)
		}
	}

	report.HighlyConnected = highlyConnected(temporal, semantic, 10)
	return report
}

func timeOfDayBucket(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

func topEntities(freq map[string]int, limit int) []EntityCount {
	counts := make([]EntityCount, 0, len(freq))
	for entity, n := range freq {
		counts = append(counts, EntityCount{Entity: entity, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Entity < counts[j].Entity
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

// topicClusters groups entries by frequent content words: stop-words
// removed, a word needs at least 3 occurrences overall and 2 member
// entries, and clusters keep at most 10 member IDs.
func topicClusters(entries []store.Entry) []TopicCluster {
	wordCounts := make(map[string]int)
	entryWords := make([]map[string]bool, len(entries))

	for i, e := range entries {
		words := contentWordPattern.FindAllString(strings.ToLower(e.Content), -1)
		entryWords[i] = make(map[string]bool, len(words))
		for _, w := range words {
			if stopWords[w] {
				continue
			}
			wordCounts[w]++
			entryWords[i][w] = true
		}
	}

	type wordCount struct {
		word  string
		count int
	}
	common := make([]wordCount, 0, len(wordCounts))
	for w, n := range wordCounts {
		common = append(common, wordCount{w, n})
	}
	sort.Slice(common, func(i, j int) bool {
		if common[i].count != common[j].count {
			return common[i].count > common[j].count
		}
		return common[i].word < common[j].word
	})
	if len(common) > 30 {
		common = common[:30]
	}

	var clusters []TopicCluster
	for _, wc := range common {
		if wc.count < 3 {
			continue
		}

		var memberIDs []string
		for i, e := range entries {
			if entryWords[i][wc.word] {
				memberIDs = append(memberIDs, e.ID)
			}
		}
		if len(memberIDs) < 2 {
			continue
		}

		count := len(memberIDs)
		if len(memberIDs) > 10 {
			memberIDs = memberIDs[:10]
		}
		clusters = append(clusters, TopicCluster{
			Topic:      wc.word,
			EntryCount: count,
			EntryIDs:   memberIDs,
		})
	}
	return clusters
}

func highlyConnected(temporal map[string][]string, semantic Graph, limit int) []ConnectedEntry {
	byID := make(map[string]*ConnectedEntry)

	for id, conns := range temporal {
		c := connectedEntry(byID, id)
		c.Temporal = len(conns)
		c.Total += len(conns)
	}
	for id, conns := range semantic {
		c := connectedEntry(byID, id)
		c.Semantic = len(conns)
		c.Total += len(conns)
	}

	ranked := make([]ConnectedEntry, 0, len(byID))
	for _, c := range byID {
		ranked = append(ranked, *c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func connectedEntry(byID map[string]*ConnectedEntry, id string) *ConnectedEntry {
	if c, ok := byID[id]; ok {
		return c
	}
	c := &ConnectedEntry{ID: id}
	byID[id] = c
	return c
}
