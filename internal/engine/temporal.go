package engine

import (
	"math"
	"sort"
	"time"

	"github.com/daybook-sh/daybook/internal/store"
)

// recencyHalfLifeDays controls exponential decay of the recency signal.
const recencyHalfLifeDays = 30.0

// DefaultTemporalWindowDays is the window within which two entries count
// as temporally connected.
const DefaultTemporalWindowDays = 3

// RecencyScore decays with distance from now, in fractional days.
// Symmetric: an entry dated 5 days ahead scores the same as one 5 days
// back. Always in [0,1].
func RecencyScore(t, now time.Time) float64 {
	days := daysBetween(t, now)
	score := math.Exp(-days / recencyHalfLifeDays)
	return math.Min(math.Max(score, 0), 1)
}

// TemporalConnections links entries whose start times fall within
// windowDays of each other, measured in whole days: the difference is
// truncated before comparing, so 3.2 days apart still counts as 3. Every
// input entry gets a key, possibly with an empty connection list.
func TemporalConnections(entries []store.Entry, windowDays int) map[string][]string {
	conns := make(map[string][]string, len(entries))
	if len(entries) == 0 {
		return conns
	}
	if windowDays <= 0 {
		windowDays = DefaultTemporalWindowDays
	}

	sorted := make([]store.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	for i, e := range sorted {
		conns[e.ID] = []string{}

		// Sorted order lets both scans stop at the first entry outside
		// the window.
		for j := i - 1; j >= 0; j-- {
			if wholeDaysBetween(e.StartTime, sorted[j].StartTime) > windowDays {
				break
			}
			conns[e.ID] = append(conns[e.ID], sorted[j].ID)
		}
		for j := i + 1; j < len(sorted); j++ {
			if wholeDaysBetween(e.StartTime, sorted[j].StartTime) > windowDays {
				break
			}
			conns[e.ID] = append(conns[e.ID], sorted[j].ID)
		}
	}
	return conns
}

func daysBetween(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours() / 24)
}

func wholeDaysBetween(a, b time.Time) int {
	return int(daysBetween(a, b))
}
