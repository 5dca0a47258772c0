package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEntitiesNames(t *testing.T) {
	entities := ExtractEntities("Lunch with Sarah Chen to discuss the roadmap")
	assert.Contains(t, entities, "Sarah Chen")
}

func TestExtractEntitiesLocations(t *testing.T) {
	entities := ExtractEntities("Coffee at Blue Bottle before standup")
	assert.Contains(t, entities, "Blue Bottle")
}

func TestExtractEntitiesProjects(t *testing.T) {
	entities := ExtractEntities(`Started working on "atlas migration" today`)
	assert.Contains(t, entities, "atlas migration")
}

func TestExtractEntitiesDeduplicates(t *testing.T) {
	entities := ExtractEntities("Met Sarah Chen, then Sarah Chen again")
	count := 0
	for _, e := range entities {
		if e == "Sarah Chen" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtractEntitiesEmpty(t *testing.T) {
	assert.Empty(t, ExtractEntities("grabbed coffee and wrote some code"))
}

func TestExtractDateRefsNumeric(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)

	refs := ExtractDateRefs("follow up on 15/3/2024 about the audit", ref)
	require.Len(t, refs, 1)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local), refs[0].Time)
	assert.Equal(t, 1.0, refs[0].Weight)
}

func TestExtractDateRefsNumericSwapsOnFailure(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)

	// 3/15 cannot be day 3 of month 15, so day and month swap.
	refs := ExtractDateRefs("deadline 3/15/2024", ref)
	require.Len(t, refs, 1)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local), refs[0].Time)
}

func TestExtractDateRefsMonthDay(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)

	refs := ExtractDateRefs("dentist on March 15", ref)
	require.NotEmpty(t, refs)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local), refs[0].Time)
}

func TestExtractDateRefsMonthDayYear(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)

	refs := ExtractDateRefs("conference on March 15, 2023", ref)
	require.NotEmpty(t, refs)
	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.Local), refs[0].Time)
}

func TestExtractDateRefsRelative(t *testing.T) {
	ref := time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local)

	tests := []struct {
		text   string
		want   time.Time
		weight float64
	}{
		{"what happened yesterday", ref.AddDate(0, 0, -1), 1.0},
		{"anything today", ref, 1.0},
		{"plans for tomorrow", ref.AddDate(0, 0, 1), 1.0},
		{"review from last week", ref.AddDate(0, 0, -7), 0.8},
		{"schedule for next week", ref.AddDate(0, 0, 7), 0.8},
		{"summary of last month", ref.AddDate(0, 0, -30), 0.7},
		{"planning next month", ref.AddDate(0, 0, 30), 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			refs := ExtractDateRefs(tt.text, ref)
			require.Len(t, refs, 1)
			assert.Equal(t, tt.want, refs[0].Time)
			assert.Equal(t, tt.weight, refs[0].Weight)
		})
	}
}

func TestExtractDateRefsDropsUnparseable(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)

	// 45/45 is impossible in either order; extraction continues silently.
	refs := ExtractDateRefs("garbage 45/45/2024 but also today", ref)
	require.Len(t, refs, 1)
	assert.Equal(t, ref, refs[0].Time)
}

func TestExtractDateRefsNone(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)
	assert.Empty(t, ExtractDateRefs("nothing temporal here", ref))
}
