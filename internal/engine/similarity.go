package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrShapeMismatch is returned when two vectors of different dimensions
// are compared. Mixed-dimension input is a configuration bug, not a
// scoring condition, so it is never silently absorbed.
var ErrShapeMismatch = errors.New("vector shape mismatch")

// Cosine returns the cosine similarity of two vectors. A zero-norm vector
// scores 0 against everything; differing lengths are a hard error.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrShapeMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0, nil
	}
	return sim, nil
}

// Jaccard scores word-set overlap between two texts, case-insensitive.
// Used when no embedding provider is available.
func Jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = true
	}
	return set
}
