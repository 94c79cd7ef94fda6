package storer

import (
	"math"
	"slices"
)

// HasAllTags reports whether every wanted tag is present in have.
// An empty want matches nothing.
func HasAllTags(have []string, want []string) bool {
	if len(want) == 0 {
		return false
	}
	for _, tag := range want {
		if !slices.Contains(have, tag) {
			return false
		}
	}
	return true
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Clone returns a deep copy so callers never share slices with a store.
func Clone(rec Record) Record {
	cpy := rec
	cpy.Tags = slices.Clone(rec.Tags)
	cpy.Embedding = slices.Clone(rec.Embedding)
	return cpy
}

// Effective returns the number of results to fetch for q: zero when Limit
// is unset, otherwise the smaller of K and Limit.
func Effective(q Query) int {
	if q.Limit < 1 {
		return 0
	}
	if q.K > 0 && q.K < q.Limit {
		return q.K
	}
	return q.Limit
}
