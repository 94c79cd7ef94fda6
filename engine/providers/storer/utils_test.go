package storer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAllTags(t *testing.T) {
	assert.True(t, HasAllTags([]string{"a", "b", "c"}, []string{"a", "c"}))
	assert.False(t, HasAllTags([]string{"a"}, []string{"a", "b"}))
	assert.False(t, HasAllTags([]string{"a"}, nil))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestEffective(t *testing.T) {
	assert.Equal(t, 0, Effective(Query{K: 3}))
	assert.Equal(t, 3, Effective(Query{K: 3, Limit: 3}))
	assert.Equal(t, 2, Effective(Query{K: 2, Limit: 3}))
	assert.Equal(t, 3, Effective(Query{Limit: 3}))
}
