// Package hashing provides a deterministic, offline embedder. Tokens are
// lower-cased words hashed into a fixed number of signed buckets and the
// result is L2-normalised, so identical text always yields an identical
// vector and texts sharing words score a positive cosine similarity.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/w-h-a/upserter/engine/providers/embedder"
)

const (
	DefaultDimension = 384
)

type hashingEmbedder struct {
	options      embedder.Options
	tokenPattern *regexp.Regexp
}

func (e *hashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return nil, embedder.ErrEmptyText
	}

	dim := e.options.Dimension
	acc := make([]float64, dim)

	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		idx := int(sum % uint64(dim))
		if sum>>63 == 1 {
			acc[idx] -= 1
		} else {
			acc[idx] += 1
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, dim)
	if norm == 0 {
		return vec, nil
	}

	for i, v := range acc {
		vec[i] = float32(v / norm)
	}

	return vec, nil
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if options.Dimension <= 0 {
		options.Dimension = DefaultDimension
	}

	return &hashingEmbedder{
		options:      options,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`),
	}
}
