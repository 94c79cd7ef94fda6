package embedder

import (
	"context"
	"errors"
)

var (
	ErrEmptyText = errors.New("text to embed is empty")
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
