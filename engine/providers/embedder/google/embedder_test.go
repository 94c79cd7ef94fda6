package google

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/w-h-a/upserter/engine/providers/embedder"
)

func TestEmbedRejectsEmptyText(t *testing.T) {
	e := &googleEmbedder{options: embedder.NewOptions()}

	for _, text := range []string{"", "   ", "\n\t"} {
		vec, err := e.Embed(context.Background(), text)
		assert.ErrorIs(t, err, embedder.ErrEmptyText)
		assert.Nil(t, vec)
	}
}

func TestNewEmbedderDefaultsModel(t *testing.T) {
	e := NewEmbedder(embedder.WithApiKey("test")).(*googleEmbedder)
	t.Cleanup(func() { e.client.Close() })

	assert.Equal(t, defaultModel, e.options.Model)

	custom := NewEmbedder(embedder.WithApiKey("test"), embedder.WithModel("embedding-001")).(*googleEmbedder)
	t.Cleanup(func() { custom.client.Close() })

	assert.Equal(t, "embedding-001", custom.options.Model)
}
