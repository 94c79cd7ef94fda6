package main

import (
	"github.com/w-h-a/upserter/engine/providers/embedder"
	"github.com/w-h-a/upserter/engine/providers/embedder/google"
	"github.com/w-h-a/upserter/engine/providers/embedder/hashing"
	"github.com/w-h-a/upserter/engine/providers/embedder/openai"
	"github.com/w-h-a/upserter/engine/providers/storer"
	"github.com/w-h-a/upserter/engine/providers/storer/memory"
	"github.com/w-h-a/upserter/engine/providers/storer/opensearch"
	"github.com/w-h-a/upserter/engine/providers/storer/postgres"
	"github.com/w-h-a/upserter/engine/providers/storer/qdrant"
	"github.com/w-h-a/upserter/engine/providers/storer/sqlite"
	"github.com/w-h-a/upserter/internal/config"
)

func buildEmbedder(cfg config.EmbedderConfig) embedder.Embedder {
	opts := []embedder.Option{
		embedder.WithApiKey(cfg.ApiKey),
	}
	if len(cfg.Model) > 0 {
		opts = append(opts, embedder.WithModel(cfg.Model))
	}
	if cfg.Dimension > 0 {
		opts = append(opts, embedder.WithDimension(cfg.Dimension))
	}

	switch cfg.Type {
	case "openai":
		if len(cfg.BaseURL) > 0 {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.NewEmbedder(opts...)
	case "google":
		return google.NewEmbedder(opts...)
	default:
		return hashing.NewEmbedder(opts...)
	}
}

// dimensionOf guesses the vector size stores need to create an index.
func dimensionOf(cfg config.EmbedderConfig) int {
	if cfg.Dimension > 0 {
		return cfg.Dimension
	}

	switch cfg.Type {
	case "openai":
		if cfg.Model == "text-embedding-3-large" {
			return 3072
		}
		return 1536
	case "google":
		return 768
	default:
		return hashing.DefaultDimension
	}
}

func buildStorer(cfg config.StoreConfig, dimension int) storer.Storer {
	vectorSize := cfg.VectorSize
	if vectorSize == 0 {
		vectorSize = dimension
	}

	opts := []storer.Option{
		storer.WithLocation(cfg.Location),
		storer.WithCollection(cfg.Index),
		storer.WithVectorSize(vectorSize),
	}
	if len(cfg.ApiKey) > 0 {
		opts = append(opts, storer.WithApiKey(cfg.ApiKey))
	}

	switch cfg.Type {
	case "memory":
		return memory.NewStorer(opts...)
	case "qdrant":
		return qdrant.NewStorer(opts...)
	case "postgres":
		return postgres.NewStorer(opts...)
	case "sqlite":
		return sqlite.NewStorer(opts...)
	default:
		if len(cfg.Username) > 0 {
			opts = append(opts, opensearch.WithBasicAuth(cfg.Username, cfg.Password))
		}
		if len(cfg.Refresh) > 0 {
			opts = append(opts, opensearch.WithRefresh(cfg.Refresh))
		}
		return opensearch.NewStorer(opts...)
	}
}
