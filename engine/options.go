package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/upserter/engine/providers/embedder"
	"github.com/w-h-a/upserter/engine/providers/storer"
)

type Option func(*Options)

type Options struct {
	Storer      storer.Storer
	Embedder    embedder.Embedder
	TopK        int
	Separator   string
	TagLock     bool
	Clock       func() time.Time
	IdGenerator func() string
	Context     context.Context
}

func WithStorer(storer storer.Storer) Option {
	return func(o *Options) {
		o.Storer = storer
	}
}

func WithEmbedder(embedder embedder.Embedder) Option {
	return func(o *Options) {
		o.Embedder = embedder
	}
}

func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

func WithSeparator(sep string) Option {
	return func(o *Options) {
		o.Separator = sep
	}
}

// WithTagLock serializes resolves that share a tag set within this process.
func WithTagLock(enabled bool) Option {
	return func(o *Options) {
		o.TagLock = enabled
	}
}

func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

func WithIdGenerator(gen func() string) Option {
	return func(o *Options) {
		o.IdGenerator = gen
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		TopK:        3,
		Separator:   "\n\n",
		Clock:       func() time.Time { return time.Now().UTC() },
		IdGenerator: uuid.NewString,
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type ResolveOption func(*ResolveOptions)

type ResolveOptions struct {
	SessionId string
	Context   context.Context
}

func WithSessionId(sessionId string) ResolveOption {
	return func(o *ResolveOptions) {
		o.SessionId = sessionId
	}
}

func NewResolveOptions(opts ...ResolveOption) ResolveOptions {
	options := ResolveOptions{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
