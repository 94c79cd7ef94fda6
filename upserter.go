package upserter

import (
	"context"
	"strings"

	"github.com/w-h-a/upserter/engine"
	"github.com/w-h-a/upserter/engine/firsthit"
	"github.com/w-h-a/upserter/engine/providers/embedder"
	"github.com/w-h-a/upserter/engine/providers/storer"
)

// Upserter is the library entry point for hosts: it owns the engine and the
// store it writes to.
type Upserter struct {
	engine engine.Engine
	storer storer.Storer
}

func (u *Upserter) Resolve(ctx context.Context, query string, tags []string, sessionId string) (engine.Outcome, error) {
	var opts []engine.ResolveOption
	if len(strings.TrimSpace(sessionId)) > 0 {
		opts = append(opts, engine.WithSessionId(sessionId))
	}
	return u.engine.Resolve(ctx, query, tags, opts...)
}

// ResolveText takes tags as a comma-separated list, e.g. "projects, scriptname".
func (u *Upserter) ResolveText(ctx context.Context, query string, tags string, sessionId string) (engine.Outcome, error) {
	return u.Resolve(ctx, query, engine.ParseTags(tags), sessionId)
}

func (u *Upserter) Record(ctx context.Context, id string) (storer.Record, error) {
	return u.storer.Get(ctx, id)
}

func (u *Upserter) Engine() engine.Engine {
	return u.engine
}

func New(
	storer storer.Storer,
	embedder embedder.Embedder,
	opts ...engine.Option,
) *Upserter {
	opts = append([]engine.Option{
		engine.WithStorer(storer),
		engine.WithEmbedder(embedder),
	}, opts...)

	u := &Upserter{
		engine: firsthit.NewEngine(opts...),
		storer: storer,
	}

	return u
}
