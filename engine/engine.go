package engine

import "context"

// Engine decides, for one piece of text and a tag set, whether to append to
// the closest existing record or to create a new one.
type Engine interface {
	Resolve(ctx context.Context, query string, tags []string, opts ...ResolveOption) (Outcome, error)
}
