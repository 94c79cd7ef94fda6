package utcp

import (
	"context"

	toolprovider "github.com/w-h-a/upserter/tool_provider"
)

type headersKey struct{}

// WithHeaders adds request headers, e.g. Authorization, to every provider.
func WithHeaders(headers map[string]string) toolprovider.Option {
	return func(o *toolprovider.Options) {
		o.Context = context.WithValue(o.Context, headersKey{}, headers)
	}
}

func HeadersFrom(ctx context.Context) (map[string]string, bool) {
	headers, ok := ctx.Value(headersKey{}).(map[string]string)
	return headers, ok
}
