package opensearch

import (
	"context"

	"github.com/w-h-a/upserter/engine/providers/storer"
)

type basicAuthKey struct{}

type basicAuth struct {
	username string
	password string
}

func WithBasicAuth(username, password string) storer.Option {
	return func(o *storer.Options) {
		o.Context = context.WithValue(o.Context, basicAuthKey{}, basicAuth{username: username, password: password})
	}
}

func basicAuthFrom(ctx context.Context) (basicAuth, bool) {
	auth, ok := ctx.Value(basicAuthKey{}).(basicAuth)
	return auth, ok
}

type refreshKey struct{}

// WithRefresh sets the refresh policy sent with writes ("true", "false" or
// "wait_for"). Defaults to "true" so the next search sees the write.
func WithRefresh(policy string) storer.Option {
	return func(o *storer.Options) {
		o.Context = context.WithValue(o.Context, refreshKey{}, policy)
	}
}

func RefreshFrom(ctx context.Context) (string, bool) {
	policy, ok := ctx.Value(refreshKey{}).(string)
	return policy, ok
}

type vectorFieldKey struct{}

func WithVectorField(field string) storer.Option {
	return func(o *storer.Options) {
		o.Context = context.WithValue(o.Context, vectorFieldKey{}, field)
	}
}

func VectorFieldFrom(ctx context.Context) (string, bool) {
	field, ok := ctx.Value(vectorFieldKey{}).(string)
	return field, ok
}
