package resolve

import (
	"context"

	"github.com/w-h-a/upserter/engine"
	toolhandler "github.com/w-h-a/upserter/tool_handler"
)

type engineKey struct{}

func WithEngine(e engine.Engine) toolhandler.Option {
	return func(o *toolhandler.Options) {
		o.Context = context.WithValue(o.Context, engineKey{}, e)
	}
}

func EngineFrom(ctx context.Context) (engine.Engine, bool) {
	e, ok := ctx.Value(engineKey{}).(engine.Engine)
	return e, ok
}
