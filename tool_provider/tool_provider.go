package toolprovider

import (
	"context"

	toolhandler "github.com/w-h-a/upserter/tool_handler"
)

// ToolProvider discovers tools served elsewhere and exposes them as handlers.
type ToolProvider interface {
	Load(ctx context.Context, prefix string, limit int) ([]toolhandler.ToolHandler, error)
}
