package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/w-h-a/upserter/engine"
	toolhandler "github.com/w-h-a/upserter/tool_handler"
)

const (
	Name = "match_or_create"
)

type resolveToolHandler struct {
	options toolhandler.Options
	engine  engine.Engine
}

func (th *resolveToolHandler) Spec() toolhandler.ToolSpec {
	return toolhandler.ToolSpec{
		Name:        Name,
		Description: "Append text to the closest record carrying the given tags, or create a new record when none matches.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Text to merge into an existing record or to start a new one.",
				},
				"tags": map[string]any{
					"type":        []any{"string", "array"},
					"items":       map[string]any{"type": "string"},
					"description": "Comma-separated tags, e.g. \"projects, scriptname\", or an array of tags.",
				},
				"session_id": map[string]any{
					"type":        "string",
					"description": "Optional identifier of the originating session.",
				},
			},
			"required": []any{"query", "tags"},
		},
		Examples: []map[string]any{
			{"query": "Buy milk", "tags": "groceries", "session_id": "s1"},
		},
	}
}

func (th *resolveToolHandler) Invoke(ctx context.Context, req toolhandler.ToolRequest) (toolhandler.ToolResponse, error) {
	query, err := stringArg(req.Arguments, "query")
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}
	if len(strings.TrimSpace(query)) == 0 {
		return toolhandler.ToolResponse{}, fmt.Errorf("argument 'query' is required")
	}

	tags, err := tagsArg(req.Arguments)
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	var opts []engine.ResolveOption
	if raw, ok := req.Arguments["session_id"]; ok && raw != nil {
		sessionId, ok := raw.(string)
		if !ok {
			return toolhandler.ToolResponse{}, fmt.Errorf("argument 'session_id' has invalid type: expected string, got %T", raw)
		}
		if len(strings.TrimSpace(sessionId)) > 0 {
			opts = append(opts, engine.WithSessionId(sessionId))
		}
	}

	outcome, err := th.engine.Resolve(ctx, query, tags, opts...)
	if err != nil {
		return toolhandler.ToolResponse{}, err
	}

	return toolhandler.ToolResponse{
		Content: outcome.Message,
		Metadata: map[string]string{
			"action":    string(outcome.Action),
			"record_id": outcome.RecordId,
			"tool":      Name,
		},
	}, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("missing '%s' argument", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument '%s' has invalid type: expected string, got %T", key, raw)
	}
	return s, nil
}

func tagsArg(args map[string]any) ([]string, error) {
	raw, ok := args["tags"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("missing 'tags' argument")
	}

	switch v := raw.(type) {
	case string:
		return engine.ParseTags(v), nil
	case []string:
		return engine.NormalizeTags(v), nil
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("argument 'tags' has invalid item type: expected string, got %T", item)
			}
			tags = append(tags, s)
		}
		return engine.NormalizeTags(tags), nil
	}

	return nil, fmt.Errorf("argument 'tags' has invalid type: expected string or array, got %T", raw)
}

func NewToolHandler(opts ...toolhandler.Option) toolhandler.ToolHandler {
	options := toolhandler.NewOptions(opts...)

	th := &resolveToolHandler{
		options: options,
	}

	e, ok := EngineFrom(options.Context)
	if !ok || e == nil {
		panic("missing engine for resolve tool handler")
	}

	th.engine = e

	return th
}
