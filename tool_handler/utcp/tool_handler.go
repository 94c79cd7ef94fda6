package utcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/universal-tool-calling-protocol/go-utcp"
	toolhandler "github.com/w-h-a/upserter/tool_handler"
)

type utcpToolHandler struct {
	options  toolhandler.Options
	client   utcp.UtcpClientInterface
	toolName string
	spec     toolhandler.ToolSpec
}

func (th *utcpToolHandler) Spec() toolhandler.ToolSpec {
	return th.spec
}

func (th *utcpToolHandler) Invoke(ctx context.Context, req toolhandler.ToolRequest) (toolhandler.ToolResponse, error) {
	raw, err := th.client.CallTool(ctx, th.toolName, req.Arguments)
	if err != nil {
		return toolhandler.ToolResponse{}, fmt.Errorf("utcp call %s failed: %w", th.toolName, err)
	}

	return toolhandler.ToolResponse{
		Content: contentOf(raw),
		Metadata: map[string]string{
			"source": "utcp",
			"tool":   th.toolName,
		},
	}, nil
}

// contentOf unwraps the {"result": ...} envelope served by the tools endpoint.
func contentOf(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		if result, ok := v["result"].(string); ok && len(v) == 1 {
			return result
		}
	}

	if b, err := json.Marshal(raw); err == nil {
		return string(b)
	}

	return fmt.Sprintf("%v", raw)
}

func NewToolHandler(opts ...toolhandler.Option) toolhandler.ToolHandler {
	options := toolhandler.NewOptions(opts...)

	th := &utcpToolHandler{
		options: options,
	}

	client, ok := UtcpClientFrom(options.Context)
	if !ok || client == nil {
		panic("missing utcp client for utcp tool handler")
	}

	th.client = client

	if name, ok := ToolNameFrom(options.Context); ok {
		th.toolName = name
	}

	if spec, ok := ToolSpecFrom(options.Context); ok {
		th.spec = spec
	}

	if len(th.spec.Name) == 0 {
		th.spec.Name = th.toolName
	}

	return th
}
