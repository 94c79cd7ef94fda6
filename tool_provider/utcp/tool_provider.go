package utcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	goutcp "github.com/universal-tool-calling-protocol/go-utcp"
	toolhandler "github.com/w-h-a/upserter/tool_handler"
	"github.com/w-h-a/upserter/tool_handler/utcp"
	toolprovider "github.com/w-h-a/upserter/tool_provider"
)

type utcpToolProvider struct {
	options toolprovider.Options
	client  goutcp.UtcpClientInterface
}

// Load returns the remote tools whose names start with prefix + ".", where
// prefix is a provider name. An empty prefix loads every provider's tools.
func (tp *utcpToolProvider) Load(ctx context.Context, prefix string, limit int) ([]toolhandler.ToolHandler, error) {
	remoteTools, err := tp.client.SearchTools(prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("utcp discovery failed: %w", err)
	}

	var handlers []toolhandler.ToolHandler
	for _, tool := range remoteTools {
		spec := toolhandler.ToolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: map[string]any{
				"type":       "object",
				"properties": tool.Inputs.Properties,
			},
		}
		handlers = append(handlers, utcp.NewToolHandler(
			utcp.WithUtcpClient(tp.client),
			utcp.WithToolName(tool.Name),
			utcp.WithToolSpec(spec),
		))
	}

	slog.DebugContext(ctx, "loaded utcp tools", "prefix", prefix, "count", len(handlers))

	return handlers, nil
}

func (tp *utcpToolProvider) createTempConfig(addrs []string, headers map[string]string) (string, error) {
	type providerConfig struct {
		Type    string            `json:"provider_type"`
		Name    string            `json:"name"`
		URL     string            `json:"url"`
		Method  string            `json:"http_method"`
		Headers map[string]string `json:"headers"`
	}

	config := struct {
		Providers []providerConfig `json:"providers"`
	}{}

	for _, u := range addrs {
		parsed, err := url.Parse(u)
		if err != nil {
			return "", err
		}

		hs := map[string]string{
			"Content-Type": "application/json",
		}
		for k, v := range headers {
			hs[k] = v
		}

		config.Providers = append(config.Providers, providerConfig{
			Type:    "http",
			Name:    parsed.Hostname(),
			URL:     u,
			Method:  "POST",
			Headers: hs,
		})
	}

	f, err := os.CreateTemp("", "utcp_config_*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(config); err != nil {
		return "", err
	}

	return f.Name(), nil
}

func NewToolProvider(opts ...toolprovider.Option) toolprovider.ToolProvider {
	options := toolprovider.NewOptions(opts...)

	tp := &utcpToolProvider{
		options: options,
	}

	var configPath string

	if len(options.Addrs) > 0 {
		headers, _ := HeadersFrom(options.Context)
		tmpPath, err := tp.createTempConfig(options.Addrs, headers)
		if err != nil {
			slog.ErrorContext(options.Context, "failed to write utcp provider config", "error", err)
			panic(err)
		}
		configPath = tmpPath
		defer os.Remove(tmpPath)
	}

	client, err := goutcp.NewUTCPClient(
		options.Context,
		&goutcp.UtcpClientConfig{
			ProvidersFilePath: configPath,
		},
		nil,
		nil,
	)
	if err != nil {
		slog.ErrorContext(options.Context, "failed to create utcp client", "error", err)
		panic(err)
	}

	tp.client = client

	return tp
}
