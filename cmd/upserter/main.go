package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/w-h-a/upserter"
	"github.com/w-h-a/upserter/engine"
	"github.com/w-h-a/upserter/internal/config"
	"github.com/w-h-a/upserter/internal/handler"
	"github.com/w-h-a/upserter/server"
	httpserver "github.com/w-h-a/upserter/server/http"
	toolhandler "github.com/w-h-a/upserter/tool_handler"
	"github.com/w-h-a/upserter/tool_handler/resolve"
	toolprovider "github.com/w-h-a/upserter/tool_provider"
	"github.com/w-h-a/upserter/tool_provider/utcp"
)

type Globals struct {
	Config string `help:"Path to a yaml config file" default:"upserter.yaml"`

	LogLevel string `help:"Log level (debug, info, warn, error)" default:""`

	// Store config
	Store         string `help:"Document store (opensearch, qdrant, postgres, sqlite, memory)" default:""`
	StoreLocation string `help:"Address or DSN of the document store" default:""`
	StoreIndex    string `help:"Index, collection or table name" default:""`

	// Embedder config
	Embedder       string `help:"Embedder (hashing, openai, google)" default:""`
	EmbedderApiKey string `help:"API key for the embedder" default:""`
	EmbedderModel  string `help:"Model identifier for vector embeddings" default:""`
}

var cli struct {
	Globals

	Serve   serveCmd   `cmd:"" help:"Serve the HTTP API."`
	Resolve resolveCmd `cmd:"" help:"Merge text into the closest tagged record or create one."`
	Call    callCmd    `cmd:"" help:"Invoke match_or_create on a remote server over UTCP."`
}

type serveCmd struct {
	Address string `help:"Address to listen on" default:""`
}

func (c *serveCmd) Run(g *Globals) error {
	cfg, err := load(g)
	if err != nil {
		return err
	}
	if len(c.Address) > 0 {
		cfg.Server.Address = c.Address
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u := newUpserter(cfg)

	srv := httpserver.NewServer(
		server.WithName("upserter"),
		server.WithAddress(cfg.Server.Address),
	)

	handler.Register(
		srv,
		u,
		handler.NewMetrics(),
		resolve.NewToolHandler(resolve.WithEngine(u.Engine())),
	)

	if err := srv.Start(); err != nil {
		return err
	}

	<-ctx.Done()

	return srv.Stop()
}

type resolveCmd struct {
	Query   string `help:"Text to merge or store" required:""`
	Tags    string `help:"Comma-separated tags, e.g. \"projects, scriptname\"" default:""`
	Session string `help:"Optional session identifier" default:""`
}

func (c *resolveCmd) Run(g *Globals) error {
	cfg, err := load(g)
	if err != nil {
		return err
	}

	u := newUpserter(cfg)

	outcome, err := u.ResolveText(context.Background(), c.Query, c.Tags, c.Session)
	if err != nil {
		return err
	}

	fmt.Println(outcome.Message)

	return nil
}

type callCmd struct {
	Addr    string `help:"UTCP tools endpoint of a running server" default:"http://localhost:8080/api/v1/tools"`
	Query   string `help:"Text to merge or store" required:""`
	Tags    string `help:"Comma-separated tags" default:""`
	Session string `help:"Optional session identifier" default:""`
}

func (c *callCmd) Run(g *Globals) error {
	setupLogging(g.LogLevel)

	th, err := remoteTool(context.Background(), c.Addr)
	if err != nil {
		return err
	}

	args := map[string]any{
		"query": c.Query,
		"tags":  c.Tags,
	}
	if len(c.Session) > 0 {
		args["session_id"] = c.Session
	}

	rsp, err := th.Invoke(context.Background(), toolhandler.ToolRequest{Arguments: args})
	if err != nil {
		return err
	}

	fmt.Println(rsp.Content)

	return nil
}

// remoteTool discovers match_or_create at addr. Remote names carry the
// provider as a prefix, e.g. "127_0_0_1.match_or_create".
func remoteTool(ctx context.Context, addr string) (toolhandler.ToolHandler, error) {
	tp := utcp.NewToolProvider(
		toolprovider.WithAddrs(addr),
	)

	handlers, err := tp.Load(ctx, "", 10)
	if err != nil {
		return nil, err
	}

	for _, h := range handlers {
		if strings.HasSuffix(h.Spec().Name, resolve.Name) {
			return h, nil
		}
	}

	return nil, fmt.Errorf("no %s tool served at %s", resolve.Name, addr)
}

func load(g *Globals) (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}

	override(&cfg.Log.Level, g.LogLevel)
	override(&cfg.Store.Type, g.Store)
	override(&cfg.Store.Location, g.StoreLocation)
	override(&cfg.Store.Index, g.StoreIndex)
	override(&cfg.Embedder.Type, g.Embedder)
	override(&cfg.Embedder.ApiKey, g.EmbedderApiKey)
	override(&cfg.Embedder.Model, g.EmbedderModel)

	setupLogging(cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func override(dst *string, flag string) {
	if len(flag) > 0 {
		*dst = flag
	}
}

func newUpserter(cfg *config.Config) *upserter.Upserter {
	e := buildEmbedder(cfg.Embedder)
	s := buildStorer(cfg.Store, dimensionOf(cfg.Embedder))

	return upserter.New(
		s,
		e,
		engine.WithTopK(cfg.Engine.TopK),
		engine.WithTagLock(cfg.Engine.TagLock),
	)
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("upserter"),
		kong.Description("Upsert free text into tagged records by semantic similarity."),
	)

	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
