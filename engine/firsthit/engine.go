package firsthit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/w-h-a/upserter/engine"
	"github.com/w-h-a/upserter/engine/providers/storer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/w-h-a/upserter/engine/firsthit")

// firstHitEngine merges into the single best-ranked candidate and never
// reconciles several near-duplicates under the same tags.
type firstHitEngine struct {
	options engine.Options
	locks   *tagLocks
}

func (e *firstHitEngine) Resolve(ctx context.Context, query string, tags []string, opts ...engine.ResolveOption) (engine.Outcome, error) {
	options := engine.NewResolveOptions(opts...)

	tags = engine.NormalizeTags(tags)

	ctx, span := tracer.Start(
		ctx,
		"firsthit.Resolve",
		trace.WithAttributes(attribute.StringSlice("upserter.tags", tags)),
	)
	defer span.End()

	if e.options.TagLock {
		unlock := e.locks.lock(tags)
		defer unlock()
	}

	outcome, err := e.resolve(ctx, query, tags, options.SessionId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "failed to resolve", "tags", tags, "error", err)
		return engine.Outcome{}, err
	}

	span.SetAttributes(
		attribute.String("upserter.action", string(outcome.Action)),
		attribute.String("upserter.record_id", outcome.RecordId),
	)

	slog.InfoContext(ctx, "resolved", "action", outcome.Action, "record_id", outcome.RecordId, "tags", outcome.Tags)

	return outcome, nil
}

func (e *firstHitEngine) resolve(ctx context.Context, query string, tags []string, sessionId string) (engine.Outcome, error) {
	vec, err := e.options.Embedder.Embed(ctx, query)
	if err != nil {
		return engine.Outcome{}, engine.NewError(engine.KindEmbedding, engine.StageEmbed, err)
	}

	hits, err := e.options.Storer.Search(ctx, storer.Query{
		Tags:   tags,
		Vector: vec,
		K:      e.options.TopK,
		Limit:  e.options.TopK,
	})
	if err != nil {
		return engine.Outcome{}, engine.NewError(engine.KindStore, engine.StageSearch, err)
	}

	if len(hits) == 0 {
		return e.insert(ctx, query, tags, vec, sessionId)
	}

	// no threshold: the store's first hit wins
	return e.update(ctx, hits[0], query, tags)
}

func (e *firstHitEngine) insert(ctx context.Context, query string, tags []string, vec []float32, sessionId string) (engine.Outcome, error) {
	id := e.options.IdGenerator()
	now := e.options.Clock()

	rec := storer.Record{
		Id:        id,
		SessionId: sessionId,
		Tags:      tags,
		Content:   query,
		Embedding: vec,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.options.Storer.Index(ctx, id, rec); err != nil {
		return engine.Outcome{}, engine.NewError(engine.KindStore, engine.StageIndex, err)
	}

	return engine.Outcome{
		Action:   engine.ActionInsert,
		RecordId: id,
		Tags:     tags,
		Message:  fmt.Sprintf("No matches found. Created record %s with tags: %s", id, engine.FormatTags(tags)),
	}, nil
}

func (e *firstHitEngine) update(ctx context.Context, hit storer.Record, query string, tags []string) (engine.Outcome, error) {
	content := hit.Content + e.options.Separator + query

	vec, err := e.options.Embedder.Embed(ctx, content)
	if err != nil {
		return engine.Outcome{}, engine.NewError(engine.KindEmbedding, engine.StageReembed, err)
	}

	fields := storer.Fields{
		Content:   content,
		Embedding: vec,
		UpdatedAt: e.options.Clock(),
	}

	if err := e.options.Storer.UpdateFields(ctx, hit.Id, fields); err != nil {
		if errors.Is(err, storer.ErrNotFound) {
			return engine.Outcome{}, engine.NewError(engine.KindNotFound, engine.StageUpdate, err)
		}
		return engine.Outcome{}, engine.NewError(engine.KindStore, engine.StageUpdate, err)
	}

	recordTags := hit.Tags
	if len(recordTags) == 0 {
		recordTags = tags
	}

	return engine.Outcome{
		Action:   engine.ActionUpdate,
		RecordId: hit.Id,
		Tags:     recordTags,
		Message:  fmt.Sprintf("Found and updated record %s with new content.", hit.Id),
	}, nil
}

func NewEngine(opts ...engine.Option) engine.Engine {
	options := engine.NewOptions(opts...)

	if options.Storer == nil || options.Embedder == nil {
		panic("missing storer or embedder for first hit engine")
	}

	if options.TopK < 1 {
		panic("top k must be positive for first hit engine")
	}

	e := &firstHitEngine{
		options: options,
		locks:   newTagLocks(),
	}

	return e
}
