package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/w-h-a/upserter/engine"
	"github.com/w-h-a/upserter/engine/providers/storer"
)

// Upserter is the part of the library facade the HTTP surface depends on.
type Upserter interface {
	Resolve(ctx context.Context, query string, tags []string, sessionId string) (engine.Outcome, error)
	Record(ctx context.Context, id string) (storer.Record, error)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Stage string `json:"stage,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	rsp := errorResponse{Error: err.Error()}

	if e, ok := asEngineError(err); ok {
		rsp.Kind = string(e.Kind)
		rsp.Stage = string(e.Stage)
	}

	writeJSON(ctx, w, status, rsp)
}

func asEngineError(err error) (*engine.Error, bool) {
	var e *engine.Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func statusOf(err error) int {
	kind, ok := engine.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch kind {
	case engine.KindNotFound:
		return http.StatusConflict
	case engine.KindEmbedding, engine.KindStore:
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
