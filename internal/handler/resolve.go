package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/w-h-a/upserter/engine"
)

type resolveRequest struct {
	Query     string          `json:"query"`
	Tags      json.RawMessage `json:"tags"`
	SessionId string          `json:"session_id"`
}

// parseTags accepts either "a, b" or ["a", "b"]. An empty list is allowed,
// a missing one is not.
func (r resolveRequest) parseTags() ([]string, error) {
	if len(r.Tags) == 0 || string(r.Tags) == "null" {
		return nil, errors.New("tags is required")
	}

	var raw string
	if err := json.Unmarshal(r.Tags, &raw); err == nil {
		return engine.ParseTags(raw), nil
	}

	var list []string
	if err := json.Unmarshal(r.Tags, &list); err != nil {
		return nil, fmt.Errorf("tags must be a string or an array of strings")
	}

	return engine.NormalizeTags(list), nil
}

type Resolve struct {
	upserter Upserter
	metrics  *Metrics
}

func (h *Resolve) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if len(strings.TrimSpace(req.Query)) == 0 {
		writeError(ctx, w, http.StatusBadRequest, errors.New("query is required"))
		return
	}

	tags, err := req.parseTags()
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	outcome, err := h.upserter.Resolve(ctx, req.Query, tags, req.SessionId)
	if h.metrics != nil {
		h.metrics.Observe(outcome, err)
	}
	if err != nil {
		writeError(ctx, w, statusOf(err), err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, outcome)
}

func NewResolve(upserter Upserter, metrics *Metrics) *Resolve {
	return &Resolve{
		upserter: upserter,
		metrics:  metrics,
	}
}
