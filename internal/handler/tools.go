package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/w-h-a/upserter/engine"
	toolhandler "github.com/w-h-a/upserter/tool_handler"
	getsafe "github.com/w-h-a/upserter/util/get_safe"
)

// Tools serves local tool handlers as a UTCP HTTP provider: an empty body
// returns the manual, anything else is a call.
type Tools struct {
	handlers []toolhandler.ToolHandler
	metrics  *Metrics
}

func (h *Tools) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err))
		return
	}
	defer r.Body.Close()

	if len(raw) == 0 {
		writeJSON(ctx, w, http.StatusOK, h.manual())
		return
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		writeError(ctx, w, http.StatusBadRequest, errors.New("invalid json"))
		return
	}

	th, ok := h.match(args)
	if !ok {
		writeError(ctx, w, http.StatusBadRequest, errors.New("unknown tool signature"))
		return
	}

	name := th.Spec().Name

	slog.DebugContext(ctx, "executing tool", "tool", name)

	rsp, err := th.Invoke(ctx, toolhandler.ToolRequest{Arguments: args})
	if h.metrics != nil {
		h.metrics.Observe(outcomeOf(rsp), err)
	}
	if err != nil {
		status := statusOf(err)
		if _, ok := engine.KindOf(err); !ok {
			status = http.StatusBadRequest
		}
		writeError(ctx, w, status, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]any{"result": rsp.Content})
}

func (h *Tools) manual() map[string]any {
	tools := make([]map[string]any, 0, len(h.handlers))
	for _, th := range h.handlers {
		spec := th.Spec()
		tools = append(tools, map[string]any{
			"name":        spec.Name,
			"description": spec.Description,
			"inputs":      spec.InputSchema,
		})
	}
	return map[string]any{
		"version": "1.0",
		"tools":   tools,
	}
}

// match picks the first handler whose required arguments are all present.
func (h *Tools) match(args map[string]any) (toolhandler.ToolHandler, bool) {
	for _, th := range h.handlers {
		required := getsafe.Strings(th.Spec().InputSchema, "required")
		found := true
		for _, key := range required {
			if _, ok := args[key]; !ok {
				found = false
				break
			}
		}
		if found {
			return th, true
		}
	}
	return nil, false
}

func outcomeOf(rsp toolhandler.ToolResponse) engine.Outcome {
	return engine.Outcome{
		Action:   engine.Action(rsp.Metadata["action"]),
		RecordId: rsp.Metadata["record_id"],
		Message:  rsp.Content,
	}
}

func NewTools(metrics *Metrics, handlers ...toolhandler.ToolHandler) *Tools {
	return &Tools{
		handlers: handlers,
		metrics:  metrics,
	}
}
