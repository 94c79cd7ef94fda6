package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/w-h-a/upserter/engine/providers/storer"
)

type recordResponse struct {
	Id        string    `json:"id"`
	SessionId string    `json:"session_id,omitempty"`
	Tags      []string  `json:"tags"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Records struct {
	upserter Upserter
}

func (h *Records) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := mux.Vars(r)["id"]
	if len(id) == 0 {
		writeError(ctx, w, http.StatusBadRequest, errors.New("record id is required"))
		return
	}

	withEmbedding, _ := strconv.ParseBool(r.URL.Query().Get("embedding"))

	rec, err := h.upserter.Record(ctx, id)
	if errors.Is(err, storer.ErrNotFound) {
		writeError(ctx, w, http.StatusNotFound, err)
		return
	} else if err != nil {
		writeError(ctx, w, http.StatusBadGateway, err)
		return
	}

	rsp := recordResponse{
		Id:        rec.Id,
		SessionId: rec.SessionId,
		Tags:      rec.Tags,
		Content:   rec.Content,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}

	if withEmbedding {
		rsp.Embedding = rec.Embedding
	}

	writeJSON(ctx, w, http.StatusOK, rsp)
}

func NewRecords(upserter Upserter) *Records {
	return &Records{
		upserter: upserter,
	}
}
