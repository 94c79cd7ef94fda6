package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/w-h-a/upserter/engine/providers/storer"
	getsafe "github.com/w-h-a/upserter/util/get_safe"
)

type qdrantStorer struct {
	options storer.Options
	client  *http.Client
}

func (s *qdrantStorer) Search(ctx context.Context, q storer.Query) ([]storer.Record, error) {
	limit := storer.Effective(q)
	if limit < 1 || len(q.Tags) == 0 {
		return nil, nil
	}

	must := make([]map[string]any, 0, len(q.Tags))
	for _, tag := range q.Tags {
		must = append(must, map[string]any{
			"key":   "tags",
			"match": map[string]any{"value": tag},
		})
	}

	req := map[string]any{
		"vector":       q.Vector,
		"limit":        limit,
		"with_vector":  true,
		"with_payload": true,
		"filter": map[string]any{
			"must": must,
		},
	}

	var rsp qdrantEnvelope[[]qdrantPoint]

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, err
	}

	results := make([]storer.Record, 0, len(rsp.Result))

	for _, point := range rsp.Result {
		results = append(results, toRecord(point))
	}

	return results, nil
}

func (s *qdrantStorer) Index(ctx context.Context, id string, rec storer.Record) error {
	rec.Id = id
	return s.upsert(ctx, rec)
}

func (s *qdrantStorer) UpdateFields(ctx context.Context, id string, fields storer.Fields) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	rec.Content = fields.Content
	rec.Embedding = fields.Embedding
	rec.UpdatedAt = fields.UpdatedAt

	return s.upsert(ctx, rec)
}

func (s *qdrantStorer) Get(ctx context.Context, id string) (storer.Record, error) {
	var rsp qdrantEnvelope[qdrantPoint]

	path := fmt.Sprintf("/collections/%s/points/%s", url.PathEscape(s.options.Collection), url.PathEscape(id))

	if err := s.do(ctx, http.MethodGet, path, nil, &rsp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return storer.Record{}, storer.ErrNotFound
		}
		return storer.Record{}, err
	}

	return toRecord(rsp.Result), nil
}

func (s *qdrantStorer) upsert(ctx context.Context, rec storer.Record) error {
	payload := map[string]any{
		"session_id": rec.SessionId,
		"tags":       rec.Tags,
		"content":    rec.Content,
		"created_at": rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	point := map[string]any{
		"id":      rec.Id,
		"vector":  rec.Embedding,
		"payload": payload,
	}

	req := map[string]any{
		"points": []map[string]any{point},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

func toRecord(point qdrantPoint) storer.Record {
	payload := point.Payload

	return storer.Record{
		Id:        point.Id,
		SessionId: getsafe.String(payload, "session_id"),
		Tags:      getsafe.Strings(payload, "tags"),
		Content:   getsafe.String(payload, "content"),
		Embedding: point.Vector,
		Score:     float32(point.Score),
		CreatedAt: getsafe.Time(payload, "created_at"),
		UpdatedAt: getsafe.Time(payload, "updated_at"),
	}
}

func (s *qdrantStorer) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := s.options.Location + path
	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(s.options.ApiKey) > 0 {
		request.Header.Set("api-key", s.options.ApiKey)
		request.Header.Set("Authorization", "Bearer "+s.options.ApiKey)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return &statusError{code: response.StatusCode, body: string(payload)}
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}

func (s *qdrantStorer) configure() error {
	exists, err := s.collectionExists()
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return s.createCollection()
}

func (s *qdrantStorer) collectionExists() (bool, error) {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	err := s.do(context.Background(), http.MethodGet, path, nil, &rsp)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (s *qdrantStorer) createCollection() error {
	distance := s.options.Distance
	if len(distance) == 0 {
		distance = "Cosine"
	}
	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.options.VectorSize,
			"distance": distance,
		},
	}

	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(context.Background(), http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") {
		return errors.New(rsp.Status.Error)
	}

	return s.createTagIndex()
}

func (s *qdrantStorer) createTagIndex() error {
	req := map[string]any{
		"field_name":   "tags",
		"field_schema": "keyword",
	}

	path := fmt.Sprintf("/collections/%s/index?wait=true", url.PathEscape(s.options.Collection))

	return s.do(context.Background(), http.MethodPut, path, req, nil)
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	if len(options.Location) == 0 ||
		len(options.Collection) == 0 ||
		options.VectorSize == 0 {
		panic("missing location, collection, or vector size for qdrant storer")
	}

	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	s := &qdrantStorer{
		options: options,
		client:  client,
	}

	if err := s.configure(); err != nil {
		panic(err)
	}

	return s
}
