package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/w-h-a/upserter/engine/providers/storer"
	getsafe "github.com/w-h-a/upserter/util/get_safe"
)

type opensearchStorer struct {
	options     storer.Options
	client      *http.Client
	vectorField string
	refresh     string
}

func (s *opensearchStorer) Search(ctx context.Context, q storer.Query) ([]storer.Record, error) {
	limit := storer.Effective(q)
	if limit < 1 || len(q.Tags) == 0 {
		return nil, nil
	}

	k := q.K
	if k < 1 {
		k = limit
	}

	filter := make([]map[string]any, 0, len(q.Tags))
	for _, tag := range q.Tags {
		filter = append(filter, map[string]any{
			"term": map[string]any{"tags": tag},
		})
	}

	req := map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": filter,
				"must": []map[string]any{
					{
						"knn": map[string]any{
							s.vectorField: map[string]any{
								"vector": q.Vector,
								"k":      k,
							},
						},
					},
				},
			},
		},
	}

	var rsp searchResponse

	path := fmt.Sprintf("/%s/_search", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, err
	}

	records := make([]storer.Record, 0, len(rsp.Hits.Hits))

	for _, hit := range rsp.Hits.Hits {
		rec := s.toRecord(hit.Id, hit.Source)
		rec.Score = float32(hit.Score)
		records = append(records, rec)
	}

	return records, nil
}

func (s *opensearchStorer) Index(ctx context.Context, id string, rec storer.Record) error {
	doc := map[string]any{
		"id":          id,
		"tags":        rec.Tags,
		"content":     rec.Content,
		s.vectorField: rec.Embedding,
		"created":     epochSeconds(rec.CreatedAt),
		"updated":     epochSeconds(rec.UpdatedAt),
		"session":     nil,
	}

	if len(rec.SessionId) > 0 {
		doc["session"] = rec.SessionId
	}

	path := fmt.Sprintf("/%s/_doc/%s?refresh=%s", url.PathEscape(s.options.Collection), url.PathEscape(id), url.QueryEscape(s.refresh))

	return s.do(ctx, http.MethodPut, path, doc, nil)
}

func (s *opensearchStorer) UpdateFields(ctx context.Context, id string, fields storer.Fields) error {
	req := map[string]any{
		"doc": map[string]any{
			"content":     fields.Content,
			"updated":     epochSeconds(fields.UpdatedAt),
			s.vectorField: fields.Embedding,
		},
	}

	path := fmt.Sprintf("/%s/_update/%s?refresh=%s", url.PathEscape(s.options.Collection), url.PathEscape(id), url.QueryEscape(s.refresh))

	if err := s.do(ctx, http.MethodPost, path, req, nil); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return storer.ErrNotFound
		}
		return err
	}

	return nil
}

func (s *opensearchStorer) Get(ctx context.Context, id string) (storer.Record, error) {
	var rsp getResponse

	path := fmt.Sprintf("/%s/_doc/%s", url.PathEscape(s.options.Collection), url.PathEscape(id))

	if err := s.do(ctx, http.MethodGet, path, nil, &rsp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return storer.Record{}, storer.ErrNotFound
		}
		return storer.Record{}, err
	}

	if !rsp.Found {
		return storer.Record{}, storer.ErrNotFound
	}

	return s.toRecord(rsp.Id, rsp.Source), nil
}

func (s *opensearchStorer) toRecord(id string, source map[string]any) storer.Record {
	return storer.Record{
		Id:        id,
		SessionId: getsafe.String(source, "session"),
		Tags:      getsafe.Strings(source, "tags"),
		Content:   getsafe.String(source, "content"),
		Embedding: getsafe.Float32s(source, s.vectorField),
		CreatedAt: timestamp(source, "created"),
		UpdatedAt: timestamp(source, "updated"),
	}
}

func (s *opensearchStorer) do(ctx context.Context, method string, path string, req any, rsp any) error {
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

	if auth, ok := basicAuthFrom(s.options.Context); ok {
		request.SetBasicAuth(auth.username, auth.password)
	} else if len(s.options.ApiKey) > 0 {
		request.Header.Set("Authorization", "ApiKey "+s.options.ApiKey)
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

func (s *opensearchStorer) configure() error {
	path := fmt.Sprintf("/%s", url.PathEscape(s.options.Collection))

	err := s.do(context.Background(), http.MethodHead, path, nil, nil)
	if err == nil {
		return nil
	}

	var se *statusError
	if !errors.As(err, &se) || se.code != http.StatusNotFound {
		return err
	}

	// without a dimension the index cannot be mapped, so it is left to the operator
	if s.options.VectorSize == 0 {
		return nil
	}

	return s.createIndex()
}

func (s *opensearchStorer) createIndex() error {
	spaceType := "cosinesimil"
	switch s.options.Distance {
	case "Euclid", "l2":
		spaceType = "l2"
	case "Dot", "innerproduct":
		spaceType = "innerproduct"
	}

	req := map[string]any{
		"settings": map[string]any{
			"index": map[string]any{
				"knn": true,
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":      map[string]any{"type": "keyword"},
				"tags":    map[string]any{"type": "keyword"},
				"content": map[string]any{"type": "text"},
				"session": map[string]any{"type": "keyword"},
				"created": map[string]any{"type": "double"},
				"updated": map[string]any{"type": "double"},
				s.vectorField: map[string]any{
					"type":      "knn_vector",
					"dimension": s.options.VectorSize,
					"method": map[string]any{
						"name":       "hnsw",
						"space_type": spaceType,
						"engine":     "lucene",
					},
				},
			},
		},
	}

	path := fmt.Sprintf("/%s", url.PathEscape(s.options.Collection))

	return s.do(context.Background(), http.MethodPut, path, req, nil)
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	if len(options.Location) == 0 || len(options.Collection) == 0 {
		panic("missing location or collection for opensearch storer")
	}

	s := &opensearchStorer{
		options:     options,
		client:      &http.Client{Timeout: 15 * time.Second},
		vectorField: "embedding",
		refresh:     "true",
	}

	if field, ok := VectorFieldFrom(options.Context); ok && len(field) > 0 {
		s.vectorField = field
	}

	if policy, ok := RefreshFrom(options.Context); ok && len(policy) > 0 {
		s.refresh = policy
	}

	if err := s.configure(); err != nil {
		panic(err)
	}

	return s
}
