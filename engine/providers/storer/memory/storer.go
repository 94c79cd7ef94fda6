package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/w-h-a/upserter/engine/providers/storer"
)

type memoryStorer struct {
	options storer.Options
	records map[string]storer.Record
	mtx     sync.RWMutex
}

func (s *memoryStorer) Search(ctx context.Context, q storer.Query) ([]storer.Record, error) {
	limit := storer.Effective(q)
	if limit < 1 || len(q.Tags) == 0 {
		return nil, nil
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	candidates := make([]storer.Record, 0, len(s.records))

	for _, rec := range s.records {
		if !storer.HasAllTags(rec.Tags, q.Tags) {
			continue
		}
		rec = storer.Clone(rec)
		rec.Score = float32(storer.CosineSimilarity(q.Vector, rec.Embedding))
		candidates = append(candidates, rec)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

func (s *memoryStorer) Index(ctx context.Context, id string, rec storer.Record) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	rec = storer.Clone(rec)
	rec.Id = id
	rec.Score = 0

	s.records[id] = rec

	return nil
}

func (s *memoryStorer) UpdateFields(ctx context.Context, id string, fields storer.Fields) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return storer.ErrNotFound
	}

	cpy := make([]float32, len(fields.Embedding))
	copy(cpy, fields.Embedding)

	rec.Content = fields.Content
	rec.Embedding = cpy
	rec.UpdatedAt = fields.UpdatedAt

	s.records[id] = rec

	return nil
}

func (s *memoryStorer) Get(ctx context.Context, id string) (storer.Record, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return storer.Record{}, storer.ErrNotFound
	}

	return storer.Clone(rec), nil
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	s := &memoryStorer{
		options: options,
		records: map[string]storer.Record{},
		mtx:     sync.RWMutex{},
	}

	return s
}
