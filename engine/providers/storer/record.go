package storer

import "time"

type Record struct {
	Id        string
	SessionId string
	Tags      []string
	Content   string
	Embedding []float32
	Score     float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Query combines an all-of tag filter with a top-K vector ranking.
type Query struct {
	Tags   []string
	Vector []float32
	K      int
	Limit  int
}

// Fields is the partial document written by UpdateFields.
type Fields struct {
	Content   string
	Embedding []float32
	UpdatedAt time.Time
}
