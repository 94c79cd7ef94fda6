package storer

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("record not found")
)

type Storer interface {
	Search(ctx context.Context, q Query) ([]Record, error)
	Index(ctx context.Context, id string, rec Record) error
	UpdateFields(ctx context.Context, id string, fields Fields) error
	Get(ctx context.Context, id string) (Record, error)
}
