package engine

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindEmbedding Kind = "embedding failure"
	KindStore     Kind = "store failure"
	KindNotFound  Kind = "not found"
)

type Stage string

const (
	StageEmbed   Stage = "embed"
	StageSearch  Stage = "search"
	StageIndex   Stage = "index"
	StageReembed Stage = "reembed"
	StageUpdate  Stage = "update"
)

// Error reports which collaborator failed and at which step of a resolve.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, stage Stage, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
