package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"projects", "scriptname"}, ParseTags("projects, scriptname"))
	assert.Equal(t, []string{"a", "b"}, ParseTags(" a ,, b , a ,"))
	assert.Empty(t, ParseTags(""))
	assert.Empty(t, ParseTags(" , "))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"work", "Work"}, NormalizeTags([]string{" work", "Work", "work "}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestFormatTags(t *testing.T) {
	assert.Equal(t, "[groceries, home]", FormatTags([]string{"groceries", "home"}))
	assert.Equal(t, "[]", FormatTags(nil))
}

func TestError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("resolve: %w", NewError(KindStore, StageSearch, cause))

	assert.Equal(t, "resolve: search: store failure: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsKind(err, KindStore))
	assert.False(t, IsKind(err, KindNotFound))

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindStore, kind)

	_, ok = KindOf(cause)
	assert.False(t, ok)
}
