package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindOf(t *testing.T) {
	err := NewError(KindBusinessRule, "order %s already shipped", "ORD-1")
	assert.Equal(t, KindBusinessRule, KindOf(err))
	assert.True(t, IsKind(err, KindBusinessRule))
	assert.False(t, IsKind(err, KindTimeout))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, KindBusinessRule, KindOf(wrapped))
}

func TestErrorKindOfUntyped(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestWrapErrorUnwraps(t *testing.T) {
	inner := errors.New("connection reset")
	err := WrapError(KindInternal, inner, "saving conversation")
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "saving conversation")
	assert.Contains(t, err.Error(), "connection reset")
}
