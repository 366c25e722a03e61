package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeBadRequest, "bad")
		assert.True(t, HasCode(err, CodeBadRequest))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches wrapped code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeUnauthorized, "nope")
		err := fmt.Errorf("verify: %w", Wrap(inner, CodeInternal, "outer"))
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeUnauthorized))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("x"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("x")))
	})
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))

	cause := errors.New("dial tcp: refused")
	err := Wrap(cause, CodeUnavailable, "client registry unavailable")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeUnavailable, CodeOf(err))
	assert.Equal(t, "client registry unavailable", MessageOf(err))
}
