package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("message without cause", func(t *testing.T) {
		err := New(CodeNotFound, "registration not found")
		assert.Equal(t, "registration not found", err.Error())
		assert.True(t, Is(err, CodeNotFound))
	})

	t.Run("wrap keeps cause reachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeInternal, "failed to list registrations")
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("HasCode walks nested domain errors", func(t *testing.T) {
		inner := New(CodeConflict, "duplicate")
		outer := Wrap(inner, CodeInternal, "save failed")
		assert.True(t, HasCode(outer, CodeConflict))
		assert.True(t, HasCode(outer, CodeInternal))
		assert.False(t, Is(outer, CodeConflict))
	})

	t.Run("fmt wrapping is transparent", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeBadRequest, "image required"))
		de, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, CodeBadRequest, de.Code)
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}
