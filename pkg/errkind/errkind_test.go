package errkind

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	t.Run("sentinel matches any error of its kind", func(t *testing.T) {
		err := New(IncompatibleEvidence, "variable %s", "A")
		assert.True(t, errors.Is(err, ErrIncompatibleEvidence))
		assert.False(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("kind survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("projecting: %w", New(NonProjectable, "numeric parent"))
		assert.Equal(t, NonProjectable, KindOf(err))
		assert.True(t, Is(err, NonProjectable))
	})

	t.Run("foreign errors are unknown", func(t *testing.T) {
		assert.Equal(t, Unknown, KindOf(errors.New("boom")))
		assert.False(t, Is(nil, Unknown))
	})

	t.Run("wrap keeps the cause", func(t *testing.T) {
		cause := errors.New("disk full")
		err := Wrap(DoEditFailed, cause, "add link")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "do edit failed: add link: disk full", err.Error())
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "constraint violation", ConstraintViolation.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.Equal(t, "no finding", ErrNoFinding.Error())
}
