package griddy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorImplementsUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := WrapError("op", ErrCodeSolver, inner)
	assert.ErrorIs(t, err, inner)
}

func TestIsCodeMatchesWrappedError(t *testing.T) {
	err := NewError("op", ErrCodeDecode, "bad frame")
	assert.True(t, IsCode(err, ErrCodeDecode))
	assert.False(t, IsCode(err, ErrCodeSolver))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, WrapError("op", ErrCodeSolver, nil))
}

func TestErrorMessageIncludesOpAndCycle(t *testing.T) {
	err := NewCycleError("Controller.runCycle", 42, ErrCodeDeadlineExceeded, "abandoned")
	assert.Contains(t, err.Error(), "Controller.runCycle")
	assert.Contains(t, err.Error(), "cycle=42")
}
