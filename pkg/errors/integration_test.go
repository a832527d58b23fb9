package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prErrors "github.com/ezoic/plantreco/pkg/errors"
)

func TestErrorWrappingCompatibility(t *testing.T) {
	originalErr := prErrors.NewNotFittedError("TestModel", "Predict")
	wrappedErr := fmt.Errorf("pipeline step failed: %w", originalErr)

	assert.True(t, errors.Is(wrappedErr, originalErr))
	assert.True(t, errors.Is(wrappedErr, prErrors.ErrNotFitted))

	var notFittedErr *prErrors.NotFittedError
	require.True(t, errors.As(wrappedErr, &notFittedErr))
	assert.Equal(t, "TestModel", notFittedErr.ModelName)
}

func TestCombinedErrorTypes(t *testing.T) {
	stdErr := fmt.Errorf("standard error")
	customErr := prErrors.NewModelError("TestOp", "test failure", stdErr)
	wrappedErr := fmt.Errorf("operation context: %w", customErr)

	assert.True(t, errors.Is(wrappedErr, stdErr), "failed to find standard error in chain")

	var modelErr *prErrors.ModelError
	require.True(t, errors.As(wrappedErr, &modelErr))
	assert.Equal(t, stdErr, modelErr.Unwrap())
}

func TestSentinelErrors(t *testing.T) {
	err := prErrors.NewModelError("TestOp", "empty data", prErrors.ErrEmptyData)
	assert.True(t, errors.Is(err, prErrors.ErrEmptyData))

	wrappedErr := prErrors.Wrap(err, "preprocessing failed")
	assert.True(t, prErrors.Is(wrappedErr, prErrors.ErrEmptyData))

	assert.True(t, errors.Is(prErrors.NewDimensionError("op", 1, 2, 0), prErrors.ErrDimensionMismatch))
	assert.True(t, errors.Is(prErrors.NewValueError("op", "bad"), prErrors.ErrInvalidInput))
	assert.True(t, errors.Is(prErrors.NewValidationError("note", "out of range", 9), prErrors.ErrInvalidInput))
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer prErrors.Recover(&err, "Panicky.Run")
		var m map[string]int
		m["boom"] = 1
		return nil
	}

	err := run()
	require.Error(t, err)

	var modelErr *prErrors.ModelError
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, "Panicky.Run", modelErr.Op)
	assert.Contains(t, err.Error(), "panic recovered")
}

func TestRecoverNoPanic(t *testing.T) {
	run := func() (err error) {
		defer prErrors.Recover(&err, "Calm.Run")
		return nil
	}
	assert.NoError(t, run())
}
