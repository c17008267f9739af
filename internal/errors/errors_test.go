package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCodesAreDistinct(t *testing.T) {
	t.Parallel()
	codes := []int{
		ExitSuccess, ExitErrorGeneric, ExitErrorTimeout, ExitErrorMismatch,
		ExitErrorConfig, ExitErrorNotConverged, ExitErrorCanceled,
	}
	seen := make(map[int]bool, len(codes))
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate exit code %d", c)
		seen[c] = true
	}
	assert.Equal(t, 0, ExitSuccess)
	assert.Equal(t, 130, ExitErrorCanceled, "SIGINT convention")
}

func TestConfigError(t *testing.T) {
	t.Parallel()
	err := NewConfigError("unknown mode %q", "fft")
	assert.EqualError(t, err, `unknown mode "fft"`)

	var cfgErr ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.NoError(t, cfgErr.Unwrap())
}

func TestNewFieldError(t *testing.T) {
	t.Parallel()
	err := NewFieldError("damping", 1.5, "damping must be in (0, 1], got %v", 1.5)
	assert.EqualError(t, err, "damping must be in (0, 1], got 1.5")

	var cfgErr ConfigError
	require.ErrorAs(t, err, &cfgErr, "field errors are configuration errors")
	var valErr ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "damping", valErr.Field)
	assert.Equal(t, 1.5, valErr.Value)
	assert.Equal(t, "validation error for 'damping': damping must be in (0, 1], got 1.5", valErr.Error())

	wrapped := WrapError(err, "loading %s", "matcalc.yaml")
	assert.ErrorAs(t, wrapped, &valErr, "wrapping keeps the field reachable")
}

func TestValidationErrorWithoutField(t *testing.T) {
	t.Parallel()
	assert.EqualError(t, NewValidationError("", "empty request", nil), "validation error: empty request")
}

func TestComputationError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  ComputationError
		want string
	}{
		{"bare cause", ComputationError{Cause: errors.New("singular matrix")}, "singular matrix"},
		{"with op", ComputationError{Op: "jacobi", Cause: ErrNotConverged}, "jacobi: did not converge"},
		{"context cause", ComputationError{Op: "strassen", Cause: context.Canceled}, "strassen: context canceled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.EqualError(t, tt.err, tt.want)
			assert.Equal(t, tt.err.Cause, tt.err.Unwrap())
		})
	}

	chain := WrapError(ComputationError{Op: "pagerank", Cause: ErrNotConverged}, "mode %s", "pagerank")
	assert.ErrorIs(t, chain, ErrNotConverged)
	var compErr ComputationError
	require.ErrorAs(t, chain, &compErr)
	assert.Equal(t, "pagerank", compErr.Op)
}

func TestServerError(t *testing.T) {
	t.Parallel()
	cause := errors.New("bind failed")
	err := NewServerError("cannot listen on :8080", cause)
	assert.EqualError(t, err, "cannot listen on :8080: bind failed")
	assert.ErrorIs(t, err, cause)

	bare := ServerError{Message: "server stopped"}
	assert.EqualError(t, bare, "server stopped")
	assert.NoError(t, bare.Unwrap())
}

func TestWrapError(t *testing.T) {
	t.Parallel()
	assert.NoError(t, WrapError(nil, "ignored"))

	err := WrapError(context.DeadlineExceeded, "sweep n=%d", 512)
	assert.EqualError(t, err, "sweep n=512: context deadline exceeded")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsContextError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want bool
	}{
		{context.Canceled, true},
		{context.DeadlineExceeded, true},
		{fmt.Errorf("multiply: %w", context.Canceled), true},
		{ComputationError{Op: "blas", Cause: context.DeadlineExceeded}, true},
		{ErrNotConverged, false},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsContextError(tt.err), "IsContextError(%v)", tt.err)
	}
}
