package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/multiplier"
)

// onesKernel returns an all-ones product of the right shape.
type onesKernel struct{}

func (onesKernel) Name() string { return "ones" }

func (onesKernel) Validate(lhs, rhs *matrix.Matrix) error {
	if lhs.Cols() != rhs.Rows() {
		return multiplier.ErrShapeMismatch
	}
	return nil
}

func (onesKernel) Multiply(lhs, rhs *matrix.Matrix) *matrix.Matrix {
	out := matrix.New(lhs.Rows(), rhs.Cols())
	for i := 0; i < out.Rows(); i++ {
		for j := 0; j < out.Cols(); j++ {
			out.Set(i, j, 1)
		}
	}
	return out
}

func newTestFactory(t *testing.T) multiplier.Factory {
	t.Helper()
	f := multiplier.NewDefaultFactory(multiplier.Options{Threshold: 4})
	require.NoError(t, f.Register("ones", func() multiplier.Kernel { return onesKernel{} }))
	return f
}

func TestMultiply(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		algo      string
		n         int
		maxSize   int
		wantErr   error
		anyErr    bool
		wantTrace float64
	}{
		{name: "successful product", algo: "ones", n: 5, maxSize: 10, wantTrace: 5},
		{name: "at the limit", algo: "ones", n: 10, maxSize: 10, wantTrace: 10},
		{name: "no limit", algo: "ones", n: 40, maxSize: 0, wantTrace: 40},
		{name: "exceeds max size", algo: "ones", n: 11, maxSize: 10, wantErr: ErrMaxSizeExceeded},
		{name: "zero size", algo: "ones", n: 0, maxSize: 10, wantErr: ErrInvalidSize},
		{name: "unknown algorithm", algo: "unknown", n: 4, maxSize: 10, anyErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := NewMultiplyService(newTestFactory(t), tc.maxSize)
			product, err := svc.Multiply(context.Background(), tc.algo, tc.n, 42)
			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, product)
			case tc.anyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.n, product.Rows())
				assert.Equal(t, tc.wantTrace, product.Trace())
			}
		})
	}
}

func TestMultiplyMatchesDefinition(t *testing.T) {
	t.Parallel()
	svc := NewMultiplyService(multiplier.NewDefaultFactory(multiplier.Options{Threshold: 4}), 0)
	ctx := context.Background()

	want, err := svc.Multiply(ctx, "definition", 33, 7)
	require.NoError(t, err)
	for _, algo := range []string{"blas", "strassen", "strassen-parallel"} {
		got, err := svc.Multiply(ctx, algo, 33, 7)
		require.NoError(t, err, algo)
		assert.LessOrEqual(t, matrix.MaxRelDiff(want, got), 1e-4, algo)
	}
}

func TestMultiplyCanceled(t *testing.T) {
	t.Parallel()
	svc := NewMultiplyService(newTestFactory(t), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Multiply(ctx, "ones", 8, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "maximum matrix size exceeded", ErrMaxSizeExceeded.Error())
	assert.Equal(t, "matrix size must be at least 1", ErrInvalidSize.Error())
}
