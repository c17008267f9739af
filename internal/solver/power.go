package solver

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/multiplier"
)

// Power returns a^p by repeated squaring, starting from the identity, so
// Power(a, 0) is the identity. a must be square and is not modified. A nil
// mul selects the BLAS kernel.
func Power(ctx context.Context, a *matrix.Matrix, p uint64, mul multiplier.Multiplier) (*matrix.Matrix, error) {
	if a.Rows() != a.Cols() {
		return nil, fmt.Errorf("%w: power of a %dx%d matrix", ErrInvalidInput, a.Rows(), a.Cols())
	}
	if mul == nil {
		mul = defaultMultiplier
	}
	ctx, span := otel.Tracer("solver").Start(ctx, "Power")
	defer span.End()
	span.SetAttributes(attribute.Int("n", a.Rows()), attribute.Int64("power", int64(p)))

	result := matrix.Identity(a.Rows())
	base := a.Clone()
	var err error
	for p > 0 {
		if p&1 == 1 {
			if result, err = mul.Multiply(ctx, result, base); err != nil {
				return nil, err
			}
		}
		p >>= 1
		if p > 0 {
			if base, err = mul.Multiply(ctx, base, base); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}
