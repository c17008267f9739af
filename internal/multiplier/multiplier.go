// Package multiplier provides the matrix multiplication strategies: the
// definition-based reference kernel, a kernel delegated to BLAS sgemm, and
// recursive Strassen-Winograd multiplication built on matrix views.
//
// The kernel functions (Definition, Delegated, Strassen) treat shape errors
// as contract violations and panic. The Multiplier values handed out by the
// Factory validate shapes first and return errors, and record metrics,
// traces and debug logs around each product.
package multiplier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agbru/matcalc/internal/matrix"
)

var (
	// ErrShapeMismatch is returned when the operands cannot be multiplied by
	// the selected strategy.
	ErrShapeMismatch = errors.New("operand shapes do not conform")
	// ErrNilOperand is returned when an operand is nil.
	ErrNilOperand = errors.New("nil operand")
)

var (
	multiplicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcalc_multiplications_total",
			Help: "Total number of matrix multiplications by algorithm and status.",
		},
		[]string{"algorithm", "status"},
	)
	multiplicationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matcalc_multiplication_duration_seconds",
			Help:    "Duration of matrix multiplications in seconds.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 12),
		},
		[]string{"algorithm"},
	)
)

// Kernel is a bare multiplication strategy. Multiply may panic on operands
// that fail Validate.
type Kernel interface {
	Name() string
	Validate(lhs, rhs *matrix.Matrix) error
	Multiply(lhs, rhs *matrix.Matrix) *matrix.Matrix
}

// Multiplier is a named, instrumented multiplication strategy.
type Multiplier interface {
	// Name returns the registry key of the strategy.
	Name() string
	// Multiply returns lhs x rhs, or an error if the operands are invalid
	// or ctx is already done. A started product is not interrupted.
	Multiply(ctx context.Context, lhs, rhs *matrix.Matrix) (*matrix.Matrix, error)
}

// InstrumentedMultiplier wraps a Kernel with validation, metrics, tracing
// and logging.
type InstrumentedMultiplier struct {
	kernel Kernel
}

var _ Multiplier = (*InstrumentedMultiplier)(nil)

// Instrument wraps k. It panics if k is nil.
func Instrument(k Kernel) *InstrumentedMultiplier {
	if k == nil {
		panic("multiplier: Instrument called with nil kernel")
	}
	return &InstrumentedMultiplier{kernel: k}
}

// Name returns the kernel name.
func (m *InstrumentedMultiplier) Name() string {
	return m.kernel.Name()
}

// Multiply validates the operands and runs the kernel.
func (m *InstrumentedMultiplier) Multiply(ctx context.Context, lhs, rhs *matrix.Matrix) (*matrix.Matrix, error) {
	name := m.kernel.Name()
	ctx, span := otel.Tracer("multiplier").Start(ctx, "Multiply")
	defer span.End()

	fail := func(err error) (*matrix.Matrix, error) {
		multiplicationsTotal.WithLabelValues(name, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if lhs == nil || rhs == nil {
		return fail(ErrNilOperand)
	}
	span.SetAttributes(
		attribute.String("algorithm", name),
		attribute.Int("lhs.rows", lhs.Rows()),
		attribute.Int("lhs.cols", lhs.Cols()),
		attribute.Int("rhs.cols", rhs.Cols()),
	)
	if err := m.kernel.Validate(lhs, rhs); err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	start := time.Now()
	result := m.kernel.Multiply(lhs, rhs)
	elapsed := time.Since(start)

	multiplicationsTotal.WithLabelValues(name, "success").Inc()
	multiplicationDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	log.Debug().
		Str("algorithm", name).
		Int("rows", lhs.Rows()).
		Int("inner", lhs.Cols()).
		Int("cols", rhs.Cols()).
		Dur("duration", elapsed).
		Msg("multiplication completed")
	return result, nil
}

func validateConformable(lhs, rhs *matrix.Matrix) error {
	if lhs.Cols() != rhs.Rows() {
		return fmt.Errorf("%w: %dx%d * %dx%d", ErrShapeMismatch, lhs.Rows(), lhs.Cols(), rhs.Rows(), rhs.Cols())
	}
	return nil
}

// DefinitionKernel multiplies by the definition of the matrix product.
type DefinitionKernel struct{}

func (DefinitionKernel) Name() string { return "definition" }

func (DefinitionKernel) Validate(lhs, rhs *matrix.Matrix) error {
	return validateConformable(lhs, rhs)
}

func (DefinitionKernel) Multiply(lhs, rhs *matrix.Matrix) *matrix.Matrix {
	return DefinitionProduct(lhs, rhs)
}

// BLASKernel delegates to the BLAS sgemm routine.
type BLASKernel struct{}

func (BLASKernel) Name() string { return "blas" }

func (BLASKernel) Validate(lhs, rhs *matrix.Matrix) error {
	return validateConformable(lhs, rhs)
}

func (BLASKernel) Multiply(lhs, rhs *matrix.Matrix) *matrix.Matrix {
	return Delegated(lhs, rhs)
}

// StrassenKernel runs Strassen-Winograd with fixed options.
type StrassenKernel struct {
	Opts Options
}

func (k StrassenKernel) Name() string {
	if k.Opts.Parallel {
		return "strassen-parallel"
	}
	return "strassen"
}

func (StrassenKernel) Validate(lhs, rhs *matrix.Matrix) error {
	if lhs.Rows() != lhs.Cols() || rhs.Rows() != rhs.Cols() {
		return fmt.Errorf("%w: Strassen needs square operands, got %dx%d and %dx%d",
			ErrShapeMismatch, lhs.Rows(), lhs.Cols(), rhs.Rows(), rhs.Cols())
	}
	return validateConformable(lhs, rhs)
}

func (k StrassenKernel) Multiply(lhs, rhs *matrix.Matrix) *matrix.Matrix {
	return Strassen(lhs, rhs, k.Opts)
}
