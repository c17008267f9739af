// Package service holds the request-level logic shared by the HTTP server:
// size validation, strategy lookup and operand generation.
package service

import (
	"context"
	"errors"

	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/multiplier"
	"github.com/agbru/matcalc/internal/orchestration"
)

var (
	// ErrMaxSizeExceeded is returned when n exceeds the configured maximum.
	ErrMaxSizeExceeded = errors.New("maximum matrix size exceeded")
	// ErrInvalidSize is returned for n < 1.
	ErrInvalidSize = errors.New("matrix size must be at least 1")
)

// Service multiplies random square matrices on behalf of a caller.
type Service interface {
	// Multiply returns the product of two n x n matrices filled from seed
	// and seed+1 by the strategy registered as algo.
	Multiply(ctx context.Context, algo string, n int, seed uint64) (*matrix.Matrix, error)
}

// MultiplyService resolves strategies through a multiplier.Factory.
type MultiplyService struct {
	factory multiplier.Factory
	maxSize int
}

var _ Service = (*MultiplyService)(nil)

// NewMultiplyService returns a service backed by factory. maxSize caps n;
// 0 means no limit.
func NewMultiplyService(factory multiplier.Factory, maxSize int) *MultiplyService {
	return &MultiplyService{factory: factory, maxSize: maxSize}
}

// Multiply validates n, looks the strategy up and runs the product.
func (s *MultiplyService) Multiply(ctx context.Context, algo string, n int, seed uint64) (*matrix.Matrix, error) {
	if n < 1 {
		return nil, ErrInvalidSize
	}
	if s.maxSize > 0 && n > s.maxSize {
		return nil, ErrMaxSizeExceeded
	}

	m, err := s.factory.Get(algo)
	if err != nil {
		return nil, err
	}
	lhs, rhs, err := orchestration.RandomOperands(ctx, n, seed)
	if err != nil {
		return nil, err
	}
	return m.Multiply(ctx, lhs, rhs)
}
