package matrix

import (
	"fmt"
	"math/rand/v2"

	"github.com/agbru/matcalc/internal/parallel"
)

// workerRand returns the generator owned by one parallel worker. Streams are
// keyed by (seed, worker) so workers never share generator state.
func workerRand(seed uint64, worker int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(worker)))
}

// Randomize fills m with values drawn uniformly from [0, 1).
func (m *Matrix) Randomize(seed uint64) *Matrix {
	return m.RandomizeRange(seed, 0, 1)
}

// RandomizeRange fills m with values drawn uniformly from [lo, hi). The
// output depends only on seed, the shape of m and the configured worker
// count.
func (m *Matrix) RandomizeRange(seed uint64, lo, hi float32) *Matrix {
	m.check()
	span := hi - lo
	parallel.ForWorker(m.rows, func(worker, rlo, rhi int) {
		rng := workerRand(seed, worker)
		for r := rlo; r < rhi; r++ {
			row := m.Row(r)
			for c := range row {
				row[c] = lo + span*rng.Float32()
			}
		}
	})
	return m
}

// RandomGraph fills m with the adjacency matrix of a random directed,
// unweighted graph: each cell is 1 with probability p and 0 otherwise.
// Self-loops are not removed.
func (m *Matrix) RandomGraph(seed uint64, p float64) *Matrix {
	if p < 0 || p > 1 {
		panic(fmt.Sprintf("matrix: edge probability %v outside [0, 1]", p))
	}
	m.check()
	parallel.ForWorker(m.rows, func(worker, rlo, rhi int) {
		rng := workerRand(seed, worker)
		for r := rlo; r < rhi; r++ {
			row := m.Row(r)
			for c := range row {
				if rng.Float64() < p {
					row[c] = 1
				} else {
					row[c] = 0
				}
			}
		}
	})
	return m
}

// Zero sets every cell of m to zero.
func (m *Matrix) Zero() *Matrix {
	m.check()
	parallel.For(m.rows, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			clear(m.Row(r))
		}
	})
	return m
}

// SetIdentity writes ones on the main diagonal and zeros elsewhere.
func (m *Matrix) SetIdentity() *Matrix {
	m.Zero()
	return m.SetDiagonal(1)
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Matrix {
	return New(n, n).SetDiagonal(1)
}

// SetDiagonal sets every main-diagonal cell to v.
func (m *Matrix) SetDiagonal(v float32) *Matrix {
	m.check()
	for i := range min(m.rows, m.cols) {
		m.Set(i, i, v)
	}
	return m
}
