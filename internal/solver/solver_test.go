package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/multiplier"
)

func TestPower_ZeroIsIdentity(t *testing.T) {
	t.Parallel()
	g := matrix.New(12, 12).RandomGraph(3, 0.4)
	got, err := Power(context.Background(), g, 0, nil)
	require.NoError(t, err)
	assert.True(t, matrix.Equal(matrix.Identity(12), got))
}

func TestPower_Fibonacci(t *testing.T) {
	t.Parallel()
	q := matrix.FromRows([][]float32{{1, 1}, {1, 0}})
	got, err := Power(context.Background(), q, 10, multiplier.Instrument(multiplier.DefinitionKernel{}))
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{89, 55}, {55, 34}}, got.ToRows())
	assert.Equal(t, [][]float32{{1, 1}, {1, 0}}, q.ToRows(), "input must not change")

	one, err := Power(context.Background(), q, 1, nil)
	require.NoError(t, err)
	assert.True(t, matrix.Equal(q, one))
}

func TestPower_MatchesRepeatedMultiplication(t *testing.T) {
	t.Parallel()
	a := matrix.New(8, 8).RandomGraph(1, 0.3)
	want := matrix.Identity(8)
	for i := 0; i < 7; i++ {
		want = multiplier.DefinitionProduct(want, a)
	}
	got, err := Power(context.Background(), a, 7, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, matrix.MaxRelDiff(want, got), 1e-5)
}

func TestPower_Errors(t *testing.T) {
	t.Parallel()
	_, err := Power(context.Background(), matrix.New(2, 3), 2, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Power(ctx, matrix.Identity(2), 3, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreparePageRank(t *testing.T) {
	t.Parallel()
	// Node 2 only links to itself; node 1 has no outgoing links.
	graph := matrix.FromRows([][]float32{
		{0, 0, 0},
		{1, 0, 0},
		{1, 0, 1},
	})
	g, err := PreparePageRank(graph)
	require.NoError(t, err)
	for j := 0; j < 3; j++ {
		assert.InDelta(t, 1.0, float64(g.ColumnSum(j)), 1e-6, "column %d", j)
		assert.Zero(t, g.At(j, j))
	}
	assert.Equal(t, [][]float32{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}}, g.ToRows())
	assert.Equal(t, float32(1), graph.At(2, 2), "input must not change")

	_, err = PreparePageRank(matrix.New(1, 1))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = PreparePageRank(matrix.New(2, 3))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPageRank_CycleIsUniform(t *testing.T) {
	t.Parallel()
	cycle := matrix.FromRows([][]float32{
		{0, 0, 1},
		{1, 0, 0},
		{0, 1, 0},
	})
	g, err := PreparePageRank(cycle)
	require.NoError(t, err)
	res, err := PageRank(context.Background(), g, Options{})
	require.NoError(t, err)
	for _, v := range res.Vector() {
		assert.InDelta(t, 1.0/3, v, 1e-6)
	}
	assert.Equal(t, 1, res.Iterations)
}

func TestDampedPageRank_MatchesExact(t *testing.T) {
	t.Parallel()
	graph := matrix.New(30, 30).RandomGraph(42, 0.2)
	g, err := PreparePageRank(graph)
	require.NoError(t, err)

	iter, err := DampedPageRank(context.Background(), g, DefaultDamping, Options{})
	require.NoError(t, err)
	exact, err := ExactPageRank(g, DefaultDamping)
	require.NoError(t, err)

	assert.LessOrEqual(t, matrix.MaxRelDiff(exact, iter.Solution), 1e-3)
	var sum float64
	for _, v := range iter.Vector() {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestPageRank_InvalidInput(t *testing.T) {
	t.Parallel()
	g := matrix.Identity(3)
	_, err := DampedPageRank(context.Background(), g, 1.5, Options{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = ExactPageRank(g, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = PageRank(context.Background(), matrix.New(2, 3), Options{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRanking(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []int{1, 2, 0}, Ranking([]float64{0.1, 0.5, 0.4}))
	assert.Empty(t, Ranking(nil))
}

func TestSimRank(t *testing.T) {
	t.Parallel()
	// Nodes 2 and 3 both link only to node 4.
	graph := matrix.FromRows([][]float32{
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{1, 1, 0, 0, 0},
		{1, 1, 0, 0, 0},
		{0, 0, 1, 1, 0},
	})
	res, err := SimRank(context.Background(), graph, 0, Options{})
	require.NoError(t, err)
	s := res.Solution
	for i := 0; i < 5; i++ {
		assert.Equal(t, float32(1), s.At(i, i))
		for j := 0; j < 5; j++ {
			v := s.At(i, j)
			assert.GreaterOrEqual(t, v, float32(0))
			assert.LessOrEqual(t, v, float32(1))
			assert.InDelta(t, float64(v), float64(s.At(j, i)), 1e-4)
		}
	}
	assert.Greater(t, s.At(2, 3), s.At(2, 4))

	_, err = SimRank(context.Background(), graph, 1.2, Options{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSimRank_StopsStrictlyBelowEpsilon(t *testing.T) {
	t.Parallel()
	graph := matrix.New(3, 3)
	first, err := SimRank(context.Background(), graph, 0.5, Options{MaxIterations: 1, Epsilon: 1})
	require.NoError(t, err)
	require.Equal(t, 1, first.Iterations)
	require.Positive(t, first.Delta)

	// A change equal to the threshold is not convergence yet.
	res, err := SimRank(context.Background(), graph, 0.5, Options{Epsilon: first.Delta})
	require.NoError(t, err)
	assert.Greater(t, res.Iterations, 1)
	assert.Less(t, res.Delta, first.Delta)

	_, err = SimRank(context.Background(), graph, 0.5, Options{MaxIterations: 1, Epsilon: first.Delta})
	assert.ErrorIs(t, err, ErrDidNotConverge)
}

func TestJacobi_SolvesDominantSystem(t *testing.T) {
	t.Parallel()
	sys := NewLinearSystem(60, 7, true)
	res, err := Jacobi(context.Background(), sys.A, sys.B, Options{})
	require.NoError(t, err)
	assert.Less(t, sys.SolutionError(res.Solution), 1e-4)
	assert.Greater(t, res.Iterations, 1)

	// Cross-check against a direct solve.
	n := sys.A.Rows()
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, float64(sys.A.At(i, j)))
		}
		b.SetVec(i, float64(sys.B.At(i, 0)))
	}
	var direct mat.VecDense
	require.NoError(t, direct.SolveVec(a, b))
	for i, v := range res.Vector() {
		assert.InDelta(t, direct.AtVec(i), v, 1e-4)
	}
}

func TestJacobi_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sys := NewLinearSystem(40, 3, false)
	_, err := Jacobi(ctx, sys.A, sys.B, Options{})
	assert.ErrorIs(t, err, ErrNotConvergent)

	_, err = Jacobi(ctx, matrix.New(2, 3), matrix.New(2, 1), Options{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Jacobi(ctx, matrix.New(2, 2), matrix.New(2, 1), Options{})
	assert.ErrorIs(t, err, ErrInvalidInput, "zero diagonal")

	dom := NewLinearSystem(10, 5, true)
	_, err = Jacobi(ctx, dom.A, dom.B, Options{MaxIterations: 1, Epsilon: 1e-12})
	assert.True(t, errors.Is(err, ErrDidNotConverge), "got %v", err)
}

func TestLinearSystem_Dominance(t *testing.T) {
	t.Parallel()
	sys := NewLinearSystem(25, 9, true)
	for i := 0; i < 25; i++ {
		var off float64
		for j := 0; j < 25; j++ {
			if j != i {
				off += math.Abs(float64(sys.A.At(i, j)))
			}
		}
		assert.Greater(t, float64(sys.A.At(i, i)), off)
	}
	assert.Zero(t, sys.SolutionError(sys.X))
}
