package multiplier

import (
	"fmt"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbru/matcalc/internal/matrix"
)

const relTolerance = 1e-3

// productError is the largest cell error of got against want, relative to
// ||lhs||inf * ||rhs||inf, which bounds every cell of the product. Rounding
// in Strassen's sums is absolute, so a per-cell relative measure blows up
// on cells that cancel to nearly zero.
func productError(lhs, rhs, want, got *matrix.Matrix) float64 {
	scale := float64(lhs.NormInf()) * float64(rhs.NormInf())
	if scale == 0 {
		scale = 1
	}
	return matrix.MaxAbsDiff(want, got) / scale
}

func randomSquare(n int, seed uint64) *matrix.Matrix {
	return matrix.New(n, n).RandomizeRange(seed, -1, 1)
}

func TestRoundLog2(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n, want int
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4},
		{16, 4}, {17, 5}, {1023, 10}, {1024, 10}, {1025, 11},
	}
	for _, tt := range tests {
		if got := roundLog2(tt.n); got != tt.want {
			t.Errorf("roundLog2(%d) = %d, expected %d", tt.n, got, tt.want)
		}
	}
}

func TestRoundLog2_BeyondFloat64Precision(t *testing.T) {
	t.Parallel()
	if bits.UintSize < 64 {
		t.Skip("needs 64-bit int")
	}
	for _, shift := range []int{53, 54, 60, 62} {
		n := 1 << shift
		if got := roundLog2(n); got != shift {
			t.Errorf("roundLog2(1<<%d) = %d, expected %d", shift, got, shift)
		}
		if got := roundLog2(n + 1); got != shift+1 {
			t.Errorf("roundLog2(1<<%d + 1) = %d, expected %d", shift, got, shift+1)
		}
		if got := roundLog2(n - 1); got != shift {
			t.Errorf("roundLog2(1<<%d - 1) = %d, expected %d", shift, got, shift)
		}
	}
}

func FuzzRoundLog2(f *testing.F) {
	for _, seed := range []int{1, 2, 3, 7, 64, 65, 1 << 20, 1<<20 + 1} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, n int) {
		if n < 1 {
			t.Skip()
		}
		want := bits.Len64(uint64(n - 1))
		if got := roundLog2(n); got != want {
			t.Fatalf("roundLog2(%d) = %d, expected %d", n, got, want)
		}
	})
}

func TestDefinition_KnownProduct(t *testing.T) {
	t.Parallel()
	a := matrix.FromRows([][]float32{{1, 2, 3}, {4, 5, 6}})
	b := matrix.FromRows([][]float32{{7, 8}, {9, 10}, {11, 12}})
	got := DefinitionProduct(a, b)
	assert.Equal(t, [][]float32{{58, 64}, {139, 154}}, got.ToRows())
}

func TestDefinition_Contract(t *testing.T) {
	t.Parallel()
	a := matrix.New(2, 3)
	b := matrix.New(3, 4)
	assert.Panics(t, func() { Definition(a, b, matrix.New(2, 3)) }, "wrong result shape")
	assert.Panics(t, func() { Definition(a, matrix.New(2, 4), matrix.New(2, 4)) }, "inner mismatch")

	sq := matrix.New(4, 4)
	_, _, _, q := sq.Quadrants()
	assert.Panics(t, func() { Definition(q, matrix.New(2, 2), q) }, "aliased result")
}

func TestDefinition_WritesThroughResultView(t *testing.T) {
	t.Parallel()
	out := matrix.New(4, 4)
	_, c12, _, _ := out.Quadrants()
	Definition(matrix.Identity(2), matrix.FromRows([][]float32{{1, 2}, {3, 4}}), c12)
	assert.Equal(t, [][]float32{{0, 0, 1, 2}, {0, 0, 3, 4}, {0, 0, 0, 0}, {0, 0, 0, 0}}, out.ToRows())
}

func TestDelegated_MatchesDefinition(t *testing.T) {
	t.Parallel()
	shapes := [][3]int{{1, 1, 1}, {3, 5, 2}, {17, 9, 23}, {64, 64, 64}, {100, 37, 81}}
	for i, s := range shapes {
		a := matrix.New(s[0], s[1]).RandomizeRange(uint64(i), -1, 1)
		b := matrix.New(s[1], s[2]).RandomizeRange(uint64(i)+100, -1, 1)
		want := DefinitionProduct(a, b)
		got := Delegated(a, b)
		assert.LessOrEqual(t, matrix.MaxRelDiff(want, got), relTolerance, "shape %v", s)
	}
}

func TestDelegated_Views(t *testing.T) {
	t.Parallel()
	big := matrix.New(10, 12).Randomize(3)
	a := matrix.View(big, 4, 5, 3, 2)
	b := matrix.View(big, 5, 6, 1, 6)
	want := DefinitionProduct(a.Clone(), b.Clone())
	assert.LessOrEqual(t, matrix.MaxRelDiff(want, Delegated(a, b)), relTolerance)

	out := matrix.New(8, 8)
	res := matrix.View(out, 4, 6, 2, 1)
	DelegatedInto(a, b, res)
	assert.LessOrEqual(t, matrix.MaxRelDiff(want, res), relTolerance)
	assert.Zero(t, out.At(0, 0))
	assert.Zero(t, out.At(7, 7))
}

func TestDelegated_EmptyInner(t *testing.T) {
	t.Parallel()
	got := Delegated(matrix.New(3, 0), matrix.New(0, 2))
	assert.Equal(t, [][]float32{{0, 0}, {0, 0}, {0, 0}}, got.ToRows())
	assert.Equal(t, 0, Delegated(matrix.New(0, 3), matrix.New(3, 2)).Rows())
}

func TestStrassen_PaddingRoundTrip(t *testing.T) {
	t.Parallel()
	a := randomSquare(5, 1)
	b := randomSquare(5, 2)
	aBefore, bBefore := a.Clone(), b.Clone()

	got := Strassen(a, b, Options{Threshold: 2})

	require.Equal(t, 5, got.Rows())
	require.Equal(t, 5, got.Cols())
	assert.LessOrEqual(t, matrix.MaxRelDiff(DefinitionProduct(a, b), got), relTolerance)
	assert.Equal(t, 5, a.Rows())
	assert.Equal(t, 5, b.Cols())
	assert.True(t, matrix.Equal(a, aBefore))
	assert.True(t, matrix.Equal(b, bBefore))
}

func TestStrassen_MatchesDefinition(t *testing.T) {
	t.Parallel()
	for _, n := range []int{1, 2, 3, 4, 7, 8, 31, 63, 64, 65, 100, 128} {
		for _, opts := range []Options{{Threshold: 2}, {Threshold: 16}, {}, {Threshold: 4, Parallel: true, ParallelDepth: 2}} {
			t.Run(fmt.Sprintf("n=%d/threshold=%d/parallel=%v", n, opts.Threshold, opts.Parallel), func(t *testing.T) {
				t.Parallel()
				a := randomSquare(n, uint64(n))
				b := randomSquare(n, uint64(n)+1)
				got := Strassen(a, b, opts)
				assert.LessOrEqual(t, matrix.MaxRelDiff(DefinitionProduct(a, b), got), relTolerance)
			})
		}
	}
}

func TestStrassen_WideRangeOperands(t *testing.T) {
	t.Parallel()
	tests := []struct{ n, threshold int }{
		{53, 8}, {53, 2}, {80, 16}, {17, 2},
	}
	for _, tt := range tests {
		for seed := uint64(0); seed < 4; seed++ {
			a := matrix.New(tt.n, tt.n).RandomizeRange(seed, -10, 10)
			b := matrix.New(tt.n, tt.n).RandomizeRange(seed^0x9e3779b97f4a7c15, -10, 10)
			want := DefinitionProduct(a, b)
			got := Strassen(a, b, Options{Threshold: tt.threshold})
			assert.LessOrEqual(t, productError(a, b, want, got), 1e-5,
				"n=%d threshold=%d seed=%d", tt.n, tt.threshold, seed)
		}
	}
}

func TestStrassen_IntegerValuesAreExact(t *testing.T) {
	t.Parallel()
	n := 16
	a := matrix.New(n, n)
	b := matrix.New(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, float32((i+2*j)%5-2))
			b.Set(i, j, float32((3*i+j)%7-3))
		}
	}
	got := Strassen(a, b, Options{Threshold: 2})
	assert.True(t, matrix.Equal(DefinitionProduct(a, b), got))
}

func TestStrassen_ViewOperands(t *testing.T) {
	t.Parallel()
	big := matrix.New(20, 20).RandomizeRange(9, -1, 1)
	a := matrix.View(big, 8, 8, 0, 0)
	b := matrix.View(big, 8, 8, 12, 12)
	got := Strassen(a, b, Options{Threshold: 2})
	assert.LessOrEqual(t, matrix.MaxRelDiff(DefinitionProduct(a, b), got), relTolerance)
	assert.True(t, a.IsView(), "operands keep their identity")
}

func TestStrassen_Contract(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { Strassen(matrix.New(2, 3), matrix.New(3, 2), Options{}) })
	assert.Panics(t, func() { Strassen(matrix.New(2, 2), matrix.New(3, 3), Options{}) })
	assert.Equal(t, 0, Strassen(matrix.New(0, 0), matrix.New(0, 0), Options{}).Rows())
}

func TestNormalizeOptions(t *testing.T) {
	prev := GetDefaultStrassenThreshold()
	t.Cleanup(func() { SetDefaultStrassenThreshold(prev) })

	SetDefaultStrassenThreshold(128)
	opts := normalizeOptions(Options{})
	assert.Equal(t, 128, opts.Threshold)
	assert.Equal(t, DefaultParallelDepth, opts.ParallelDepth)

	assert.Equal(t, 32, normalizeOptions(Options{Threshold: 32}).Threshold)
	assert.Equal(t, MinStrassenThreshold, normalizeOptions(Options{Threshold: 1}).Threshold)

	SetDefaultStrassenThreshold(0)
	assert.Equal(t, DefaultStrassenThreshold, GetDefaultStrassenThreshold())
}
