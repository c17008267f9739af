package multiplier

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/parallel"
)

// exactFloatInts is the bound below which every integer converts to float64
// without rounding.
const exactFloatInts = 1 << 53

// roundLog2 returns ceil(log2(n)) for n >= 1 and 0 for n <= 1. It reads the
// biased exponent of float64(n-1) instead of going through math.Log2, whose
// rounding can be off by one at exact powers of two. For n-1 >= 1 the
// exponent field minus 1022 is floor(log2(n-1)) + 1, which is the ceiling of
// log2(n). Above 2^53 the conversion rounds, so the bit length of n-1 is
// used instead.
func roundLog2(n int) int {
	if n <= 1 {
		return 0
	}
	if uint64(n) > exactFloatInts {
		return bits.Len64(uint64(n - 1))
	}
	b := math.Float64bits(float64(n - 1))
	return int((b>>52)&0x7FF) - 1022
}

// Strassen returns lhs x rhs for square, conformable operands using the
// Winograd form of Strassen's algorithm.
//
// Operands whose size is not a power of two are copied into zero-padded
// buffers of the next power of two; lhs and rhs are never modified and may
// be views. The padded result is shrunk back to n x n before returning.
func Strassen(lhs, rhs *matrix.Matrix, opts Options) *matrix.Matrix {
	n := lhs.Rows()
	if lhs.Cols() != n || rhs.Rows() != n || rhs.Cols() != n {
		panic(fmt.Sprintf("multiplier: Strassen needs square conformable operands, got %dx%d * %dx%d",
			lhs.Rows(), lhs.Cols(), rhs.Rows(), rhs.Cols()))
	}
	opts = normalizeOptions(opts)
	if n == 0 {
		return matrix.New(0, 0)
	}

	m := 1 << roundLog2(n)
	a, b := lhs, rhs
	if m != n {
		a = lhs.Padded(m, m)
		b = rhs.Padded(m, m)
	}
	result := matrix.New(m, m)
	strassen(a, b, result, opts, 0)
	return result.Resize(n, n)
}

// strassen stores lhs x rhs into result. All three are square with the same
// power-of-two size; result is usually a quadrant view of the caller's
// result.
func strassen(lhs, rhs, result *matrix.Matrix, opts Options, depth int) {
	n := lhs.Rows()
	if n <= opts.Threshold || n%2 != 0 {
		Definition(lhs, rhs, result)
		return
	}

	a11, a12, a21, a22 := lhs.Quadrants()
	b11, b12, b21, b22 := rhs.Quadrants()

	st := acquireState(n / 2)
	defer releaseState(st)

	computeStrassenIntermediates(st, a11, a12, a21, a22, b11, b12, b21, b22)

	tasks := []multiplicationTask{
		{st.p1, st.s2, st.s6, opts, depth + 1},
		{st.p2, a11, b11, opts, depth + 1},
		{st.p3, a12, b21, opts, depth + 1},
		{st.p4, st.s3, st.s7, opts, depth + 1},
		{st.p5, st.s1, st.s5, opts, depth + 1},
		{st.p6, st.s4, b22, opts, depth + 1},
		{st.p7, a22, st.s8, opts, depth + 1},
	}
	executeTasks(tasks, opts.Parallel && depth < opts.ParallelDepth)

	assembleStrassenResult(result, st)
}

// computeStrassenIntermediates forms the eight operand sums S1..S8.
func computeStrassenIntermediates(st *strassenState, a11, a12, a21, a22, b11, b12, b21, b22 *matrix.Matrix) {
	st.s1.Add(a21, a22)   // S1 = A21 + A22
	st.s2.Sub(st.s1, a11) // S2 = S1 - A11
	st.s3.Sub(a11, a21)   // S3 = A11 - A21
	st.s4.Sub(a12, st.s2) // S4 = A12 - S2
	st.s5.Sub(b12, b11)   // S5 = B12 - B11
	st.s6.Sub(b22, st.s5) // S6 = B22 - S5
	st.s7.Sub(b22, b12)   // S7 = B22 - B12
	st.s8.Sub(st.s6, b21) // S8 = S6 - B21
}

// assembleStrassenResult combines P1..P7 into the four result quadrants,
// writing through the quadrant views. P1 and P4 are reused for T1 and T2.
func assembleStrassenResult(result *matrix.Matrix, st *strassenState) {
	c11, c12, c21, c22 := result.Quadrants()

	t1 := st.p1.Add(st.p1, st.p2) // T1 = P1 + P2
	t2 := st.p4.Add(t1, st.p4)    // T2 = T1 + P4

	// C11 = P2 + P3
	c11.Add(st.p2, st.p3)

	// C12 = T1 + P5 + P6
	c12.Add(t1, st.p5)
	c12.Add(c12, st.p6)

	// C21 = T2 - P7
	c21.Sub(t2, st.p7)

	// C22 = T2 + P5
	c22.Add(t2, st.p5)
}

// strassenState holds the temporaries of one recursion level.
type strassenState struct {
	s1, s2, s3, s4, s5, s6, s7, s8 *matrix.Matrix
	p1, p2, p3, p4, p5, p6, p7     *matrix.Matrix
}

// statePools maps a half-size to a *sync.Pool of states of that size.
var statePools sync.Map

func acquireState(h int) *strassenState {
	pool, _ := statePools.LoadOrStore(h, &sync.Pool{
		New: func() any {
			mk := func() *matrix.Matrix { return matrix.New(h, h) }
			return &strassenState{
				s1: mk(), s2: mk(), s3: mk(), s4: mk(), s5: mk(), s6: mk(), s7: mk(), s8: mk(),
				p1: mk(), p2: mk(), p3: mk(), p4: mk(), p5: mk(), p6: mk(), p7: mk(),
			}
		},
	})
	return pool.(*sync.Pool).Get().(*strassenState)
}

func releaseState(st *strassenState) {
	if pool, ok := statePools.Load(st.s1.Rows()); ok {
		pool.(*sync.Pool).Put(st)
	}
}

// multiplicationTask is one of the seven recursive products.
type multiplicationTask struct {
	dest, a, b *matrix.Matrix
	opts       Options
	depth      int
}

func (t *multiplicationTask) execute() {
	strassen(t.a, t.b, t.dest, t.opts, t.depth)
}

// executeTasks runs the products in order, or concurrently when inParallel
// is set. A panic in a forked product is re-raised on the caller.
func executeTasks(tasks []multiplicationTask, inParallel bool) {
	if !inParallel {
		for i := range tasks {
			tasks[i].execute()
		}
		return
	}

	var g errgroup.Group
	for i := range tasks {
		t := &tasks[i]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &parallel.PanicError{Value: r}
				}
			}()
			t.execute()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var pe *parallel.PanicError
		if errors.As(err, &pe) {
			panic(pe.Value)
		}
		panic(err)
	}
}
