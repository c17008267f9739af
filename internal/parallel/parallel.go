package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// MinRowsPerWorker is the smallest chunk handed to a worker. Regions with
// fewer rows than this run inline on the caller.
const MinRowsPerWorker = 8

var workers atomic.Int32

func init() {
	workers.Store(int32(runtime.GOMAXPROCS(0)))
}

// SetWorkers sets the process-wide degree of parallelism. It is meant to be
// called once at startup from the loaded configuration; values below 1 reset
// it to GOMAXPROCS.
func SetWorkers(n int) {
	if n < 1 {
		n = runtime.GOMAXPROCS(0)
	}
	workers.Store(int32(n))
}

// Workers returns the configured degree of parallelism.
func Workers() int {
	return int(workers.Load())
}

// Chunks returns how many workers a region of n rows is split into.
func Chunks(n int) int {
	w := Workers()
	if maxW := n / MinRowsPerWorker; maxW < w {
		w = maxW
	}
	if w < 1 {
		w = 1
	}
	return w
}

// For runs body over [0, n) split into contiguous [lo, hi) ranges, one per
// worker, and waits for all of them. A panic in any worker is re-raised on
// the caller after the join.
func For(n int, body func(lo, hi int)) {
	ForWorker(n, func(_, lo, hi int) { body(lo, hi) })
}

// ForWorker is For with the worker index passed to body. Worker indices are
// dense in [0, Chunks(n)) and stable for a given n and worker count.
func ForWorker(n int, body func(worker, lo, hi int)) {
	if n <= 0 {
		return
	}
	w := Chunks(n)
	if w == 1 {
		body(0, 0, n)
		return
	}

	var (
		wg sync.WaitGroup
		ec ErrorCollector
	)
	size := n / w
	rem := n % w
	lo := 0
	for i := 0; i < w; i++ {
		hi := lo + size
		if i < rem {
			hi++
		}
		wg.Add(1)
		go func(worker, lo, hi int) {
			defer wg.Done()
			defer ec.capture()
			body(worker, lo, hi)
		}(i, lo, hi)
		lo = hi
	}
	wg.Wait()
	ec.rethrow()
}

// MaxFloat32 computes the maximum of partial(lo, hi) over the chunks of
// [0, n). Each worker writes its own slot and the slots are merged after the
// join, so no lock is taken. It returns 0 for n <= 0.
func MaxFloat32(n int, partial func(lo, hi int) float32) float32 {
	if n <= 0 {
		return 0
	}
	parts := make([]float32, Chunks(n))
	ForWorker(n, func(worker, lo, hi int) {
		parts[worker] = partial(lo, hi)
	})
	best := parts[0]
	for _, v := range parts[1:] {
		if v > best {
			best = v
		}
	}
	return best
}
