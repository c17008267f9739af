// Package parallel provides the fork-join primitives shared by the matrix
// kernels: a configurable worker count, row-range splitting, and first-error
// collection across goroutines.
package parallel

import (
	"fmt"
	"sync"
)

// ErrorCollector collects the first error from parallel goroutines.
// It is safe for concurrent use.
//
//	var ec parallel.ErrorCollector
//	var wg sync.WaitGroup
//	wg.Add(2)
//	go func() { defer wg.Done(); ec.SetError(work1()) }()
//	go func() { defer wg.Done(); ec.SetError(work2()) }()
//	wg.Wait()
//	if err := ec.Err(); err != nil {
//	    return err
//	}
type ErrorCollector struct {
	once sync.Once
	err  error
}

// SetError records err if no error has been recorded yet. Nil is ignored.
func (c *ErrorCollector) SetError(err error) {
	if err != nil {
		c.once.Do(func() {
			c.err = err
		})
	}
}

// Err returns the first recorded error, or nil. Call it after the join.
func (c *ErrorCollector) Err() error {
	return c.err
}

// Reset clears the collector. It must not race with SetError.
func (c *ErrorCollector) Reset() {
	c.once = sync.Once{}
	c.err = nil
}

// PanicError carries a value recovered from a worker goroutine so it can be
// re-raised on the goroutine that started the parallel region.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in parallel worker: %v", e.Value)
}

// capture records a recovered panic, if any, into c. It must be deferred
// directly by the worker goroutine.
func (c *ErrorCollector) capture() {
	if r := recover(); r != nil {
		c.SetError(&PanicError{Value: r})
	}
}

// rethrow re-raises a captured worker panic on the caller's goroutine.
func (c *ErrorCollector) rethrow() {
	if pe, ok := c.err.(*PanicError); ok {
		panic(pe.Value)
	}
}
