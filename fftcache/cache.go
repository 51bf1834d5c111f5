// Package fftcache wraps gonum.org/v1/gonum/dsp/fourier with the plan/execute
// concurrency discipline C5 requires: plan creation and deletion exclude
// concurrent DFT execution, but distinct executions run in parallel against
// distinct plans.
package fftcache

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/das2gopher/das2stream/daserr"
)

// Direction selects a forward or inverse transform. A Plan is parameterized
// by (length, direction), so the forward and inverse transforms of the same
// length are cached separately.
type Direction int

const (
	Forward Direction = iota
	Inverse
)

type planKey struct {
	length int
	dir    Direction
}

// Plan owns a gonum CmplxFFT engine and input/output staging buffers sized to
// its length. borrowCount tracks long-lived checkouts (e.g. a psd estimator
// that holds a plan across many spectra) distinct from the in-flight
// execution count the Cache tracks for all plans together.
type Plan struct {
	length      int
	dir         Direction
	engine      *fourier.CmplxFFT
	in, out     []complex128
	borrowCount int
}

func newPlan(length int, dir Direction) *Plan {
	return &Plan{
		length: length,
		dir:    dir,
		engine: fourier.NewCmplxFFT(length),
		in:     make([]complex128, length),
		out:    make([]complex128, length),
	}
}

// Len returns the plan's transform length.
func (p *Plan) Len() int { return p.length }

// Cache is a thread-safe registry of Plans, keyed by (length, direction). A
// single mutex plus condition variable implements the discipline in §5: it
// guards the plan map, the process-wide execution counter, and each plan's
// borrow count together, since all three are small and updated briefly.
type Cache struct {
	mu        sync.Mutex
	cond      *sync.Cond
	execCount int
	plans     map[planKey]*Plan
}

// NewCache returns an empty plan cache.
func NewCache() *Cache {
	c := &Cache{plans: make(map[planKey]*Plan)}
	c.cond = sync.NewCond(&c.mu)

	return c
}

// GetPlan returns the cached plan for (length, dir), creating one if absent.
// It blocks until no execution is in flight against any plan in this cache,
// and holds that exclusion for the duration of the call, matching "creation
// ... blocks while any execution is in flight" (§4.5, §5).
func (c *Cache) GetPlan(length int, dir Direction) (*Plan, error) {
	if length <= 0 {
		return nil, daserr.ErrInvalidOp
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.execCount > 0 {
		c.cond.Wait()
	}

	key := planKey{length, dir}
	if p, ok := c.plans[key]; ok {
		return p, nil
	}

	p := newPlan(length, dir)
	c.plans[key] = p

	return p, nil
}

// DeletePlan removes the cached plan for (length, dir), waiting until no
// execution is in flight and the plan's borrow count has dropped to zero.
// Reports whether a plan was found and removed.
func (c *Cache) DeletePlan(length int, dir Direction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := planKey{length, dir}
	p, ok := c.plans[key]
	if !ok {
		return false
	}

	for c.execCount > 0 || p.borrowCount > 0 {
		c.cond.Wait()
	}

	delete(c.plans, key)

	return true
}

// Borrow increments p's borrow count, signalling a caller intends to hold
// the plan across multiple executions. Pair with Release.
func (c *Cache) Borrow(p *Plan) {
	c.mu.Lock()
	p.borrowCount++
	c.mu.Unlock()
}

// Release decrements p's borrow count and wakes any goroutine blocked in
// DeletePlan waiting for it to reach zero.
func (c *Cache) Release(p *Plan) {
	c.mu.Lock()
	p.borrowCount--
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Execute runs p's transform over in, returning a freshly sized result slice.
// The process-wide execution counter is incremented/decremented around the
// call so concurrent GetPlan/DeletePlan calls see work in flight; the actual
// transform runs without holding the cache mutex, so distinct plans execute
// in parallel (§4.5 "Multiple executions may run in parallel").
func (c *Cache) Execute(p *Plan, in []complex128) ([]complex128, error) {
	if len(in) != p.length {
		return nil, daserr.ErrShapeMismatch
	}

	c.mu.Lock()
	c.execCount++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.execCount--
		c.cond.Broadcast()
		c.mu.Unlock()
	}()

	copy(p.in, in)

	var out []complex128
	if p.dir == Forward {
		out = p.engine.Coefficients(p.out, p.in)
	} else {
		out = p.engine.Sequence(p.out, p.in)
	}

	result := make([]complex128, len(out))
	copy(result, out)

	return result, nil
}
