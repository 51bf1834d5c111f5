package fftcache

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetPlanCachesByLengthAndDirection(t *testing.T) {
	r := require.New(t)

	c := NewCache()
	p1, err := c.GetPlan(8, Forward)
	r.NoError(err)
	p2, err := c.GetPlan(8, Forward)
	r.NoError(err)
	r.Same(p1, p2)

	p3, err := c.GetPlan(8, Inverse)
	r.NoError(err)
	r.NotSame(p1, p3)
}

func TestGetPlanRejectsNonPositiveLength(t *testing.T) {
	r := require.New(t)

	c := NewCache()
	_, err := c.GetPlan(0, Forward)
	r.Error(err)
}

func TestDeletePlanMissing(t *testing.T) {
	r := require.New(t)

	c := NewCache()
	r.False(c.DeletePlan(4, Forward))
}

func TestDeletePlanWaitsForBorrow(t *testing.T) {
	r := require.New(t)

	c := NewCache()
	p, err := c.GetPlan(4, Forward)
	r.NoError(err)
	c.Borrow(p)

	done := make(chan bool, 1)
	go func() {
		done <- c.DeletePlan(4, Forward)
	}()

	select {
	case <-done:
		t.Fatal("DeletePlan returned before Release")
	case <-time.After(50 * time.Millisecond):
	}

	c.Release(p)

	select {
	case ok := <-done:
		r.True(ok)
	case <-time.After(time.Second):
		t.Fatal("DeletePlan never completed after Release")
	}
}

func TestExecuteParallelAcrossDistinctPlans(t *testing.T) {
	r := require.New(t)

	c := NewCache()
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := c.GetPlan(8, Forward)
			if err != nil {
				errs[i] = err
				return
			}
			in := make([]complex128, 8)
			_, err = c.Execute(p, in)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		r.NoError(err)
	}
}

func TestExecuteShapeMismatch(t *testing.T) {
	r := require.New(t)

	c := NewCache()
	p, err := c.GetPlan(8, Forward)
	r.NoError(err)

	_, err = c.Execute(p, make([]complex128, 4))
	r.Error(err)
}

func TestExecuteImpulseResponse(t *testing.T) {
	r := require.New(t)

	c := NewCache()
	p, err := c.GetPlan(4, Forward)
	r.NoError(err)

	in := []complex128{1, 0, 0, 0}
	out, err := c.Execute(p, in)
	r.NoError(err)
	r.Len(out, 4)
	for _, v := range out {
		r.InDelta(1.0, math.Hypot(real(v), imag(v)), 1e-9)
	}
}
