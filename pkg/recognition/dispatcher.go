package recognition

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Dispatcher runs at most one classification at a time. When several
// requests queue up behind a running one, only the newest runs; the others
// return ErrSuperseded without calling the classifier.
type Dispatcher struct {
	sem *semaphore.Weighted

	mu     sync.Mutex
	latest uint64

	waiting    atomic.Int64
	ran        atomic.Int64
	superseded atomic.Int64
}

// NewDispatcher creates an idle dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{sem: semaphore.NewWeighted(1)}
}

// Do waits for the running request to finish, then calls fn unless a newer
// request arrived in the meantime
func (d *Dispatcher) Do(ctx context.Context, fn func(context.Context) error) error {
	d.mu.Lock()
	d.latest++
	ticket := d.latest
	d.mu.Unlock()

	d.waiting.Add(1)
	err := d.sem.Acquire(ctx, 1)
	d.waiting.Add(-1)
	if err != nil {
		return err
	}
	defer d.sem.Release(1)

	d.mu.Lock()
	stale := ticket != d.latest
	d.mu.Unlock()
	if stale {
		d.superseded.Add(1)
		return ErrSuperseded
	}

	d.ran.Add(1)
	return fn(ctx)
}

// Stats counts dispatched requests
type Stats struct {
	Waiting    int64
	Ran        int64
	Superseded int64
}

// Stats returns a snapshot of the counters
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Waiting:    d.waiting.Load(),
		Ran:        d.ran.Load(),
		Superseded: d.superseded.Load(),
	}
}
