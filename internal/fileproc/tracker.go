package fileproc

import (
	"context"
	"sync/atomic"
)

// TickFunc observes progress: current files done out of total, and the
// path that just finished.
type TickFunc func(current, total int, path string)

// Tracker counts finished files across concurrent jobs.
type Tracker struct {
	total    atomic.Int32
	current  atomic.Int32
	callback TickFunc
}

// NewTracker creates a tracker that calls callback after every Tick.
func NewTracker(callback TickFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add grows the expected total by n.
func (t *Tracker) Add(n int) {
	t.total.Add(int32(n))
}

// SetTotal replaces the expected total.
func (t *Tracker) SetTotal(n int) {
	t.total.Store(int32(n))
}

// Tick marks path as finished.
func (t *Tracker) Tick(path string) {
	current := int(t.current.Add(1))
	if t.callback != nil {
		t.callback(current, int(t.total.Load()), path)
	}
}

// Current returns the number of finished files.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Total returns the expected total.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker returns a context that carries a progress tracker. Every
// parallel run started with that context reports to it.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the context's tracker, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
