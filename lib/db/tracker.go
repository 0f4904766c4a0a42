package db

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"wedge.io/wedge/lib/logger"
)

type trackerKey struct{}

// Tracker collects the rows opened while serving a single request
// so they can be closed when the request ends
type Tracker struct {
	mu     sync.Mutex
	rows   []pgx.Rows
	closed bool
}

// WithTracker returns a copy of ctx carrying a new Tracker
func WithTracker(ctx context.Context) (context.Context, *Tracker) {
	t := &Tracker{}
	return context.WithValue(ctx, trackerKey{}, t), t
}

// TrackerFrom returns the Tracker bound to ctx or nil
func TrackerFrom(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}

// Track registers rows. Rows tracked after CloseAll are closed immediately.
func (t *Tracker) Track(rows pgx.Rows) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		rows.Close()
		return
	}
	t.rows = append(t.rows, rows)
	t.mu.Unlock()
}

// Len returns the number of tracked rows
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// CloseAll closes every tracked rows and returns how many were closed
func (t *Tracker) CloseAll() int {
	t.mu.Lock()
	rows := t.rows
	t.rows = nil
	t.closed = true
	t.mu.Unlock()

	for _, r := range rows {
		// pgx.Rows.Close is a no-op for already closed rows
		r.Close()
		if err := r.Err(); err != nil {
			logger.Warnf("rows closed with error: %s", err)
		}
	}
	return len(rows)
}
