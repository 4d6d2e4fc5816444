package browser

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// SharedSession bounds how many executions may drive one attached browser
// at the same time. A slot is held for the whole execution, from before the
// CDP connection until its tab is closed.
type SharedSession struct {
	port  int
	limit int64
	sem   *semaphore.Weighted
}

func newSharedSession(port int, limit int64) *SharedSession {
	if limit <= 0 {
		limit = 1
	}
	return &SharedSession{
		port:  port,
		limit: limit,
		sem:   semaphore.NewWeighted(limit),
	}
}

// Port returns the debug port this limiter guards.
func (s *SharedSession) Port() int {
	return s.port
}

// Limit returns the configured concurrency cap.
func (s *SharedSession) Limit() int64 {
	return s.limit
}

// Acquire blocks until a slot is free or the context ends.
func (s *SharedSession) Acquire(ctx context.Context) error {
	return s.sem.Acquire(ctx, 1)
}

// TryAcquire takes a slot without blocking.
func (s *SharedSession) TryAcquire() bool {
	return s.sem.TryAcquire(1)
}

// Release frees a slot taken with Acquire or TryAcquire.
func (s *SharedSession) Release() {
	s.sem.Release(1)
}
