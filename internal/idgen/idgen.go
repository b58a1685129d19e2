// Package idgen holds the process-wide atomic UID counters and the
// monotonic time source simulation code reads through, so that tests can
// substitute a fake clock without touching call sites.
package idgen

import (
	"sync/atomic"
	"time"
)

// Counter is a lock-free, monotonically increasing UID generator. The zero
// value starts at 1 on first Next() (0 is reserved to mean "no id" across
// the domain model).
type Counter struct {
	n atomic.Int64
}

// Next returns the next unique positive value.
func (c *Counter) Next() int64 {
	return c.n.Add(1)
}

// Clock is the single time source simulation and transport code should use
// instead of calling time.Now directly, so that tests built on
// testing/synctest can observe and fast-forward it deterministically.
type Clock interface {
	NowMs() int64
}

// SystemClock is the production Clock, backed by the real wall clock.
type SystemClock struct{}

// NowMs returns the current Unix time in milliseconds.
func (SystemClock) NowMs() int64 {
	return time.Now().UnixMilli()
}
