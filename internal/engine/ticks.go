package engine

import "sync/atomic"

// tickSeq numbers ticks from 1. A seq is never reused within a process, so
// the log lines of a lost connection and its replacement never share one.
// Only Tick calls start; last may be read from any goroutine.
type tickSeq struct {
	n atomic.Int64
}

// start opens the next tick and returns its result with Seq assigned.
func (s *tickSeq) start() TickResult {
	return TickResult{Seq: s.n.Add(1)}
}

// last returns the seq of the most recent tick, 0 before the first.
func (s *tickSeq) last() int64 { return s.n.Load() }
