package detect

import (
	"context"
	"sort"

	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
)

// Threshold confirms Check once a counter reaches Min.
type Threshold struct {
	Check progress.CheckID
	Min   uint32
}

// ThresholdSet holds remaining thresholds ordered by Min. A threshold is
// removed the first time it is met and never reconsidered, so a counter that
// later drops back cannot re-emit or revoke it.
type ThresholdSet struct {
	remaining []Threshold
}

// NewThresholdSet returns a set holding ts.
func NewThresholdSet(ts ...Threshold) *ThresholdSet {
	s := &ThresholdSet{remaining: append([]Threshold(nil), ts...)}
	sort.SliceStable(s.remaining, func(i, j int) bool { return s.remaining[i].Min < s.remaining[j].Min })
	return s
}

// Observe emits and removes every threshold with Min <= v.
func (s *ThresholdSet) Observe(v uint32) []progress.CheckID {
	n := 0
	for n < len(s.remaining) && s.remaining[n].Min <= v {
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]progress.CheckID, n)
	for i, t := range s.remaining[:n] {
		out[i] = t.Check
	}
	s.remaining = s.remaining[n:]
	return out
}

// Drop removes thresholds whose check is already confirmed.
func (s *ThresholdSet) Drop(confirmed progress.CheckSet) {
	if len(confirmed) == 0 {
		return
	}
	kept := s.remaining[:0]
	for _, t := range s.remaining {
		if !confirmed.Has(t.Check) {
			kept = append(kept, t)
		}
	}
	s.remaining = kept
}

// Len returns the number of remaining thresholds.
func (s *ThresholdSet) Len() int { return len(s.remaining) }

// Counter reads the value a Thresholds detector compares against.
type Counter func(ctx context.Context, mem memory.Interface) (uint32, error)

// ByteCounter reads a single unsigned byte at addr.
func ByteCounter(addr memory.Address) Counter {
	return func(ctx context.Context, mem memory.Interface) (uint32, error) {
		v, err := memory.ReadUint8(ctx, mem, addr)
		return uint32(v), err
	}
}

// Thresholds is a counter-threshold detector: one counter, many thresholds.
type Thresholds struct {
	name    string
	counter Counter
	set     *ThresholdSet
}

// NewThresholds returns a detector reading counter each poll. The set may be
// shared with another source confirming the same checks.
func NewThresholds(name string, counter Counter, set *ThresholdSet) *Thresholds {
	return &Thresholds{name: name, counter: counter, set: set}
}

func (d *Thresholds) Name() string { return d.name }

func (d *Thresholds) Remaining() int { return d.set.Len() }

func (d *Thresholds) Poll(ctx context.Context, mem memory.Interface, view progress.View) ([]progress.CheckID, error) {
	d.set.Drop(view.Confirmed)
	if d.set.Len() == 0 {
		return nil, nil
	}
	v, err := d.counter(ctx, mem)
	if err != nil {
		return nil, err
	}
	return d.set.Observe(v), nil
}
