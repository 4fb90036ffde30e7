// Package mirror writes game memory that reflects the received facts.
//
// A mirror derives the bytes the game should hold from the current view and
// writes them. Every location mirrored here can also be changed by the game
// (replaying chapters, building bonus doors, renaming characters), so the
// derived bytes are written every tick. Mirrors never read their own writes
// back.
package mirror

import (
	"context"

	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
)

// Mirror is applied once per tick, after detectors have run.
type Mirror interface {
	Name() string
	Apply(ctx context.Context, mem memory.Interface, view progress.View) error
}

// ScoreMultipliers are the combined multipliers indexed by the number of
// progressive score multipliers received (x2, x4, x6, x8, x10 stacked).
var ScoreMultipliers = [...]uint64{1, 2, 8, 48, 384, 3840}

// ScoreMultiplier returns the combined multiplier for n progressive
// multipliers.
func ScoreMultiplier(n int) uint64 {
	if n < 0 {
		n = 0
	}
	if n >= len(ScoreMultipliers) {
		n = len(ScoreMultipliers) - 1
	}
	return ScoreMultipliers[n]
}
