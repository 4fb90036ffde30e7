// Package detect turns raw game memory into confirmed check ids.
//
// Every detector owns a remaining set of checks it has not yet confirmed and
// shrinks it as the game reveals progress. A check leaves the remaining set
// the moment it is emitted, so a detector never emits the same check twice
// in a connection. Detectors are rebuilt from save data on every connection;
// that rebuild is the only recovery strategy after a connection loss.
package detect

import (
	"context"

	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
)

// Detector is polled once per tick by the engine.
//
// Poll returns the checks newly observed this tick. Any error from the
// memory interface aborts the poll and is returned unchanged. Remaining
// counts the checks the detector still watches for.
type Detector interface {
	Name() string
	Poll(ctx context.Context, mem memory.Interface, view progress.View) ([]progress.CheckID, error)
	Remaining() int
}
