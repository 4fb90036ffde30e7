package mirror

import (
	"context"
	"log/slog"
	"math"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
	"github.com/roach88/tcslink/internal/savedata"
)

// Stud grant constants.
const (
	PurpleStudValue = 10000
	MaxStuds        = 4_000_000_000
)

// Studs adds received studs to the saved stud total.
//
// Studs are consumable, so the mirror cannot derive the total from the fact
// count. It persists how many stud facts it has already applied in the
// first chapter record's challenge-time float, stored as an offset from the
// vanilla value so an untouched save reads as zero applied.
type Studs struct {
	cat     *catalog.Catalog
	logger  *slog.Logger
	applied int
	loaded  bool
}

// NewStuds returns the stud mirror. logger may be nil.
func NewStuds(cat *catalog.Catalog, logger *slog.Logger) *Studs {
	if logger == nil {
		logger = slog.Default()
	}
	return &Studs{cat: cat, logger: logger}
}

func (m *Studs) Name() string { return "studs" }

// Applied returns the number of stud facts already granted.
func (m *Studs) Applied() int { return m.applied }

func (m *Studs) indexAddr() memory.Address { return m.cat.Chapters[0].Address }

func (m *Studs) load(ctx context.Context, mem memory.Interface) error {
	v, err := savedata.ReadChallengeTime(ctx, mem, m.indexAddr())
	if err != nil {
		return err
	}
	m.applied = decodeIndex(v)
	m.loaded = true
	return nil
}

func decodeIndex(v float32) int {
	n := float64(v) - float64(savedata.DefaultChallengeTime)
	if math.IsNaN(n) || n < 0 || n != math.Trunc(n) {
		return 0
	}
	return int(n)
}

func encodeIndex(n int) float32 {
	return savedata.DefaultChallengeTime + float32(n)
}

func (m *Studs) Apply(ctx context.Context, mem memory.Interface, view progress.View) error {
	if !m.loaded {
		if err := m.load(ctx, mem); err != nil {
			return err
		}
	}
	received := view.Received.Count(m.cat.Generic.PurpleStud)
	if received <= m.applied {
		return nil
	}

	add := uint64(received-m.applied) * PurpleStudValue *
		ScoreMultiplier(view.Received.Count(m.cat.Generic.ProgressiveScore))
	current, err := memory.ReadUint32(ctx, mem, m.cat.Addresses.StudCount)
	if err != nil {
		return err
	}
	total := min(uint64(current)+add, MaxStuds)
	// A connection lost between these two writes grants the same studs
	// again on reconnect. Writing the index first would lose them instead.
	if err := memory.WriteUint32(ctx, mem, m.cat.Addresses.StudCount, uint32(total)); err != nil {
		return err
	}
	if err := savedata.WriteChallengeTime(ctx, mem, m.indexAddr(), encodeIndex(received)); err != nil {
		return err
	}
	m.logger.Debug("granted studs", "facts", received-m.applied, "studs", add, "total", total)
	m.applied = received
	return nil
}
