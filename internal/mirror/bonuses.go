package mirror

import (
	"context"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
)

// Bonuses writes the built-bonus-door bitmask. Door i (1-based) is bit i-1
// and opens once i progressive bonus facts have arrived and every character
// the door requires has been received. Building a door with gold bricks sets
// the same bits, so the mask is written every tick.
type Bonuses struct {
	cat *catalog.Catalog
}

// NewBonuses returns the bonus-door mirror.
func NewBonuses(cat *catalog.Catalog) *Bonuses {
	return &Bonuses{cat: cat}
}

func (m *Bonuses) Name() string { return "bonuses" }

// Mask derives the door bitmask from inv.
func (m *Bonuses) Mask(inv progress.Inventory) uint8 {
	count := inv.Count(m.cat.Generic.ProgressiveBonus)
	var mask uint8
	for _, door := range m.cat.Bonuses {
		if door.Door > count {
			continue
		}
		ok := true
		for _, f := range door.Requirements {
			if !inv.Has(f) {
				ok = false
				break
			}
		}
		if ok {
			mask |= 1 << (door.Door - 1)
		}
	}
	return mask
}

func (m *Bonuses) Apply(ctx context.Context, mem memory.Interface, view progress.View) error {
	return memory.WriteUint8(ctx, mem, m.cat.Addresses.Bonuses, m.Mask(view.Received))
}
