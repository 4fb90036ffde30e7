package detect

import (
	"context"
	"maps"
	"slices"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
)

// Layout maps byte offset → bit mask → check for one bitmask category.
type Layout map[int]map[uint8]progress.CheckID

// Add places check at bit (slot % 8) of byte (slot / 8).
func (l Layout) Add(slot int, check progress.CheckID) {
	off, mask := slot/8, uint8(1)<<(slot%8)
	if l[off] == nil {
		l[off] = make(map[uint8]progress.CheckID)
	}
	l[off][mask] = check
}

// Purchases is a bitmask-purchase detector over a packed shop bitfield.
//
// Each poll drops session-confirmed checks, then issues one read spanning
// the lowest to highest offset still holding a remaining check.
type Purchases struct {
	name      string
	base      memory.Address
	remaining Layout
}

// NewPurchases copies layout into a detector rooted at base.
func NewPurchases(name string, base memory.Address, layout Layout) *Purchases {
	remaining := make(Layout, len(layout))
	for off, masks := range layout {
		if len(masks) > 0 {
			remaining[off] = maps.Clone(masks)
		}
	}
	return &Purchases{name: name, base: base, remaining: remaining}
}

// CharacterPurchases watches the character shop for every purchasable
// character.
func CharacterPurchases(cat *catalog.Catalog) *Purchases {
	layout := make(Layout)
	for _, ch := range cat.Characters {
		if ch.Purchasable() {
			layout.Add(ch.ShopSlot, ch.Purchase)
		}
	}
	return NewPurchases("character_shop", cat.Addresses.CharacterShop, layout)
}

// ExtraPurchases watches the extras shop.
func ExtraPurchases(cat *catalog.Catalog) *Purchases {
	layout := make(Layout)
	for _, ex := range cat.Extras {
		layout.Add(ex.Number, ex.Purchase)
	}
	return NewPurchases("extras_shop", cat.Addresses.ExtrasShop, layout)
}

func (p *Purchases) Name() string { return p.name }

// Remaining returns the number of unconfirmed checks.
func (p *Purchases) Remaining() int {
	n := 0
	for _, masks := range p.remaining {
		n += len(masks)
	}
	return n
}

func (p *Purchases) Poll(ctx context.Context, mem memory.Interface, view progress.View) ([]progress.CheckID, error) {
	p.drop(view.Confirmed)
	if len(p.remaining) == 0 {
		return nil, nil
	}

	offsets := slices.Sorted(maps.Keys(p.remaining))
	lo, hi := offsets[0], offsets[len(offsets)-1]
	buf, err := mem.ReadBytes(ctx, p.base.Add(lo), hi-lo+1)
	if err != nil {
		return nil, err
	}

	var found []progress.CheckID
	for _, off := range offsets {
		masks := p.remaining[off]
		b := buf[off-lo]
		for _, mask := range slices.Sorted(maps.Keys(masks)) {
			if b&mask != 0 {
				found = append(found, masks[mask])
				delete(masks, mask)
			}
		}
		if len(masks) == 0 {
			delete(p.remaining, off)
		}
	}
	return found, nil
}

func (p *Purchases) drop(confirmed progress.CheckSet) {
	if len(confirmed) == 0 {
		return
	}
	for off, masks := range p.remaining {
		for mask, id := range masks {
			if confirmed.Has(id) {
				delete(masks, mask)
			}
		}
		if len(masks) == 0 {
			delete(p.remaining, off)
		}
	}
}
