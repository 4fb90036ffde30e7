// Package progress holds the identifiers exchanged with the session: facts
// the player has received and checks the game has revealed.
package progress

import (
	"maps"
	"slices"
)

// Fact identifies a unit of received progress (a character, an episode
// unlock, a collectible bundle). Facts are multiset members.
type Fact int64

// CheckID identifies a location whose completion the game can reveal.
type CheckID int64

// Inventory is a multiset of received facts. The zero value is empty and
// ready to use.
type Inventory struct {
	counts map[Fact]int
	total  int
}

// NewInventory builds an inventory from a delivery sequence.
func NewInventory(facts ...Fact) Inventory {
	var inv Inventory
	for _, f := range facts {
		inv.Add(f)
	}
	return inv
}

// Add records one more delivery of f.
func (inv *Inventory) Add(f Fact) {
	if inv.counts == nil {
		inv.counts = make(map[Fact]int)
	}
	inv.counts[f]++
	inv.total++
}

// Count returns how many times f was received.
func (inv Inventory) Count(f Fact) int { return inv.counts[f] }

// Has reports whether f was received at least once.
func (inv Inventory) Has(f Fact) bool { return inv.counts[f] > 0 }

// Len returns the total number of deliveries.
func (inv Inventory) Len() int { return inv.total }

// Distinct returns the received facts in ascending order.
func (inv Inventory) Distinct() []Fact {
	return slices.Sorted(maps.Keys(inv.counts))
}

// Delta returns, for every fact whose count in inv exceeds its count in
// prev, the number of additional deliveries. Facts are ordered ascending.
func (inv Inventory) Delta(prev Inventory) []FactDelta {
	var out []FactDelta
	for _, f := range inv.Distinct() {
		if d := inv.counts[f] - prev.counts[f]; d > 0 {
			out = append(out, FactDelta{Fact: f, Added: d})
		}
	}
	return out
}

// Clone returns an independent copy.
func (inv Inventory) Clone() Inventory {
	return Inventory{counts: maps.Clone(inv.counts), total: inv.total}
}

// FactDelta is a count increase for one fact.
type FactDelta struct {
	Fact  Fact
	Added int
}

// CheckSet is a set of check ids. A nil CheckSet is a valid empty set for
// reads.
type CheckSet map[CheckID]struct{}

// NewCheckSet returns a set holding ids.
func NewCheckSet(ids ...CheckID) CheckSet {
	s := make(CheckSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id. Adding an existing id is a no-op.
func (s CheckSet) Add(ids ...CheckID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Has reports membership.
func (s CheckSet) Has(id CheckID) bool {
	_, ok := s[id]
	return ok
}

// Remove deletes ids that are present.
func (s CheckSet) Remove(ids ...CheckID) {
	for _, id := range ids {
		delete(s, id)
	}
}

// Sorted returns the members in ascending order.
func (s CheckSet) Sorted() []CheckID {
	return slices.Sorted(maps.Keys(s))
}

// View is the per-tick snapshot of session state handed to detectors and
// mirrors. It is read-only for its consumers.
type View struct {
	Received  Inventory
	Confirmed CheckSet
}
