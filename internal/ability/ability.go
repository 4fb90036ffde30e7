// Package ability models character abilities as a fixed-width bitset.
//
// Union and difference map directly to bitwise OR and AND-NOT, so a chapter's
// requirement mask is satisfied by a set of abilities a when
// a.Covers(mask).
package ability

import (
	"fmt"
	"math/bits"
	"strings"
)

// Set is a bitset of abilities.
type Set uint32

// Named ability bits.
const (
	Jedi Set = 1 << iota
	ProtocolDroid
	Astromech
	BountyHunter
	Sith
	Shortie
	HighJump
	DroidOrFly
	Imperial
	Blaster
	VehicleTie
	VehicleTow

	None Set = 0
)

var names = []struct {
	bit  Set
	name string
}{
	{Jedi, "JEDI"},
	{ProtocolDroid, "PROTOCOL_DROID"},
	{Astromech, "ASTROMECH"},
	{BountyHunter, "BOUNTY_HUNTER"},
	{Sith, "SITH"},
	{Shortie, "SHORTIE"},
	{HighJump, "HIGH_JUMP"},
	{DroidOrFly, "DROID_OR_FLY"},
	{Imperial, "IMPERIAL"},
	{Blaster, "BLASTER"},
	{VehicleTie, "VEHICLE_TIE"},
	{VehicleTow, "VEHICLE_TOW"},
}

// Union returns s | o.
func (s Set) Union(o Set) Set { return s | o }

// Without returns s &^ o.
func (s Set) Without(o Set) Set { return s &^ o }

// Has reports whether every bit in o is set in s.
func (s Set) Has(o Set) bool { return s&o == o }

// Covers reports whether s satisfies the requirement mask req. An empty mask
// is always covered.
func (s Set) Covers(req Set) bool { return req.Without(s) == None }

// Len returns the number of abilities in s.
func (s Set) Len() int { return bits.OnesCount32(uint32(s)) }

// String renders the set as NAME|NAME, or NONE.
func (s Set) String() string {
	if s == None {
		return "NONE"
	}
	var parts []string
	rest := s
	for _, n := range names {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
			rest = rest.Without(n.bit)
		}
	}
	if rest != None {
		parts = append(parts, fmt.Sprintf("0x%X", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Parse converts a single ability name (as produced by String) to its bit.
func Parse(name string) (Set, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "NONE" || upper == "" {
		return None, nil
	}
	for _, n := range names {
		if n.name == upper {
			return n.bit, nil
		}
	}
	return None, fmt.Errorf("unknown ability %q", name)
}

// ParseAll unions a list of ability names.
func ParseAll(list []string) (Set, error) {
	var s Set
	for _, name := range list {
		b, err := Parse(name)
		if err != nil {
			return None, err
		}
		s = s.Union(b)
	}
	return s, nil
}
