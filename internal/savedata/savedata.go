// Package savedata encodes and decodes the per-chapter save record.
//
// Layout (12 bytes, little-endian):
//
//	0  unlocked flags   bit0 unlocked, bit1 free play complete
//	1  story complete
//	2  true jedi
//	3  true jedi (alternate)
//	4  gold brick
//	5  minikit count, 0..10; the game stops persisting at 10
//	6  power brick, exactly 1 when collected
//	7  challenge complete
//	8  challenge best time, float32 (1200.0 when never set)
//
// The engine writes bytes 0 and 1 and the challenge time only. Minikit and
// power brick bytes are read, never written.
package savedata

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/roach88/tcslink/internal/memory"
)

// RecordSize is the byte length of one chapter record.
const RecordSize = 12

// Field offsets within a record.
const (
	OffUnlocked      = 0
	OffStory         = 1
	OffTrueJedi      = 2
	OffTrueJediAlt   = 3
	OffGoldBrick     = 4
	OffMinikits      = 5
	OffPowerBrick    = 6
	OffChallenge     = 7
	OffChallengeTime = 8
)

// Unlocked-byte flags.
const (
	FlagUnlocked uint8 = 0b01
	FlagFreePlay uint8 = 0b10

	// FreePlayComplete is the byte-0 pattern the engine persists when it
	// observes a free-play completion.
	FreePlayComplete = FlagUnlocked | FlagFreePlay
)

// DefaultChallengeTime is the vanilla value of the challenge best time.
const DefaultChallengeTime float32 = 1200.0

// Record is a decoded chapter save record.
type Record struct {
	Unlocked      uint8
	Story         uint8
	TrueJedi      uint8
	TrueJediAlt   uint8
	GoldBrick     uint8
	Minikits      uint8
	PowerBrick    uint8
	Challenge     uint8
	ChallengeTime float32
}

// Decode parses a record. b must hold at least RecordSize bytes.
func Decode(b []byte) (Record, error) {
	if len(b) < RecordSize {
		return Record{}, fmt.Errorf("save record: need %d bytes, got %d", RecordSize, len(b))
	}
	return Record{
		Unlocked:      b[OffUnlocked],
		Story:         b[OffStory],
		TrueJedi:      b[OffTrueJedi],
		TrueJediAlt:   b[OffTrueJediAlt],
		GoldBrick:     b[OffGoldBrick],
		Minikits:      b[OffMinikits],
		PowerBrick:    b[OffPowerBrick],
		Challenge:     b[OffChallenge],
		ChallengeTime: math.Float32frombits(binary.LittleEndian.Uint32(b[OffChallengeTime:])),
	}, nil
}

// Encode returns the record's RecordSize-byte form.
func (r Record) Encode() []byte {
	b := make([]byte, RecordSize)
	b[OffUnlocked] = r.Unlocked
	b[OffStory] = r.Story
	b[OffTrueJedi] = r.TrueJedi
	b[OffTrueJediAlt] = r.TrueJediAlt
	b[OffGoldBrick] = r.GoldBrick
	b[OffMinikits] = r.Minikits
	b[OffPowerBrick] = r.PowerBrick
	b[OffChallenge] = r.Challenge
	binary.LittleEndian.PutUint32(b[OffChallengeTime:], math.Float32bits(r.ChallengeTime))
	return b
}

// IsUnlocked reports byte 0 bit 0.
func (r Record) IsUnlocked() bool { return r.Unlocked&FlagUnlocked != 0 }

// FreePlayCompleted reports whether byte 0 holds the free-play pattern.
func (r Record) FreePlayCompleted() bool { return r.Unlocked == FreePlayComplete }

// TrueJediCompleted reports whether either true jedi byte is set.
func (r Record) TrueJediCompleted() bool { return r.TrueJedi != 0 || r.TrueJediAlt != 0 }

// GoldBrickCollected reports byte 4 bit 0.
func (r Record) GoldBrickCollected() bool { return r.GoldBrick&1 != 0 }

// Read decodes the record at addr.
func Read(ctx context.Context, m memory.Interface, addr memory.Address) (Record, error) {
	b, err := m.ReadBytes(ctx, addr, RecordSize)
	if err != nil {
		return Record{}, err
	}
	return Decode(b)
}

// MarkFreePlayComplete persists the free-play completion pattern.
func MarkFreePlayComplete(ctx context.Context, m memory.Interface, addr memory.Address) error {
	return memory.WriteUint8(ctx, m, addr.Add(OffUnlocked), FreePlayComplete)
}

// ReadChallengeTime reads the challenge best time float.
func ReadChallengeTime(ctx context.Context, m memory.Interface, addr memory.Address) (float32, error) {
	return memory.ReadFloat32(ctx, m, addr.Add(OffChallengeTime))
}

// WriteChallengeTime writes the challenge best time float.
func WriteChallengeTime(ctx context.Context, m memory.Interface, addr memory.Address, v float32) error {
	return memory.WriteFloat32(ctx, m, addr.Add(OffChallengeTime), v)
}
