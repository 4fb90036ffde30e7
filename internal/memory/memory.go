package memory

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// Address is an absolute offset into the attached process's address space.
type Address uint32

// String formats the address as 0x-prefixed hex.
func (a Address) String() string {
	return fmt.Sprintf("0x%X", uint32(a))
}

// Add returns the address offset by n bytes. n may be negative.
func (a Address) Add(n int) Address {
	return Address(int64(a) + int64(n))
}

// Interface is the byte-addressed view of the game process.
//
// Implementations must return a *ConnectionLostError for any I/O failure.
// PatternSearch returns ErrPatternNotFound when the pattern does not occur;
// other search failures are connection failures.
type Interface interface {
	ReadBytes(ctx context.Context, addr Address, n int) ([]byte, error)
	WriteBytes(ctx context.Context, addr Address, data []byte) error
	PatternSearch(ctx context.Context, pattern []byte) (Address, error)
}

// ReadUint8 reads one byte.
func ReadUint8(ctx context.Context, m Interface, addr Address) (uint8, error) {
	b, err := m.ReadBytes(ctx, addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a little-endian short.
func ReadUint16(ctx context.Context, m Interface, addr Address) (uint16, error) {
	b, err := m.ReadBytes(ctx, addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32 reads a little-endian int.
func ReadUint32(ctx context.Context, m Interface, addr Address) (uint32, error) {
	b, err := m.ReadBytes(ctx, addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadFloat32 reads a little-endian IEEE-754 single.
func ReadFloat32(ctx context.Context, m Interface, addr Address) (float32, error) {
	v, err := ReadUint32(ctx, m, addr)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// WriteUint8 writes one byte.
func WriteUint8(ctx context.Context, m Interface, addr Address, v uint8) error {
	return m.WriteBytes(ctx, addr, []byte{v})
}

// WriteUint32 writes a little-endian int.
func WriteUint32(ctx context.Context, m Interface, addr Address, v uint32) error {
	return m.WriteBytes(ctx, addr, binary.LittleEndian.AppendUint32(nil, v))
}

// WriteFloat32 writes a little-endian IEEE-754 single.
func WriteFloat32(ctx context.Context, m Interface, addr Address, v float32) error {
	return WriteUint32(ctx, m, addr, math.Float32bits(v))
}
