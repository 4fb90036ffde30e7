package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_ReadUnwrittenIsZero(t *testing.T) {
	im := NewImage()
	b, err := im.ReadBytes(context.Background(), 0x86E0F4, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}

func TestImage_WriteReadAcrossPageBoundary(t *testing.T) {
	ctx := context.Background()
	im := NewImage()
	addr := Address(pageSize*3 - 2)

	require.NoError(t, im.WriteBytes(ctx, addr, []byte{1, 2, 3, 4, 5}))

	got, err := im.ReadBytes(ctx, addr, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got)
}

func TestTypedHelpers_LittleEndian(t *testing.T) {
	ctx := context.Background()
	im := NewImage()

	require.NoError(t, WriteUint32(ctx, im, 0x100, 0x11223344))
	assert.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, im.Peek(0x100, 4))

	v16, err := ReadUint16(ctx, im, 0x100)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3344), v16)

	require.NoError(t, WriteFloat32(ctx, im, 0x200, 4.0))
	f, err := ReadFloat32(ctx, im, 0x200)
	require.NoError(t, err)
	assert.Equal(t, float32(4.0), f)
}

func TestImage_PatternSearch(t *testing.T) {
	ctx := context.Background()
	im := NewImage()
	pattern := []byte("\x00R2-D2\x00C-3PO\x00")

	_, err := im.PatternSearch(ctx, pattern)
	assert.ErrorIs(t, err, ErrPatternNotFound)

	// Straddle a page boundary.
	addr := Address(pageSize*10 - 4)
	im.Poke(addr, pattern)

	found, err := im.PatternSearch(ctx, pattern)
	require.NoError(t, err)
	assert.Equal(t, addr, found)
}

func TestImage_FailAfter(t *testing.T) {
	ctx := context.Background()
	im := NewImage()
	cause := errors.New("process exited")
	im.FailAfter(1, cause)

	_, err := im.ReadBytes(ctx, 0, 1)
	require.NoError(t, err)

	_, err = im.ReadBytes(ctx, 0x10, 2)
	require.Error(t, err)
	assert.True(t, IsConnectionLost(err))
	assert.ErrorIs(t, err, cause)

	err = im.WriteBytes(ctx, 0, []byte{1})
	assert.True(t, IsConnectionLost(err))

	im.Heal()
	_, err = im.ReadBytes(ctx, 0, 1)
	assert.NoError(t, err)
}

func TestImage_AccessLog(t *testing.T) {
	ctx := context.Background()
	im := NewImage()

	_, _ = im.ReadBytes(ctx, 0x10, 3)
	_ = im.WriteBytes(ctx, 0x20, []byte{1, 2})
	im.Poke(0x30, []byte{9})

	assert.Equal(t, []Access{{Addr: 0x10, Len: 3}}, im.Reads())
	assert.Equal(t, []Access{{Addr: 0x20, Len: 2}}, im.Writes())

	im.ResetLog()
	assert.Empty(t, im.Reads())
	assert.Empty(t, im.Writes())
}

func TestSnapshot_RoundTrip(t *testing.T) {
	im := NewImage()
	im.Poke(0x86E0F4, []byte{0x03, 0x01, 0x00, 0x01})
	im.Poke(0x86E538, []byte("05/270 GOAL\x00"))

	path := filepath.Join(t.TempDir(), "snap.yaml")
	require.NoError(t, im.SaveSnapshot(path))

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, im.Peek(0x86E0F4, 4), loaded.Peek(0x86E0F4, 4))
	assert.Equal(t, im.Peek(0x86E538, 12), loaded.Peek(0x86E538, 12))
}

func TestRegion_Bytes(t *testing.T) {
	b, err := Region{Address: 1, Hex: "01 02\n0a"}.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 10}, b)

	b, err = Region{Address: 1, Text: "R2-D2"}.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("R2-D2"), b)

	_, err = Region{Address: 1, Hex: "zz"}.Bytes()
	assert.Error(t, err)

	_, err = Region{Address: 1, Hex: "00", Text: "x"}.Bytes()
	assert.Error(t, err)
}
