package savedata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tcslink/internal/memory"
)

const addr memory.Address = 0x86E0F4

func TestDecode_Layout(t *testing.T) {
	raw := []byte{0x03, 0x01, 0x00, 0x01, 0x01, 0x07, 0x01, 0x00, 0x00, 0x00, 0x96, 0x44}
	r, err := Decode(raw)
	require.NoError(t, err)

	assert.True(t, r.IsUnlocked())
	assert.True(t, r.FreePlayCompleted())
	assert.True(t, r.TrueJediCompleted(), "alternate byte alone counts")
	assert.True(t, r.GoldBrickCollected())
	assert.Equal(t, uint8(7), r.Minikits)
	assert.Equal(t, DefaultChallengeTime, r.ChallengeTime)
	assert.Equal(t, raw, r.Encode())
}

func TestDecode_Short(t *testing.T) {
	_, err := Decode(make([]byte, RecordSize-1))
	assert.Error(t, err)
}

func TestFreePlayCompleted_RequiresBothBits(t *testing.T) {
	assert.False(t, Record{Unlocked: FlagUnlocked}.FreePlayCompleted())
	assert.False(t, Record{Unlocked: FlagFreePlay}.FreePlayCompleted())
	assert.True(t, Record{Unlocked: FreePlayComplete}.FreePlayCompleted())
}

func TestEncode_NeverPlayed(t *testing.T) {
	v := Record{ChallengeTime: DefaultChallengeTime}
	assert.False(t, v.IsUnlocked())
	assert.False(t, v.TrueJediCompleted())
	assert.False(t, v.GoldBrickCollected())
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0x00, 0x00, 0x96, 0x44}, v.Encode())
}

func TestWriters(t *testing.T) {
	ctx := context.Background()
	im := memory.NewImage()
	rec := Record{Minikits: 9, PowerBrick: 1, ChallengeTime: DefaultChallengeTime}
	im.Poke(addr, rec.Encode())

	require.NoError(t, MarkFreePlayComplete(ctx, im, addr))
	require.NoError(t, WriteChallengeTime(ctx, im, addr, 3))

	r, err := Read(ctx, im, addr)
	require.NoError(t, err)
	assert.True(t, r.FreePlayCompleted())
	assert.Equal(t, uint8(9), r.Minikits, "minikit byte untouched")
	assert.Equal(t, uint8(1), r.PowerBrick, "power brick byte untouched")

	f, err := ReadChallengeTime(ctx, im, addr)
	require.NoError(t, err)
	assert.Equal(t, float32(3), f)
}
