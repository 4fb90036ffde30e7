package ability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_Operations(t *testing.T) {
	s := Jedi.Union(Astromech)

	assert.True(t, s.Has(Jedi))
	assert.True(t, s.Has(Jedi|Astromech))
	assert.False(t, s.Has(Sith))
	assert.Equal(t, Astromech, s.Without(Jedi))
	assert.Equal(t, 2, s.Len())
}

func TestSet_Covers(t *testing.T) {
	tests := []struct {
		name string
		have Set
		req  Set
		want bool
	}{
		{"empty requirement", None, None, true},
		{"exact", Sith | HighJump, Sith | HighJump, true},
		{"superset", Sith | HighJump | Blaster, Sith | HighJump, true},
		{"missing one", Sith, Sith | HighJump, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.have.Covers(tt.req))
		})
	}
}

func TestSet_String(t *testing.T) {
	assert.Equal(t, "NONE", None.String())
	assert.Equal(t, "JEDI|SITH", (Sith | Jedi).String())
	assert.Equal(t, "VEHICLE_TOW|0x80000000", (VehicleTow | Set(1<<31)).String())
}

func TestParseAll(t *testing.T) {
	s, err := ParseAll([]string{"sith", "HIGH_JUMP", "none"})
	require.NoError(t, err)
	assert.Equal(t, Sith|HighJump, s)

	_, err = ParseAll([]string{"FLYING"})
	assert.Error(t, err)
}
