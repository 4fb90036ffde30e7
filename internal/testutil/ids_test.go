package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs(t *testing.T) {
	gen := NewSequentialIDs("")
	assert.Equal(t, "conn-1", gen.Generate())
	assert.Equal(t, "conn-2", gen.Generate())

	other := NewSequentialIDs("scenario")
	assert.Equal(t, "scenario-1", other.Generate())
}
