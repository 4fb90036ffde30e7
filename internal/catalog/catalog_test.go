package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tcslink/internal/ability"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
)

func loadDefault(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Load()
	require.NoError(t, err)
	return cat
}

func TestLoad_Chapters(t *testing.T) {
	cat := loadDefault(t)
	require.Len(t, cat.Chapters, 36)

	first := cat.Chapters[0]
	assert.Equal(t, "1-1", first.Short)
	assert.Equal(t, "Negotiations", first.Name)
	assert.Equal(t, memory.Address(0x86E0F4), first.Address)
	assert.Equal(t, uint16(7), first.StatusLevel)
	assert.Equal(t, uint8(0), first.Area)
	assert.Empty(t, first.Requirements)

	last := cat.Chapters[35]
	assert.Equal(t, "6-6", last.Short)
	assert.Equal(t, memory.Address(0x86E370), last.Address)
	assert.Equal(t, uint16(297), last.StatusLevel)
	assert.Equal(t, uint8(53), last.Area)
	assert.Equal(t, 6, last.Episode)
	assert.Equal(t, 6, last.Number)
}

func TestLoad_EpisodeUnlockRequired(t *testing.T) {
	cat := loadDefault(t)

	ch, ok := cat.ChapterByShort("2-1")
	require.True(t, ok)
	unlock, ok := cat.EpisodeUnlock(2)
	require.True(t, ok)
	speeder, ok := cat.FactByName("Anakin's Speeder")
	require.True(t, ok)
	assert.Equal(t, []progress.Fact{speeder, unlock}, ch.Requirements)

	// Episode 1 needs no unlock fact.
	ch, _ = cat.ChapterByShort("1-2")
	jarjar, _ := cat.FactByName("Jar Jar Binks")
	assert.Equal(t, []progress.Fact{jarjar}, ch.Requirements)
}

func TestLoad_CheckIDs(t *testing.T) {
	cat := loadDefault(t)

	ch, _ := cat.ChapterByShort("1-2")
	assert.Equal(t, progress.CheckID(1016), ch.Completion)
	assert.Equal(t, progress.CheckID(1017), ch.TrueJedi)
	assert.Equal(t, progress.CheckID(1018), ch.Minikits[0])
	assert.Equal(t, progress.CheckID(1027), ch.Minikits[9])
	assert.Len(t, ch.Checks(), 12)
	assert.Equal(t, "1-2 Minikit 10", cat.CheckName(ch.Minikits[9]))

	boba, ok := cat.Character(56)
	require.True(t, ok)
	assert.Equal(t, progress.CheckID(2000), boba.Purchase)
	assert.Equal(t, "Purchase Boba Fett", cat.CheckName(boba.Purchase))

	all := cat.AllChecks()
	assert.True(t, all.Has(boba.Purchase))
	assert.True(t, all.Has(cat.Bases.ExtraPurchase+35))
	assert.False(t, cat.KnownCheck(999))
	assert.Equal(t, "check 999", cat.CheckName(999))
}

func TestLoad_Deterministic(t *testing.T) {
	a := loadDefault(t)
	b := loadDefault(t)
	assert.Equal(t, a.AllChecks().Sorted(), b.AllChecks().Sorted())
	assert.Equal(t, a.Facts(), b.Facts())
}

func TestLoad_Lookups(t *testing.T) {
	cat := loadDefault(t)

	ch, ok := cat.ChapterByArea(53)
	require.True(t, ok)
	assert.Equal(t, "Into The Death Star", ch.Name)

	ch, ok = cat.ChapterByStatusLevel(7)
	require.True(t, ok)
	assert.Equal(t, "1-1", ch.Short)

	_, ok = cat.ChapterByArea(255)
	assert.False(t, ok)

	assert.Equal(t, "Purple Stud", cat.FactName(cat.Generic.PurpleStud))
	assert.Equal(t, "fact 9999", cat.FactName(9999))
	assert.False(t, cat.KnownFact(9999))

	id, ok := cat.CheckByName("1-1 Completion")
	require.True(t, ok)
	assert.Equal(t, ch.Completion, id)
	_, ok = cat.CheckByName("1-1 Minikit 11")
	assert.False(t, ok)
}

func TestLoad_ScoreMultipliersHaveNoFact(t *testing.T) {
	cat := loadDefault(t)
	for _, ex := range cat.Extras {
		if strings.HasPrefix(ex.Name, "Score x") {
			assert.Zero(t, ex.Fact, ex.Name)
			assert.True(t, cat.KnownCheck(ex.Purchase), ex.Name)
		}
	}
}

func TestLoad_BonusDoors(t *testing.T) {
	cat := loadDefault(t)
	require.Len(t, cat.Bonuses, 6)

	door4 := cat.Bonuses[3]
	assert.Equal(t, 4, door4.Door)
	var names []string
	for _, f := range door4.Requirements {
		names = append(names, cat.FactName(f))
	}
	assert.Equal(t, []string{"Darth Vader", "Stormtrooper", "C-3PO"}, names)
	assert.Empty(t, cat.Bonuses[4].Requirements)
}

func TestAbilities(t *testing.T) {
	cat := loadDefault(t)
	assert.Equal(t, StartingAbilities, cat.Abilities(progress.Inventory{}))

	boba, _ := cat.FactByName("Boba Fett")
	r2, _ := cat.FactByName("R2-D2")
	got := cat.Abilities(progress.NewInventory(boba, r2, cat.Generic.PurpleStud))
	assert.True(t, got.Has(ability.BountyHunter|ability.Astromech|ability.Jedi))
	assert.False(t, got.Has(ability.Sith))
}

func TestLoadBytes_SchemaViolation(t *testing.T) {
	src := strings.Replace(string(source), `area: 53,`, `area: 900,`, 1)
	_, err := LoadBytes("bad.cue", []byte(src))
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "cue", le.Field)
}

func TestLoadBytes_UnknownCharacter(t *testing.T) {
	src := strings.Replace(string(source), `requires: ["Jar Jar Binks"]`, `requires: ["Jar Jar Stinks"]`, 1)
	_, err := LoadBytes("bad.cue", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Jar Jar Stinks")
}

func TestLoadBytes_DuplicateFactID(t *testing.T) {
	src := strings.Replace(string(source), `{name: "Greedo", id: 57,`, `{name: "Greedo", id: 56,`, 1)
	_, err := LoadBytes("bad.cue", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used by Boba Fett")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.cue")
	require.NoError(t, os.WriteFile(path, source, 0o644))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, cat.Chapters, 36)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}
