package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
	"github.com/roach88/tcslink/internal/savedata"
	"github.com/roach88/tcslink/internal/testutil"
)

const shopBase memory.Address = 0x5000

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	return cat
}

func TestPurchases_BitmaskScenario(t *testing.T) {
	ctx := context.Background()
	im := memory.NewImage()
	d := NewPurchases("shop", shopBase, Layout{0: {0x1: 1, 0x2: 2}})

	im.Poke(shopBase, []byte{0x01})
	got, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Equal(t, []progress.CheckID{1}, got)
	assert.Equal(t, 1, d.Remaining())
}

func TestPurchases_Idempotent(t *testing.T) {
	ctx := context.Background()
	im := memory.NewImage()
	d := NewPurchases("shop", shopBase, Layout{0: {0x1: 1}})
	im.Poke(shopBase, []byte{0x01})

	first, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	second, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)

	assert.Equal(t, []progress.CheckID{1}, first)
	assert.Empty(t, second)
}

func TestPurchases_MinimalRead(t *testing.T) {
	ctx := context.Background()
	im := memory.NewImage()
	layout := make(Layout)
	layout.Add(0, 10)  // byte 0
	layout.Add(17, 11) // byte 2
	layout.Add(40, 12) // byte 5
	d := NewPurchases("shop", shopBase, layout)

	_, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Equal(t, []memory.Access{{Addr: shopBase, Len: 6}}, im.Reads())

	// Byte 0 bought, byte 5 confirmed elsewhere: only byte 2 stays remaining.
	im.Poke(shopBase, []byte{0x01})
	_, err = d.Poll(ctx, im, progress.View{Confirmed: progress.NewCheckSet(12)})
	require.NoError(t, err)

	im.ResetLog()
	_, err = d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Equal(t, []memory.Access{{Addr: shopBase.Add(2), Len: 1}}, im.Reads())
}

func TestPurchases_NothingRemainingReadsNothing(t *testing.T) {
	ctx := context.Background()
	im := memory.NewImage()
	d := NewPurchases("shop", shopBase, Layout{0: {0x1: 1}})

	got, err := d.Poll(ctx, im, progress.View{Confirmed: progress.NewCheckSet(1)})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, im.Reads())
}

func TestPurchases_ConnectionLost(t *testing.T) {
	ctx := context.Background()
	im := memory.NewImage()
	im.FailAfter(0, errors.New("gone"))
	d := NewPurchases("shop", shopBase, Layout{0: {0x1: 1}})

	_, err := d.Poll(ctx, im, progress.View{})
	assert.True(t, memory.IsConnectionLost(err))
	assert.Equal(t, 1, d.Remaining())
}

func TestCharacterPurchases_FromCatalog(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	d := CharacterPurchases(cat)

	// Slot 0 (Boba Fett) and slot 17 (Stormtrooper).
	im.Poke(cat.Addresses.CharacterShop, []byte{0x01, 0x00, 0x02})
	got, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)

	boba, _ := cat.FactByName("Boba Fett")
	trooper, _ := cat.FactByName("Stormtrooper")
	bc, _ := cat.Character(boba)
	tc, _ := cat.Character(trooper)
	assert.Equal(t, []progress.CheckID{bc.Purchase, tc.Purchase}, got)
}

func TestExtraPurchases_IncludesScoreMultipliers(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	d := ExtraPurchases(cat)

	// Extra 23 is Score x2: byte 2, bit 7.
	im.Poke(cat.Addresses.ExtrasShop.Add(2), []byte{0x80})
	got, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Purchase Score x2", cat.CheckName(got[0]))
}

func TestThresholds_Scenario(t *testing.T) {
	ctx := context.Background()
	im := memory.NewImage()
	const counter memory.Address = 0x6000
	d := NewThresholds("all_collected", ByteCounter(counter), NewThresholdSet(Threshold{Check: 42, Min: 10}))

	var confirmedAt []int
	for i, v := range []byte{3, 7, 10} {
		im.Poke(counter, []byte{v})
		got, err := d.Poll(ctx, im, progress.View{})
		require.NoError(t, err)
		if len(got) > 0 {
			assert.Equal(t, []progress.CheckID{42}, got)
			confirmedAt = append(confirmedAt, i+1)
		}
	}
	assert.Equal(t, []int{3}, confirmedAt)
}

func TestThresholds_NeverReconsidered(t *testing.T) {
	ctx := context.Background()
	im := memory.NewImage()
	const counter memory.Address = 0x6000
	d := NewThresholds("meter", ByteCounter(counter), NewThresholdSet(
		Threshold{Check: 2, Min: 200},
		Threshold{Check: 1, Min: 100},
	))
	assert.Equal(t, 2, d.Remaining())

	im.Poke(counter, []byte{150})
	got, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Equal(t, []progress.CheckID{1}, got)
	assert.Equal(t, 1, d.Remaining())

	// Counter drops, then rises past both.
	im.Poke(counter, []byte{0})
	got, _ = d.Poll(ctx, im, progress.View{})
	assert.Empty(t, got)

	im.Poke(counter, []byte{250})
	got, _ = d.Poll(ctx, im, progress.View{})
	assert.Equal(t, []progress.CheckID{2}, got)
	assert.Zero(t, d.Remaining())

	im.ResetLog()
	got, _ = d.Poll(ctx, im, progress.View{})
	assert.Empty(t, got)
	assert.Empty(t, im.Reads(), "no thresholds left, no reads")
}

func TestThresholdSet_Drop(t *testing.T) {
	s := NewThresholdSet(Threshold{Check: 1, Min: 1}, Threshold{Check: 2, Min: 2})
	s.Drop(progress.NewCheckSet(1))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []progress.CheckID{2}, s.Observe(5))
	assert.Zero(t, s.Len())
}

func TestTrueJediMinikits_SavePath(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	d := NewTrueJediMinikits(cat)
	perChapter := 1 + catalog.MinikitsPerChapter
	assert.Equal(t, len(cat.Chapters)*perChapter, d.Remaining())

	ch, _ := cat.ChapterByShort("1-2")
	rec := testutil.VanillaRecord()
	rec.Unlocked = savedata.FlagUnlocked
	rec.TrueJediAlt = 1
	rec.Minikits = 2
	im.Poke(ch.Address, rec.Encode())
	im.Poke(cat.Addresses.CurrentArea, []byte{0xFF})

	got, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []progress.CheckID{ch.TrueJedi, ch.Minikits[0], ch.Minikits[1]}, got)
	assert.Equal(t, len(cat.Chapters)*perChapter-3, d.Remaining())

	got, err = d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTrueJediMinikits_SaveReadIsOneSpan(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	d := NewTrueJediMinikits(cat)
	im.Poke(cat.Addresses.CurrentArea, []byte{0xFF})

	_, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)

	first := cat.Chapters[0].Address
	last := cat.Chapters[len(cat.Chapters)-1].Address
	reads := im.Reads()
	require.Len(t, reads, 2)
	assert.Equal(t, memory.Access{Addr: first, Len: int(last-first) + savedata.RecordSize}, reads[0])
	assert.Equal(t, memory.Access{Addr: cat.Addresses.CurrentArea, Len: 1}, reads[1])
}

func TestTrueJediMinikits_LivePath(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	d := NewTrueJediMinikits(cat)
	ch, _ := cat.ChapterByShort("4-1")
	a := cat.Addresses

	im.Poke(a.CurrentArea, []byte{ch.Area})
	im.Poke(a.LiveMinikits, []byte{3})
	require.NoError(t, memory.WriteUint32(ctx, im, a.LiveStudsP1, 40000))
	require.NoError(t, memory.WriteUint32(ctx, im, a.LiveStudsP2, 0))
	require.NoError(t, memory.WriteUint32(ctx, im, a.TrueJediMeter, 50000))

	got, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Equal(t, []progress.CheckID{ch.Minikits[0], ch.Minikits[1], ch.Minikits[2]}, got)

	// Meter stops at the True Jedi requirement; studs pass it.
	require.NoError(t, memory.WriteUint32(ctx, im, a.LiveStudsP2, 10001))
	got, err = d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Equal(t, []progress.CheckID{ch.TrueJedi}, got)

	// Leaving without saving resets the live counter; nothing is revoked or re-sent.
	im.Poke(a.LiveMinikits, []byte{0})
	got, err = d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTrueJediMinikits_LiveThenSaveIsNoop(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	d := NewTrueJediMinikits(cat)
	ch, _ := cat.ChapterByShort("1-1")

	im.Poke(cat.Addresses.CurrentArea, []byte{ch.Area})
	im.Poke(cat.Addresses.LiveMinikits, []byte{1})
	got, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Equal(t, []progress.CheckID{ch.Minikits[0]}, got)

	// The result screen persists the same minikit.
	rec := testutil.VanillaRecord()
	rec.Minikits = 1
	im.Poke(ch.Address, rec.Encode())
	got, err = d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTrueJediMinikits_SessionConfirmedDropped(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	d := NewTrueJediMinikits(cat)
	ch, _ := cat.ChapterByShort("1-1")

	rec := testutil.VanillaRecord()
	rec.TrueJedi = 1
	im.Poke(ch.Address, rec.Encode())
	im.Poke(cat.Addresses.CurrentArea, []byte{0xFF})

	got, err := d.Poll(ctx, im, progress.View{Confirmed: progress.NewCheckSet(ch.TrueJedi)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func freePlayAt(t *testing.T, im *memory.Image, cat *catalog.Catalog, level uint16, mode, status uint8) {
	t.Helper()
	im.Poke(cat.Addresses.CurrentLevel, []byte{byte(level), byte(level >> 8)})
	im.Poke(cat.Addresses.GameMode, []byte{mode})
	im.Poke(cat.Addresses.StatusType, []byte{status})
}

func TestFreePlay_DetectsAndPersists(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	ch, _ := cat.ChapterByShort("2-3")
	im.Poke(ch.Address, []byte{savedata.FlagUnlocked})

	d, err := NewFreePlay(ctx, im, cat)
	require.NoError(t, err)
	assert.Equal(t, AwaitingActivity, d.State())

	freePlayAt(t, im, cat, ch.StatusLevel, GameModeFreePlay, StatusTypeLevelComplete)
	got, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Equal(t, []progress.CheckID{ch.Completion}, got)
	assert.Equal(t, ObservingResultScreen, d.State())
	assert.Equal(t, []byte{savedata.FreePlayComplete}, im.Peek(ch.Address, 1))

	// Still on the result screen: no second write, completion re-sent until acknowledged.
	im.ResetLog()
	got, err = d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Equal(t, []progress.CheckID{ch.Completion}, got)
	assert.Empty(t, im.Writes())

	got, err = d.Poll(ctx, im, progress.View{Confirmed: progress.NewCheckSet(ch.Completion)})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, d.Completed().Has(ch.Completion))
}

func TestFreePlay_LevelIDGatesFirst(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	d, err := NewFreePlay(ctx, im, cat)
	require.NoError(t, err)

	// Status byte reads "complete" during ordinary play; unknown level id must short-circuit.
	freePlayAt(t, im, cat, 9999, GameModeFreePlay, StatusTypeLevelComplete)
	im.ResetLog()
	got, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []memory.Access{{Addr: cat.Addresses.CurrentLevel, Len: 2}}, im.Reads())
	assert.Empty(t, im.Writes())
}

func TestFreePlay_StoryModeAndSaveAndExitIgnored(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	ch, _ := cat.ChapterByShort("1-1")
	d, err := NewFreePlay(ctx, im, cat)
	require.NoError(t, err)

	freePlayAt(t, im, cat, ch.StatusLevel, 0, StatusTypeLevelComplete)
	got, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Empty(t, got)

	freePlayAt(t, im, cat, ch.StatusLevel, GameModeFreePlay, 0x8)
	got, err = d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, AwaitingActivity, d.State())
	assert.Empty(t, im.Writes())
}

func TestFreePlay_SessionConfirmedIsNotMissing(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	ch, _ := cat.ChapterByShort("1-1")
	d, err := NewFreePlay(ctx, im, cat)
	require.NoError(t, err)

	freePlayAt(t, im, cat, ch.StatusLevel, GameModeFreePlay, StatusTypeLevelComplete)
	got, err := d.Poll(ctx, im, progress.View{Confirmed: progress.NewCheckSet(ch.Completion)})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, im.Writes())
}

func TestFreePlay_SaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	done1, _ := cat.ChapterByShort("1-4")
	done2, _ := cat.ChapterByShort("5-2")
	partial, _ := cat.ChapterByShort("3-1")
	im.Poke(done1.Address, []byte{savedata.FreePlayComplete, 1})
	im.Poke(done2.Address, []byte{savedata.FreePlayComplete, 1})
	im.Poke(partial.Address, []byte{savedata.FlagUnlocked, 1})

	d, err := NewFreePlay(ctx, im, cat)
	require.NoError(t, err)
	assert.Equal(t, []progress.CheckID{done1.Completion, done2.Completion}, d.Completed().Sorted())

	im.Poke(cat.Addresses.CurrentLevel, []byte{0, 0})
	got, err := d.Poll(ctx, im, progress.View{})
	require.NoError(t, err)
	assert.Equal(t, []progress.CheckID{done1.Completion, done2.Completion}, got)

	// A second instance over the same image agrees exactly.
	again, err := NewFreePlay(ctx, im, cat)
	require.NoError(t, err)
	assert.Equal(t, d.Completed().Sorted(), again.Completed().Sorted())
}

func TestFreePlay_AllCompleteIsTerminal(t *testing.T) {
	ctx := context.Background()
	cat := loadCatalog(t)
	im := memory.NewImage()
	for _, ch := range cat.Chapters {
		im.Poke(ch.Address, []byte{savedata.FreePlayComplete})
	}

	d, err := NewFreePlay(ctx, im, cat)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, d.State())

	im.ResetLog()
	got, err := d.Poll(ctx, im, progress.View{Confirmed: cat.AllChecks()})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, im.Reads())
}
