package detect

import (
	"context"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
	"github.com/roach88/tcslink/internal/savedata"
)

// Game-mode and status-type values the free-play detector gates on.
const (
	GameModeFreePlay        uint8 = 1
	StatusTypeLevelComplete uint8 = 0
)

// FreePlayState is the free-play detector's phase.
type FreePlayState int

const (
	AwaitingActivity FreePlayState = iota
	ObservingResultScreen
	// Confirmed is terminal: every chapter completion is known.
	Confirmed
)

func (s FreePlayState) String() string {
	switch s {
	case AwaitingActivity:
		return "awaiting_activity"
	case ObservingResultScreen:
		return "observing_result_screen"
	case Confirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// FreePlay detects chapter completions in free play by watching for the
// chapter's result screen. The game keeps no record of free-play completion,
// so on each detection the detector persists the pattern itself and seeds
// from it on the next connection.
//
// Every completion this detector has seen is returned on every poll until
// the session confirms it; the engine filters to what is still missing.
type FreePlay struct {
	addrs     catalog.Addresses
	cat       *catalog.Catalog
	remaining progress.CheckSet
	confirmed progress.CheckSet

	state    FreePlayState
	observed progress.CheckID
}

// NewFreePlay seeds the detector from the save records: chapters whose
// unlocked byte holds the free-play pattern start confirmed.
func NewFreePlay(ctx context.Context, mem memory.Interface, cat *catalog.Catalog) (*FreePlay, error) {
	d := &FreePlay{
		addrs:     cat.Addresses,
		cat:       cat,
		remaining: progress.NewCheckSet(),
		confirmed: progress.NewCheckSet(),
	}
	for i := range cat.Chapters {
		ch := &cat.Chapters[i]
		b, err := memory.ReadUint8(ctx, mem, ch.Address.Add(savedata.OffUnlocked))
		if err != nil {
			return nil, err
		}
		if b == savedata.FreePlayComplete {
			d.confirmed.Add(ch.Completion)
		} else {
			d.remaining.Add(ch.Completion)
		}
	}
	if len(d.remaining) == 0 {
		d.state = Confirmed
	}
	return d, nil
}

func (d *FreePlay) Name() string { return "free_play" }

func (d *FreePlay) Remaining() int { return len(d.remaining) }

// State returns the current phase.
func (d *FreePlay) State() FreePlayState { return d.state }

// Completed returns every completion seen so far, including those already
// acknowledged by the session.
func (d *FreePlay) Completed() progress.CheckSet {
	out := progress.NewCheckSet()
	for id := range d.confirmed {
		out.Add(id)
	}
	return out
}

func (d *FreePlay) Poll(ctx context.Context, mem memory.Interface, view progress.View) ([]progress.CheckID, error) {
	for id := range view.Confirmed {
		d.remaining.Remove(id)
	}
	if d.state != Confirmed {
		if err := d.observe(ctx, mem); err != nil {
			return nil, err
		}
	}

	var out []progress.CheckID
	for _, id := range d.confirmed.Sorted() {
		if !view.Confirmed.Has(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// observe advances the state machine. The level id is read first: the
// status-type byte also reads as complete during ordinary play, so it is
// only meaningful once the level is known to be a result screen.
func (d *FreePlay) observe(ctx context.Context, mem memory.Interface) error {
	level, err := memory.ReadUint16(ctx, mem, d.addrs.CurrentLevel)
	if err != nil {
		return err
	}
	ch, ok := d.cat.ChapterByStatusLevel(level)
	if !ok {
		d.reset()
		return nil
	}
	if !d.remaining.Has(ch.Completion) {
		if d.state == ObservingResultScreen && d.observed == ch.Completion {
			return nil
		}
		d.reset()
		return nil
	}

	mode, err := memory.ReadUint8(ctx, mem, d.addrs.GameMode)
	if err != nil {
		return err
	}
	if mode != GameModeFreePlay {
		d.reset()
		return nil
	}
	status, err := memory.ReadUint8(ctx, mem, d.addrs.StatusType)
	if err != nil {
		return err
	}
	if status != StatusTypeLevelComplete {
		d.reset()
		return nil
	}

	if err := savedata.MarkFreePlayComplete(ctx, mem, ch.Address); err != nil {
		return err
	}
	d.remaining.Remove(ch.Completion)
	d.confirmed.Add(ch.Completion)
	d.state = ObservingResultScreen
	d.observed = ch.Completion
	return nil
}

// reset returns to AwaitingActivity, or Confirmed once nothing remains.
func (d *FreePlay) reset() {
	d.observed = 0
	if len(d.remaining) == 0 {
		d.state = Confirmed
		return
	}
	d.state = AwaitingActivity
}
