package detect

import (
	"context"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
	"github.com/roach88/tcslink/internal/savedata"
)

type chapterChecks struct {
	ch       *catalog.Chapter
	trueJedi bool // still remaining
	minikits *ThresholdSet

	// live shares minikits, reading the in-level counter instead of the
	// save record.
	live *Thresholds
}

func (c *chapterChecks) done() bool { return !c.trueJedi && c.minikits.Len() == 0 }

// TrueJediMinikits confirms True Jedi and minikit checks from two sources:
// the live in-level counters for the chapter currently being played, and
// the persisted save record once the result screen has written it. Either
// source may confirm a check first; the other then finds it gone from the
// remaining set.
type TrueJediMinikits struct {
	addrs    catalog.Addresses
	chapters []*chapterChecks
	byArea   map[uint8]*chapterChecks
}

// NewTrueJediMinikits builds remaining sets for every chapter.
func NewTrueJediMinikits(cat *catalog.Catalog) *TrueJediMinikits {
	d := &TrueJediMinikits{
		addrs:  cat.Addresses,
		byArea: make(map[uint8]*chapterChecks, len(cat.Chapters)),
	}
	for i := range cat.Chapters {
		ch := &cat.Chapters[i]
		ts := make([]Threshold, catalog.MinikitsPerChapter)
		for k, id := range ch.Minikits {
			ts[k] = Threshold{Check: id, Min: uint32(k + 1)}
		}
		set := NewThresholdSet(ts...)
		cc := &chapterChecks{
			ch:       ch,
			trueJedi: true,
			minikits: set,
			live:     NewThresholds("live_minikits_"+ch.Short, ByteCounter(cat.Addresses.LiveMinikits), set),
		}
		d.chapters = append(d.chapters, cc)
		d.byArea[ch.Area] = cc
	}
	return d
}

func (d *TrueJediMinikits) Name() string { return "true_jedi_minikits" }

func (d *TrueJediMinikits) Remaining() int {
	n := 0
	for _, cc := range d.chapters {
		n += cc.minikits.Len()
		if cc.trueJedi {
			n++
		}
	}
	return n
}

func (d *TrueJediMinikits) Poll(ctx context.Context, mem memory.Interface, view progress.View) ([]progress.CheckID, error) {
	d.drop(view.Confirmed)

	found, err := d.pollSave(ctx, mem)
	if err != nil {
		return nil, err
	}
	live, err := d.pollLive(ctx, mem, view)
	if err != nil {
		return nil, err
	}
	return append(found, live...), nil
}

func (d *TrueJediMinikits) drop(confirmed progress.CheckSet) {
	for _, cc := range d.chapters {
		if cc.trueJedi && confirmed.Has(cc.ch.TrueJedi) {
			cc.trueJedi = false
		}
		cc.minikits.Drop(confirmed)
	}
}

// pollSave issues one read spanning every chapter record that still has
// remaining checks.
func (d *TrueJediMinikits) pollSave(ctx context.Context, mem memory.Interface) ([]progress.CheckID, error) {
	var pending []*chapterChecks
	for _, cc := range d.chapters {
		if !cc.done() {
			pending = append(pending, cc)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	lo, hi := pending[0].ch.Address, pending[0].ch.Address
	for _, cc := range pending[1:] {
		lo = min(lo, cc.ch.Address)
		hi = max(hi, cc.ch.Address)
	}
	buf, err := mem.ReadBytes(ctx, lo, int(hi-lo)+savedata.RecordSize)
	if err != nil {
		return nil, err
	}

	var found []progress.CheckID
	for _, cc := range pending {
		off := int(cc.ch.Address - lo)
		rec, err := savedata.Decode(buf[off : off+savedata.RecordSize])
		if err != nil {
			return nil, err
		}
		if cc.trueJedi && rec.TrueJediCompleted() {
			cc.trueJedi = false
			found = append(found, cc.ch.TrueJedi)
		}
		found = append(found, cc.minikits.Observe(uint32(rec.Minikits))...)
	}
	return found, nil
}

// pollLive reads the in-level counters for the current area. The live
// minikit counter resets when the player leaves without saving; thresholds
// already met stay confirmed.
func (d *TrueJediMinikits) pollLive(ctx context.Context, mem memory.Interface, view progress.View) ([]progress.CheckID, error) {
	area, err := memory.ReadUint8(ctx, mem, d.addrs.CurrentArea)
	if err != nil {
		return nil, err
	}
	cc, ok := d.byArea[area]
	if !ok || cc.done() {
		return nil, nil
	}

	found, err := cc.live.Poll(ctx, mem, view)
	if err != nil {
		return nil, err
	}
	if cc.trueJedi {
		ok, err := d.trueJediMet(ctx, mem)
		if err != nil {
			return nil, err
		}
		if ok {
			cc.trueJedi = false
			found = append(found, cc.ch.TrueJedi)
		}
	}
	return found, nil
}

func (d *TrueJediMinikits) trueJediMet(ctx context.Context, mem memory.Interface) (bool, error) {
	p1, err := memory.ReadUint32(ctx, mem, d.addrs.LiveStudsP1)
	if err != nil {
		return false, err
	}
	p2, err := memory.ReadUint32(ctx, mem, d.addrs.LiveStudsP2)
	if err != nil {
		return false, err
	}
	meter, err := memory.ReadUint32(ctx, mem, d.addrs.TrueJediMeter)
	if err != nil {
		return false, err
	}
	// The meter stops rising once True Jedi is reached, so combined studs
	// passing it means the meter is full.
	return uint64(p1)+uint64(p2) > uint64(meter), nil
}
