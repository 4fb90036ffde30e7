// Package display shows short in-game notifications by borrowing a string
// the game already renders: the "Double Score Zone!" banner.
//
// The display locates the banner through a localisation-stable anchor,
// snapshots the original bytes, and overwrites them with one message at a
// time when the game is in a state where the banner can safely appear. The
// original bytes are written back once the queue drains, and unconditionally
// on Shutdown, so a detached game is left with vanilla text.
package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/memory"
)

// Defaults for message pacing.
const (
	DefaultDelay    = 2 * time.Second
	DefaultDuration = 4 * time.Second

	// restoreGrace is added to a message's duration before the banner may be
	// restored.
	restoreGrace = time.Second
)

// State is the display lifecycle.
type State int

const (
	Uninitialized State = iota
	Locating
	Active
	Disabled
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Locating:
		return "locating"
	case Active:
		return "active"
	case Disabled:
		return "disabled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Display owns the borrowed banner region for one connection.
//
// Queue may be called from any goroutine. Locate, Tick and Shutdown must be
// called from the poll loop only.
type Display struct {
	addrs    catalog.Addresses
	delay    time.Duration
	duration time.Duration
	now      func() time.Time
	logger   *slog.Logger

	state    State
	language Language
	region   memory.Address
	vanilla  []byte
	dirty    bool
	queue    *messageQueue

	nextMessage time.Time
	nextRestore time.Time
}

// Option configures a Display.
type Option func(*Display)

// WithDelay sets the minimum gap between messages.
func WithDelay(d time.Duration) Option {
	return func(dp *Display) { dp.delay = d }
}

// WithDuration sets how long each message is shown.
func WithDuration(d time.Duration) Option {
	return func(dp *Display) { dp.duration = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(dp *Display) { dp.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(dp *Display) { dp.logger = l }
}

// New returns an uninitialized display.
func New(addrs catalog.Addresses, opts ...Option) *Display {
	d := &Display{
		addrs:    addrs,
		delay:    DefaultDelay,
		duration: DefaultDuration,
		now:      time.Now,
		logger:   slog.Default(),
		queue:    newMessageQueue(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the lifecycle state.
func (d *Display) State() State { return d.state }

// Language returns the detected localisation. Valid once Active.
func (d *Display) Language() Language { return d.language }

// Region returns the borrowed address range. Valid once Active.
func (d *Display) Region() (memory.Address, int) { return d.region, len(d.vanilla) }

// Dirty reports whether the banner currently holds a message.
func (d *Display) Dirty() bool { return d.dirty }

// Pending returns the queue length.
func (d *Display) Pending() int { return d.queue.Len() }

// Locate finds the banner and snapshots it. A missing anchor or unknown
// language disables the display for the rest of the connection and is not
// an error; memory failures are.
func (d *Display) Locate(ctx context.Context, mem memory.Interface) error {
	if d.state != Uninitialized {
		return nil
	}
	d.state = Locating

	anchor, err := mem.PatternSearch(ctx, []byte(Anchor))
	if errors.Is(err, memory.ErrPatternNotFound) {
		d.disable("anchor not found")
		return nil
	}
	if err != nil {
		d.state = Uninitialized
		return err
	}

	before, err := mem.ReadBytes(ctx, anchor.Add(-lookbehind), lookbehind)
	if err != nil {
		d.state = Uninitialized
		return err
	}
	lang, ok := detectLanguage(before)
	if !ok {
		d.disable("unknown language")
		return nil
	}

	region := anchor.Add(lang.StartOffset)
	vanilla, err := mem.ReadBytes(ctx, region, lang.MaxMessageSize())
	if err != nil {
		d.state = Uninitialized
		return err
	}

	d.language = lang
	d.region = region
	d.vanilla = vanilla
	d.state = Active
	d.logger.Debug("display located",
		"language", lang.Name,
		"region", region.String(),
		"size", len(vanilla))
	return nil
}

func (d *Display) disable(reason string) {
	d.state = Disabled
	d.queue.Clear()
	d.logger.Warn("in-game messages disabled", "reason", reason)
}

// Queue appends a message with the configured pacing. Messages queued
// while Disabled are dropped.
func (d *Display) Queue(text string) {
	d.QueueMessage(PendingMessage{Text: text, Delay: d.delay, Duration: d.duration})
}

// QueueMessage appends m as given.
func (d *Display) QueueMessage(m PendingMessage) {
	if d.state == Disabled {
		return
	}
	d.queue.Enqueue(m)
}

// Tick shows at most one message, or restores the banner once the queue has
// drained and the last message has expired.
func (d *Display) Tick(ctx context.Context, mem memory.Interface) error {
	if d.state != Active {
		return nil
	}
	now := d.now()
	if now.Before(d.nextMessage) {
		return nil
	}

	if d.queue.Len() == 0 {
		if d.dirty && now.After(d.nextRestore) {
			return d.restore(ctx, mem)
		}
		return nil
	}

	ok, err := d.safe(ctx, mem)
	if err != nil || !ok {
		return err
	}
	msg, ok := d.queue.TryDequeue()
	if !ok {
		return nil
	}
	return d.show(ctx, mem, msg, now)
}

// safe reports whether the banner can be shown now: not paused or on a
// status screen, not tabbed out, no menu open, not mid-transition, and in a
// playable game state. Reads stop at the first failing condition.
func (d *Display) safe(ctx context.Context, mem memory.Interface) (bool, error) {
	checks := []struct {
		addr memory.Address
		ok   func(uint8) bool
	}{
		{d.addrs.Paused, func(v uint8) bool { return v != 0 }},
		{d.addrs.TabbedOut, func(v uint8) bool { return v != 1 }},
		{d.addrs.MenuDepth, func(v uint8) bool { return v == 0 }},
		{d.addrs.IsPlaying, func(v uint8) bool { return v == 0 }},
		{d.addrs.GameState, func(v uint8) bool { return v >= 1 && v <= 2 }},
	}
	for _, c := range checks {
		v, err := memory.ReadUint8(ctx, mem, c.addr)
		if err != nil {
			return false, err
		}
		if !c.ok(v) {
			return false, nil
		}
	}
	return true, nil
}

// Encode renders text into the banner region: NFC-normalised UTF-8, cut at
// a rune boundary to fit, NUL-terminated, then padded with the original
// bytes so the strings after it stay intact.
func (d *Display) Encode(text string) []byte {
	s := norm.NFC.String(strings.ToValidUTF8(text, "\uFFFD"))
	limit := len(d.vanilla) - 1
	for len(s) > limit {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	out := make([]byte, 0, len(d.vanilla))
	out = append(out, s...)
	out = append(out, 0)
	return append(out, d.vanilla[len(out):]...)
}

func (d *Display) show(ctx context.Context, mem memory.Interface, msg PendingMessage, now time.Time) error {
	// Mark dirty before writing: a failed write may still have landed.
	d.dirty = true
	if err := mem.WriteBytes(ctx, d.region, d.Encode(msg.Text)); err != nil {
		return err
	}
	if err := memory.WriteFloat32(ctx, mem, d.addrs.DisplayTimer, float32(msg.Duration.Seconds())); err != nil {
		return err
	}

	d.nextMessage = now.Add(msg.Delay)
	d.nextRestore = now.Add(msg.Duration + restoreGrace)
	if d.nextRestore.Before(d.nextMessage) {
		d.nextRestore = d.nextMessage
	}
	d.logger.Debug("displayed message", "text", msg.Text)
	return nil
}

func (d *Display) restore(ctx context.Context, mem memory.Interface) error {
	if err := mem.WriteBytes(ctx, d.region, d.vanilla); err != nil {
		return err
	}
	d.dirty = false
	return nil
}

// Shutdown drops pending messages and, if the banner holds a message,
// writes the original bytes back regardless of timing.
func (d *Display) Shutdown(ctx context.Context, mem memory.Interface) error {
	d.queue.Clear()
	if !d.dirty {
		return nil
	}
	if err := d.restore(ctx, mem); err != nil {
		return fmt.Errorf("restore banner: %w", err)
	}
	return nil
}
