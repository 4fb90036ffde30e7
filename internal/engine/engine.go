package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/detect"
	"github.com/roach88/tcslink/internal/display"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/mirror"
	"github.com/roach88/tcslink/internal/progress"
	"github.com/roach88/tcslink/internal/session"
	"github.com/roach88/tcslink/internal/unlock"
)

// Defaults.
const (
	DefaultPollInterval = 200 * time.Millisecond
	DefaultGoalBundles  = 54

	// shutdownTimeout bounds the banner restore after the caller's context
	// is gone.
	shutdownTimeout = 2 * time.Second
)

// Engine is the single-writer poll loop.
//
// Thread-safety model:
//   - QueueMessage(): safe from any goroutine
//   - Tick(), Run(), Connect(), Disconnect(), Connected(): one goroutine only
type Engine struct {
	cat   *catalog.Catalog
	mem   memory.Interface
	facts session.FactStore

	logger      *slog.Logger
	ticks       tickSeq
	ids         IDGenerator
	now         func() time.Time
	interval    time.Duration
	goalBundles int
	goalLabel   string
	displayOpts []display.Option
	strict      bool

	itemMessages  bool
	checkMessages bool

	inbox *inbox
	conn  *connection
}

// connection is everything derived from one successful attach. It is
// discarded whole on the first memory failure.
type connection struct {
	id     string
	logger *slog.Logger

	graph     *unlock.Graph
	detectors []detect.Detector
	mirrors   []mirror.Mirror
	display   *display.Display

	seen     progress.Inventory
	primed   bool
	pending  progress.CheckSet
	reported progress.CheckSet
	hinted   map[string]bool
	unknown  map[progress.Fact]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPollInterval sets the Run tick period. Default: 200ms.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithGoal sets the number of minikit bundles the goal text counts to.
func WithGoal(bundles int) Option {
	return func(e *Engine) {
		e.goalBundles = bundles
	}
}

// WithGoalLabel sets the word shown after the bundle count in the goal
// text. Default: mirror.DefaultGoalLabel.
func WithGoalLabel(label string) Option {
	return func(e *Engine) {
		if label != "" {
			e.goalLabel = label
		}
	}
}

// WithMessageTiming sets the display's inter-message delay and on-screen
// duration.
func WithMessageTiming(delay, duration time.Duration) Option {
	return func(e *Engine) {
		e.displayOpts = append(e.displayOpts, display.WithDelay(delay), display.WithDuration(duration))
	}
}

// WithClock sets the wall clock used for message pacing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator sets the connection id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithItemMessages toggles "Received ..." notifications. Default: on.
func WithItemMessages(on bool) Option {
	return func(e *Engine) {
		e.itemMessages = on
	}
}

// WithCheckMessages toggles "Found ..." notifications for reported checks.
// Default: off.
func WithCheckMessages(on bool) Option {
	return func(e *Engine) {
		e.checkMessages = on
	}
}

// Strict makes catalog/runtime mismatches in the unlock graph panic instead
// of being logged and skipped.
func Strict() Option {
	return func(e *Engine) {
		e.strict = true
	}
}

// New creates an engine over a catalog, a memory interface and a session
// fact store. No memory is touched until the first Tick or Connect.
func New(cat *catalog.Catalog, mem memory.Interface, facts session.FactStore, opts ...Option) *Engine {
	e := &Engine{
		cat:           cat,
		mem:           mem,
		facts:         facts,
		logger:        slog.Default(),
		ids:           UUIDv7Generator{},
		now:           time.Now,
		interval:      DefaultPollInterval,
		goalBundles:   DefaultGoalBundles,
		goalLabel:     mirror.DefaultGoalLabel,
		itemMessages:  true,
		checkMessages: false,
		inbox:         newInbox(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Connected reports whether a connection is live.
func (e *Engine) Connected() bool { return e.conn != nil }

// ConnID returns the live connection's id, or "" when disconnected.
func (e *Engine) ConnID() string {
	if e.conn == nil {
		return ""
	}
	return e.conn.id
}

// Display returns the live connection's display, or nil.
func (e *Engine) Display() *display.Display {
	if e.conn == nil {
		return nil
	}
	return e.conn.display
}

// QueueMessage queues text for in-game display. Messages queued while
// disconnected are shown once a connection is up. Returns false after Run
// has returned.
func (e *Engine) QueueMessage(text string) bool {
	return e.inbox.Enqueue(text)
}

// Connect builds a connection from fresh save-data reads. It is a no-op
// when already connected.
func (e *Engine) Connect(ctx context.Context) error {
	if e.conn != nil {
		return nil
	}
	id := e.ids.Generate()
	logger := e.logger.With("conn", id)

	graphOpts := []unlock.Option{unlock.WithLogger(logger)}
	if e.strict {
		graphOpts = append(graphOpts, unlock.Strict())
	}
	graph := unlock.New(graphOpts...)
	for i := range e.cat.Chapters {
		ch := &e.cat.Chapters[i]
		if err := graph.Register(unlock.NodeID(ch.Short), ch.Requirements); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
	}

	freePlay, err := detect.NewFreePlay(ctx, e.mem, e.cat)
	if err != nil {
		return NewConnectionLostError(id, e.ticks.last(), "connect", err)
	}

	opts := append([]display.Option{display.WithClock(e.now), display.WithLogger(logger)}, e.displayOpts...)
	disp := display.New(e.cat.Addresses, opts...)
	if err := disp.Locate(ctx, e.mem); err != nil {
		return NewConnectionLostError(id, e.ticks.last(), "connect", err)
	}

	e.conn = &connection{
		id:     id,
		logger: logger,
		graph:  graph,
		detectors: []detect.Detector{
			detect.CharacterPurchases(e.cat),
			detect.ExtraPurchases(e.cat),
			detect.NewTrueJediMinikits(e.cat),
			freePlay,
		},
		mirrors: []mirror.Mirror{
			mirror.NewChapters(e.cat, graph, freePlay),
			mirror.NewBonuses(e.cat),
			mirror.NewGoalText(e.cat, e.goalBundles, e.goalLabel),
			mirror.NewStuds(e.cat, logger),
		},
		display:  disp,
		pending:  progress.NewCheckSet(),
		reported: progress.NewCheckSet(),
		hinted:   make(map[string]bool),
		unknown:  make(map[progress.Fact]bool),
	}
	banner, size := disp.Region()
	logger.Info("connected",
		"display", disp.State().String(),
		"language", disp.Language().Name,
		"banner", banner.String(),
		"banner_size", size,
		"free_play_completed", len(freePlay.Completed()))
	for _, d := range e.conn.detectors {
		logger.Debug("detector ready", "detector", d.Name(), "remaining", d.Remaining())
	}
	return nil
}

// Disconnect restores the message banner and drops the connection. It is a
// no-op when disconnected.
func (e *Engine) Disconnect(ctx context.Context) error {
	c := e.conn
	if c == nil {
		return nil
	}
	e.conn = nil
	dropped, restored := c.display.Pending(), c.display.Dirty()
	if err := c.display.Shutdown(ctx, e.mem); err != nil {
		return fmt.Errorf("disconnect %s: %w", c.id, err)
	}
	c.logger.Info("disconnected", "dropped_messages", dropped, "banner_restored", restored)
	return nil
}

// TickResult summarises one tick.
type TickResult struct {
	Seq       int64
	ConnID    string
	Connected bool // this tick established the connection

	Received []progress.FactDelta
	Unlocked []unlock.NodeID
	Revealed []progress.CheckID
	Reported []progress.CheckID
}

// Tick runs one reconciliation pass, connecting first if needed.
//
// A memory failure aborts the tick, tears the connection down and returns
// a CONNECTION_LOST error; the next Tick reconnects. A fact store failure
// while snapshotting aborts the tick before memory is touched. A failed
// report does not abort the tick: mirrors and the display still run, the
// checks are retried next tick, and the error is returned at the end.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	res := e.ticks.start()
	seq := res.Seq

	if e.conn == nil {
		if err := e.Connect(ctx); err != nil {
			return res, err
		}
		res.Connected = true
	}
	c := e.conn
	res.ConnID = c.id

	facts, err := e.facts.ReceivedFacts(ctx)
	if err != nil {
		return res, NewSessionError(c.id, seq, "received facts", err)
	}
	confirmed, err := e.facts.ConfirmedChecks(ctx)
	if err != nil {
		return res, NewSessionError(c.id, seq, "confirmed checks", err)
	}
	view := progress.View{Received: progress.NewInventory(facts...), Confirmed: confirmed}

	res.Received, res.Unlocked = e.propagate(c, view.Received)
	for _, text := range e.inbox.Drain() {
		c.display.Queue(text)
	}

	for _, d := range c.detectors {
		ids, err := d.Poll(ctx, e.mem, view)
		if err != nil {
			return res, e.lose(ctx, seq, "detect "+d.Name(), err)
		}
		res.Revealed = append(res.Revealed, ids...)
	}

	reportErr := e.report(ctx, c, seq, view, res.Revealed, &res)

	for _, m := range c.mirrors {
		if err := m.Apply(ctx, e.mem, view); err != nil {
			return res, e.lose(ctx, seq, "mirror "+m.Name(), err)
		}
	}

	if err := c.display.Tick(ctx, e.mem); err != nil {
		return res, e.lose(ctx, seq, "display", err)
	}
	return res, reportErr
}

// propagate feeds facts received since the last tick to the unlock graph
// and queues notifications. The first tick of a connection primes silently:
// deliveries from before the attach were announced by an earlier run.
func (e *Engine) propagate(c *connection, inv progress.Inventory) ([]progress.FactDelta, []unlock.NodeID) {
	deltas := inv.Delta(c.seen)
	var unlocked []unlock.NodeID
	for _, d := range deltas {
		if !e.cat.KnownFact(d.Fact) {
			if !c.unknown[d.Fact] {
				c.unknown[d.Fact] = true
				c.logger.Warn("unknown fact ignored",
					"code", ErrCodeUnknownFact,
					"fact", int64(d.Fact))
			}
			continue
		}
		unlocked = append(unlocked, c.graph.OnFactReceived(d.Fact)...)
		if c.primed && e.itemMessages {
			name := e.cat.FactName(d.Fact)
			for i := 0; i < d.Added; i++ {
				c.display.Queue("Received " + name)
			}
		}
	}

	for _, node := range unlocked {
		ch, ok := e.cat.ChapterByShort(string(node))
		if !ok {
			continue
		}
		c.logger.Info("chapter unlocked", "chapter", ch.Short, "name", ch.Name)
		if c.primed {
			c.display.Queue(fmt.Sprintf("Unlocked %s %s", ch.Short, ch.Name))
		}
	}

	e.hint(c, inv)
	c.seen = inv.Clone()
	c.primed = true
	return deltas, unlocked
}

// hint announces, once per connection, each unlocked chapter whose
// minikits all became reachable with the received characters.
func (e *Engine) hint(c *connection, inv progress.Inventory) {
	abilities := e.cat.Abilities(inv)
	for i := range e.cat.Chapters {
		ch := &e.cat.Chapters[i]
		if c.hinted[ch.Short] || c.graph.State(unlock.NodeID(ch.Short)) != unlock.Unlocked {
			continue
		}
		if !abilities.Covers(ch.AllMinikitAbilities) {
			continue
		}
		c.hinted[ch.Short] = true
		if c.primed {
			c.display.Queue(fmt.Sprintf("All %s minikits in logic", ch.Short))
		}
	}
}

// report forwards revealed checks the session still considers missing.
// Checks wait in the pending set until a report succeeds, and a check is
// reported at most once per connection.
func (e *Engine) report(ctx context.Context, c *connection, seq int64, view progress.View, revealed []progress.CheckID, res *TickResult) error {
	for _, id := range revealed {
		if !e.cat.KnownCheck(id) {
			c.logger.Warn("unknown check ignored", "seq", seq, "check", int64(id))
			continue
		}
		c.pending.Add(id)
	}

	var batch []progress.CheckID
	for _, id := range c.pending.Sorted() {
		if view.Confirmed.Has(id) || c.reported.Has(id) {
			c.pending.Remove(id)
			continue
		}
		batch = append(batch, id)
	}
	if len(batch) == 0 {
		return nil
	}

	if err := e.facts.ReportChecks(ctx, batch); err != nil {
		c.logger.Warn("report failed, will retry", "seq", seq, "count", len(batch), "error", err)
		return NewSessionError(c.id, seq, "report checks", err)
	}
	c.reported.Add(batch...)
	c.pending.Remove(batch...)
	res.Reported = batch

	for _, id := range batch {
		c.logger.Info("check reported", "seq", seq, "check", e.cat.CheckName(id))
		if e.checkMessages {
			c.display.Queue("Found " + e.cat.CheckName(id))
		}
	}
	return nil
}

// lose tears the connection down after a memory failure. The banner
// restore is attempted on a context detached from ctx so cancellation does
// not leave custom text in the game.
func (e *Engine) lose(ctx context.Context, seq int64, phase string, cause error) error {
	c := e.conn
	e.conn = nil
	c.logger.Warn("connection lost", "seq", seq, "phase", phase, "error", cause)

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := c.display.Shutdown(sctx, e.mem); err != nil {
		c.logger.Debug("banner restore failed", "error", err)
	}
	return NewConnectionLostError(c.id, seq, phase, cause)
}

// Run ticks every poll interval until ctx is cancelled, then disconnects.
// Tick errors are logged and the loop continues; a lost connection is
// re-established on a later tick.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "poll_interval", e.interval)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		e.runTick(ctx)

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.inbox.Close()
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := e.Disconnect(sctx); err != nil {
				e.logger.Warn("disconnect failed", "error", err)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) runTick(ctx context.Context) {
	res, err := e.Tick(ctx)
	switch {
	case err == nil:
		if len(res.Reported) > 0 || len(res.Unlocked) > 0 {
			e.logger.Debug("tick",
				"seq", res.Seq,
				"reported", len(res.Reported),
				"unlocked", len(res.Unlocked))
		}
	case ctx.Err() != nil:
	case IsConnectionLost(err), IsSessionError(err):
		e.logger.Warn("tick failed", "seq", res.Seq, "error", err)
	default:
		e.logger.Error("tick failed", "seq", res.Seq, "error", err)
	}
}
