package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/engine"
	"github.com/roach88/tcslink/internal/logging"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
	"github.com/roach88/tcslink/internal/session"
	"github.com/roach88/tcslink/internal/store"
	"github.com/roach88/tcslink/internal/testutil"
)

// backend is a fact store the harness can also grant and confirm on.
type backend interface {
	session.FactStore
	grant(ctx context.Context, f progress.Fact) error
	confirm(ctx context.Context, id progress.CheckID) error
	close() error
}

type memoryBackend struct{ *session.Memory }

func (b memoryBackend) grant(_ context.Context, f progress.Fact) error {
	b.Grant(f)
	return nil
}

func (b memoryBackend) confirm(_ context.Context, id progress.CheckID) error {
	b.Confirm(id)
	return nil
}

func (b memoryBackend) close() error { return nil }

type sqliteBackend struct{ *store.Store }

func (b sqliteBackend) grant(ctx context.Context, f progress.Fact) error {
	return b.GrantFact(ctx, f)
}

func (b sqliteBackend) confirm(ctx context.Context, id progress.CheckID) error {
	return b.ReportChecks(ctx, []progress.CheckID{id})
}

func (b sqliteBackend) close() error { return b.Close() }

// Harness is the scenario execution state.
type Harness struct {
	cat    *catalog.Catalog
	image  *memory.Image
	facts  backend
	clock  *testutil.FakeClock
	engine *engine.Engine
	logger *slog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger routes engine logs. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// WithCatalog runs against cat instead of the embedded catalog.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(h *Harness) {
		h.cat = cat
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh image and session for isolation.
// Tick failures are recorded in the trace, not returned; the error return
// is for scenarios that cannot run at all (unknown names, bad regions).
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		image:  memory.NewImage(),
		clock:  testutil.NewFakeClock(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.cat == nil {
		cat, err := catalog.Load()
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		h.cat = cat
	}

	switch scenario.Session {
	case SessionSQLite:
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		h.facts = sqliteBackend{st}
	default:
		h.facts = memoryBackend{session.NewMemory()}
	}
	defer h.facts.close()

	engineOpts := []engine.Option{
		engine.WithLogger(h.logger),
		engine.WithClock(h.clock.Now),
		engine.WithIDGenerator(testutil.NewSequentialIDs("conn")),
		engine.Strict(),
		engine.WithGoalLabel(scenario.GoalLabel),
	}
	if scenario.Goal > 0 {
		engineOpts = append(engineOpts, engine.WithGoal(scenario.Goal))
	}
	h.engine = engine.New(h.cat, h.image, h.facts, engineOpts...)

	ctx := context.Background()
	if err := h.poke(scenario.Memory); err != nil {
		return nil, err
	}
	if err := h.grant(ctx, scenario.Granted); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range scenario.Assertions {
		if err := h.evaluate(a, result); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return result, nil
}

func (h *Harness) execute(ctx context.Context, step Step, result *Result) error {
	switch step.kind() {
	case "tick":
		for i := 0; i < step.Tick; i++ {
			result.Trace = append(result.Trace, h.tick(ctx))
		}
	case "grant":
		return h.grant(ctx, step.Grant)
	case "confirm":
		for _, name := range step.Confirm {
			id, ok := h.cat.CheckByName(name)
			if !ok {
				return fmt.Errorf("unknown check %q", name)
			}
			if err := h.facts.confirm(ctx, id); err != nil {
				return err
			}
		}
	case "poke":
		return h.poke(step.Poke)
	case "advance":
		h.clock.Advance(step.Advance)
	case "queue":
		h.engine.QueueMessage(step.Queue)
	case "fail":
		h.image.FailAfter(0, errors.New(step.Fail))
	case "heal":
		h.image.Heal()
	case "disconnect":
		if err := h.engine.Disconnect(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("exactly one action must be set")
	}
	return nil
}

func (h *Harness) grant(ctx context.Context, names []string) error {
	for _, name := range names {
		f, ok := h.cat.FactByName(name)
		if !ok {
			return fmt.Errorf("unknown fact %q", name)
		}
		if err := h.facts.grant(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) poke(regions []memory.Region) error {
	snap := memory.Snapshot{Regions: regions}
	return snap.Apply(h.image)
}

func (h *Harness) tick(ctx context.Context) TraceEvent {
	res, err := h.engine.Tick(ctx)
	ev := TraceEvent{
		Seq:       res.Seq,
		Conn:      res.ConnID,
		Connected: res.Connected,
		Revealed:  h.checkNames(res.Revealed),
		Reported:  h.checkNames(res.Reported),
	}
	for _, d := range res.Received {
		name := h.cat.FactName(d.Fact)
		if d.Added > 1 {
			name = fmt.Sprintf("%s x%d", name, d.Added)
		}
		ev.Received = append(ev.Received, name)
	}
	for _, node := range res.Unlocked {
		ev.Unlocked = append(ev.Unlocked, string(node))
	}
	if err != nil {
		var re *engine.RuntimeError
		if errors.As(err, &re) {
			ev.Error = string(re.Code)
			if ev.Conn == "" {
				ev.Conn = re.ConnID
			}
		} else {
			ev.Error = err.Error()
		}
	}
	return ev
}

func (h *Harness) checkNames(ids []progress.CheckID) []string {
	var out []string
	for _, id := range ids {
		out = append(out, h.cat.CheckName(id))
	}
	return out
}

func (h *Harness) evaluate(a Assertion, result *Result) error {
	switch a.Type {
	case AssertReported:
		got := collect(result.Trace, func(ev TraceEvent) []string { return ev.Reported })
		want := slices.Sorted(slices.Values(a.Checks))
		if !slices.Equal(got, want) {
			return fmt.Errorf("expected reported %v, got %v", want, got)
		}
	case AssertNotReported:
		got := collect(result.Trace, func(ev TraceEvent) []string { return ev.Reported })
		for _, c := range a.Checks {
			if slices.Contains(got, c) {
				return fmt.Errorf("%q was reported", c)
			}
		}
	case AssertUnlocked:
		got := collect(result.Trace, func(ev TraceEvent) []string { return ev.Unlocked })
		for _, c := range a.Chapters {
			if !slices.Contains(got, c) {
				return fmt.Errorf("chapter %s never unlocked (unlocked: %v)", c, got)
			}
		}
	case AssertMemory:
		want, err := a.Region.Bytes()
		if err != nil {
			return err
		}
		got := h.image.Peek(memory.Address(a.Region.Address), len(want))
		if !bytes.Equal(got, want) {
			return fmt.Errorf("at %s expected % x, got % x", memory.Address(a.Region.Address), want, got)
		}
	case AssertConnected:
		if got := h.engine.Connected(); got != *a.Value {
			return fmt.Errorf("expected connected=%t, got %t", *a.Value, got)
		}
	case AssertTickError:
		for _, ev := range result.Trace {
			if ev.Error == a.Code {
				return nil
			}
		}
		return fmt.Errorf("no tick failed with %s", a.Code)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// collect returns the sorted distinct values field yields over trace.
func collect(trace []TraceEvent, field func(TraceEvent) []string) []string {
	var out []string
	for _, ev := range trace {
		out = append(out, field(ev)...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Summary renders a result for terminal output.
func (r *Result) Summary(name string) string {
	var b strings.Builder
	status := "PASS"
	if !r.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "%s %s (%d ticks)\n", status, name, len(r.Trace))
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  %s\n", e)
	}
	return b.String()
}
