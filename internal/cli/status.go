package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tcslink/internal/mirror"
	"github.com/roach88/tcslink/internal/progress"
	"github.com/roach88/tcslink/internal/store"
	"github.com/roach88/tcslink/internal/unlock"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
}

// ReceivedFact is a received fact and its delivery count.
type ReceivedFact struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// GoalProgress is minikit progress toward the goal.
type GoalProgress struct {
	Minikits int `json:"minikits"`
	Required int `json:"required"`
}

// StatusResult summarises a local session.
type StatusResult struct {
	Database  string         `json:"database"`
	Received  []ReceivedFact `json:"received"`
	Unlocked  []string       `json:"unlocked"`
	Confirmed []string       `json:"confirmed"`
	Checks    int            `json:"checks"`
	Goal      GoalProgress   `json:"goal"`
}

func (r StatusResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\n", r.Database)
	fmt.Fprintf(&b, "Goal: %d/%d minikits\n", r.Goal.Minikits, r.Goal.Required)
	fmt.Fprintf(&b, "Unlocked chapters: %s\n", strings.Join(r.Unlocked, " "))
	fmt.Fprintf(&b, "Received %d distinct fact(s)\n", len(r.Received))
	for _, f := range r.Received {
		if f.Count > 1 {
			fmt.Fprintf(&b, "  %s x%d\n", f.Name, f.Count)
		} else {
			fmt.Fprintf(&b, "  %s\n", f.Name)
		}
	}
	fmt.Fprintf(&b, "Confirmed %d of %d check(s)", len(r.Confirmed), r.Checks)
	for _, c := range r.Confirmed {
		fmt.Fprintf(&b, "\n  %s", c)
	}
	return b.String()
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarise a local session",
		Long: `Show what a local session database holds: received facts, the chapters
they unlock, goal progress and the checks confirmed so far, in the order
they were reported.

Examples:
  tcslink status --db session.db
  tcslink status --db session.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "session database (default from config)")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Opening would create an empty database; a typo should not.
	dbPath := firstNonEmpty(opts.Database, opts.Config.Session.Database)
	if _, err := os.Stat(dbPath); err != nil {
		return out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath), err)
	}
	cat, err := opts.catalog()
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeInvalid, "failed to load catalog", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeSession, "failed to open database", err)
	}
	defer st.Close()

	facts, err := st.ReceivedFacts(ctx)
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeSession, "failed to read received facts", err)
	}
	confirmed, err := st.ConfirmedInOrder(ctx)
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeSession, "failed to read confirmed checks", err)
	}

	inv := progress.NewInventory(facts...)
	result := StatusResult{
		Database:  dbPath,
		Received:  []ReceivedFact{},
		Unlocked:  []string{},
		Confirmed: []string{},
		Checks:    len(cat.AllChecks()),
		Goal: GoalProgress{
			Minikits: inv.Count(cat.Generic.MinikitBundle) * mirror.MinikitsPerBundle,
			Required: opts.Config.Engine.GoalBundles * mirror.MinikitsPerBundle,
		},
	}
	for _, f := range inv.Distinct() {
		result.Received = append(result.Received, ReceivedFact{Name: cat.FactName(f), Count: inv.Count(f)})
	}
	for _, id := range confirmed {
		result.Confirmed = append(result.Confirmed, cat.CheckName(id))
	}

	graph := unlock.New(unlock.WithLogger(opts.Logger))
	for i := range cat.Chapters {
		ch := &cat.Chapters[i]
		if err := graph.Register(unlock.NodeID(ch.Short), ch.Requirements); err != nil {
			return out.Fail(ExitFailure, ErrCodeInvalid, "invalid catalog", err)
		}
	}
	for _, f := range inv.Distinct() {
		graph.OnFactReceived(f)
	}
	for _, node := range graph.Unlocked() {
		result.Unlocked = append(result.Unlocked, string(node))
	}
	return out.Success(result)
}
