package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tcslink/internal/progress"
	"github.com/roach88/tcslink/internal/store"
)

// GrantOptions holds flags for the grant command.
type GrantOptions struct {
	*RootOptions
	Database string
	Count    int
}

// GrantResult lists the deliveries appended to the session.
type GrantResult struct {
	Database string   `json:"database"`
	Granted  []string `json:"granted"`
}

func (r GrantResult) String() string {
	return fmt.Sprintf("Granted %d fact(s) in %s: %s", len(r.Granted), r.Database, strings.Join(r.Granted, ", "))
}

// NewGrantCommand creates the grant command.
func NewGrantCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GrantOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "grant <name>...",
		Short: "Deliver facts to a local session",
		Long: `Append received facts to a local session database, as a multiworld
server would. A running engine picks them up on its next tick.

All names are resolved before anything is written, so one unknown name
grants nothing.

Examples:
  tcslink grant --db session.db "Jar Jar Binks"
  tcslink grant --db session.db --count 3 "5 Minikits"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrant(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "session database (default from config)")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 1, "deliveries per name")

	return cmd
}

func runGrant(opts *GrantOptions, names []string, cmd *cobra.Command) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Count < 1 {
		return out.Fail(ExitCommandError, ErrCodeInvalid, "--count must be at least 1", nil)
	}
	cat, err := opts.catalog()
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeInvalid, "failed to load catalog", err)
	}

	facts := make([]progress.Fact, 0, len(names))
	var unknown []string
	for _, name := range names {
		f, ok := cat.FactByName(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		facts = append(facts, f)
	}
	if len(unknown) > 0 {
		if err := out.Error(ErrCodeUnknown, fmt.Sprintf("unknown fact(s): %s", strings.Join(unknown, ", ")), unknown); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("[%s] unknown fact(s): %s", ErrCodeUnknown, strings.Join(unknown, ", ")))
	}

	dbPath := firstNonEmpty(opts.Database, opts.Config.Session.Database)
	st, err := store.Open(dbPath)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeSession, "failed to open database", err)
	}
	defer st.Close()

	result := GrantResult{Database: dbPath, Granted: []string{}}
	for _, f := range facts {
		for i := 0; i < opts.Count; i++ {
			if err := st.GrantFact(ctx, f); err != nil {
				return out.Fail(ExitFailure, ErrCodeSession, "failed to grant "+cat.FactName(f), err)
			}
			result.Granted = append(result.Granted, cat.FactName(f))
		}
	}
	opts.Logger.Debug("facts granted", "db", dbPath, "count", len(result.Granted))
	return out.Success(result)
}
