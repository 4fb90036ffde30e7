package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tcslink/internal/config"
	"github.com/roach88/tcslink/internal/engine"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Image    string
	Database string
	Ticks    int
	NoSave   bool

	// IDGenerator allows overriding the connection id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator
}

// RunSummary is the run command's result.
type RunSummary struct {
	Image     string   `json:"image"`
	Database  string   `json:"database"`
	Ticks     int      `json:"ticks,omitempty"`
	Reported  []string `json:"reported"`
	Confirmed int      `json:"confirmed"`
}

func (s RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reported %d check(s) this run, %d confirmed in total", len(s.Reported), s.Confirmed)
	for _, name := range s.Reported {
		fmt.Fprintf(&b, "\n  %s", name)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the poll loop against a game image",
		Long: `Run the reconciliation engine against a memory snapshot standing in for
the game process, with a local SQLite session database as the fact store.

Without --ticks the loop runs until interrupted. The image is written back
on exit so the next run sees what the engine persisted.

Example:
  tcslink run --image game.yaml --db session.db
  tcslink run --image game.yaml --db session.db --ticks 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Image, "image", "", "memory snapshot (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "session database (default from config)")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "run this many ticks back to back, then exit")
	cmd.Flags().BoolVar(&opts.NoSave, "no-save", false, "do not write the image back on exit")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}
	cfg, logger := opts.Config, opts.Logger
	out := opts.formatter(cmd)

	imagePath := firstNonEmpty(opts.Image, cfg.Game.Image)
	dbPath := firstNonEmpty(opts.Database, cfg.Session.Database)

	if opts.Ticks < 0 {
		return out.Fail(ExitCommandError, ErrCodeInvalid, "--ticks must not be negative", nil)
	}
	if _, err := os.Stat(imagePath); err != nil {
		return out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("image not found: %s", imagePath), err)
	}

	cat, err := opts.catalog()
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeInvalid, "failed to load catalog", err)
	}
	im, err := memory.LoadSnapshot(imagePath)
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeGame, "failed to load image", err)
	}

	logger.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeSession, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	before, err := st.ConfirmedInOrder(ctx)
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeSession, "failed to read session", err)
	}

	eng := engine.New(cat, im, st, engineOptions(cfg, logger, opts.IDGenerator)...)

	if opts.Ticks > 0 {
		for i := 0; i < opts.Ticks; i++ {
			if res, err := eng.Tick(ctx); err != nil {
				logger.Warn("tick failed", "seq", res.Seq, "error", err)
			}
		}
		if err := eng.Disconnect(ctx); err != nil {
			logger.Warn("disconnect failed", "error", err)
		}
	} else {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		go func() {
			select {
			case sig := <-sigChan:
				logger.Info("received signal, shutting down", "signal", sig)
				cancel()
			case <-ctx.Done():
			}
		}()

		out.VerboseLog("Engine started against %s. Press Ctrl-C to stop.", imagePath)
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return out.Fail(ExitFailure, ErrCodeGeneric, "engine error", err)
		}
	}

	if !opts.NoSave {
		if err := im.SaveSnapshot(imagePath); err != nil {
			return out.Fail(ExitFailure, ErrCodeGame, "failed to save image", err)
		}
	}

	after, err := st.ConfirmedInOrder(context.WithoutCancel(ctx))
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeSession, "failed to read session", err)
	}
	summary := RunSummary{
		Image:     imagePath,
		Database:  dbPath,
		Ticks:     opts.Ticks,
		Reported:  []string{},
		Confirmed: len(after),
	}
	for _, id := range after[len(before):] {
		summary.Reported = append(summary.Reported, cat.CheckName(id))
	}
	logger.Info("engine stopped", "reported", len(summary.Reported))
	return out.Success(summary)
}

// engineOptions maps configuration onto engine options.
func engineOptions(cfg *config.Config, logger *slog.Logger, ids engine.IDGenerator) []engine.Option {
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithPollInterval(cfg.Engine.PollInterval),
		engine.WithGoal(cfg.Engine.GoalBundles),
		engine.WithGoalLabel(cfg.Messages.GoalLabel),
		engine.WithMessageTiming(cfg.Messages.Delay, cfg.Messages.Duration),
		engine.WithItemMessages(cfg.Messages.Items),
		engine.WithCheckMessages(cfg.Messages.Checks),
	}
	if cfg.Engine.Strict {
		opts = append(opts, engine.Strict())
	}
	if ids != nil {
		opts = append(opts, engine.WithIDGenerator(ids))
	}
	return opts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
