package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/config"
	"github.com/roach88/tcslink/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config and Logger are resolved on first use. Tests may preset them.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tcslink CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tcslink",
		Short: "tcslink - LEGO Star Wars TCS multiworld client",
		Long: `Keeps a running game's save state in step with a multiworld session.

Facts received from the session unlock chapters, grant studs and fill in
the goal text; checks the player completes in game are reported back.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default $"+config.EnvFile+")")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewGrantCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// setup resolves configuration and the logger. Logs go to the command's
// stderr so JSON output on stdout stays clean.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if o.Config == nil {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		if err := cfg.Validate(); err != nil {
			return WrapExitError(ExitCommandError, "invalid config", err)
		}
		o.Config = cfg
	}
	if o.Logger == nil {
		level := o.Config.Logging.Level
		if o.Verbose && logging.ParseLevel(level) > slog.LevelDebug {
			level = "debug"
		}
		o.Logger = logging.NewLogger(level, cmd.ErrOrStderr())
	}
	return nil
}

// catalog loads the configured catalog, or the embedded one.
func (o *RootOptions) catalog() (*catalog.Catalog, error) {
	if o.Config != nil && o.Config.Game.Catalog != "" {
		return catalog.LoadFile(o.Config.Game.Catalog)
	}
	return catalog.Load()
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
