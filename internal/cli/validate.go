package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/config"
	"github.com/roach88/tcslink/internal/harness"
	"github.com/roach88/tcslink/internal/memory"
)

// File kinds the validate command understands.
const (
	KindCatalog  = "catalog"
	KindConfig   = "config"
	KindImage    = "image"
	KindScenario = "scenario"
)

// FileValidation is the outcome for one file.
type FileValidation struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	for _, f := range r.Files {
		if f.Valid {
			fmt.Fprintf(&b, "✓ %s (%s)\n", f.Path, f.Kind)
		} else {
			fmt.Fprintf(&b, "✗ %s (%s): %s\n", f.Path, f.Kind, f.Error)
		}
	}
	if r.Valid {
		b.WriteString("✓ All files valid")
	} else {
		b.WriteString("✗ Validation failed")
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate catalog, config, image and scenario files",
		Long: `Check input files without running anything.

The kind is taken from --kind, or inferred: .cue files are catalogs; YAML
files with top-level "steps" are scenarios, with "regions" are images, and
anything else is a config file.

Examples:
  tcslink validate tcslink.yaml game.yaml
  tcslink validate --kind catalog custom.cue`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, kind, args, cmd)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "file kind (catalog|config|image|scenario)")

	return cmd
}

func runValidate(opts *RootOptions, kind string, paths []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	switch kind {
	case "", KindCatalog, KindConfig, KindImage, KindScenario:
	default:
		return out.Fail(ExitCommandError, ErrCodeInvalid, fmt.Sprintf("unknown kind %q", kind), nil)
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("file not found: %s", path), err)
		}
		k := kind
		if k == "" {
			var err error
			if k, err = inferKind(path); err != nil {
				k = KindConfig
			}
		}
		out.VerboseLog("Validating %s as %s", path, k)

		fv := FileValidation{Path: path, Kind: k, Valid: true}
		if err := validateFile(path, k); err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if err := out.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("[%s] validation failed", ErrCodeInvalid))
	}
	return nil
}

// inferKind guesses a file's kind from its extension and top-level keys.
func inferKind(path string) (string, error) {
	if filepath.Ext(path) == ".cue" {
		return KindCatalog, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var top map[string]any
	if err := yaml.Unmarshal(data, &top); err != nil {
		return "", err
	}
	if _, ok := top["steps"]; ok {
		return KindScenario, nil
	}
	if _, ok := top["regions"]; ok {
		return KindImage, nil
	}
	return KindConfig, nil
}

func validateFile(path, kind string) error {
	switch kind {
	case KindCatalog:
		_, err := catalog.LoadFile(path)
		return err
	case KindScenario:
		_, err := harness.LoadScenario(path)
		return err
	case KindImage:
		_, err := memory.LoadSnapshot(path)
		return err
	default:
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return err
		}
		return cfg.Validate()
	}
}
