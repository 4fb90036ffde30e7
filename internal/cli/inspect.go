package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tcslink/internal/detect"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
	"github.com/roach88/tcslink/internal/savedata"
	"github.com/roach88/tcslink/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Image    string
	Database string
}

// ChapterRecord is one decoded chapter save record.
type ChapterRecord struct {
	Short      string `json:"short"`
	Name       string `json:"name"`
	Unlocked   bool   `json:"unlocked"`
	FreePlay   bool   `json:"free_play"`
	TrueJedi   bool   `json:"true_jedi"`
	Minikits   int    `json:"minikits"`
	GoldBrick  bool   `json:"gold_brick"`
	PowerBrick bool   `json:"power_brick"`
}

// InspectResult is what the save data in an image already proves.
type InspectResult struct {
	Image    string          `json:"image"`
	Studs    uint32          `json:"studs"`
	Chapters []ChapterRecord `json:"chapters"`
	Checks   []string        `json:"checks"`
}

func (r InspectResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d studs\n", r.Image, r.Studs)
	for _, ch := range r.Chapters {
		if !ch.Unlocked {
			continue
		}
		var marks []string
		if ch.FreePlay {
			marks = append(marks, "free play")
		}
		if ch.TrueJedi {
			marks = append(marks, "true jedi")
		}
		if ch.GoldBrick {
			marks = append(marks, "gold brick")
		}
		if ch.PowerBrick {
			marks = append(marks, "power brick")
		}
		fmt.Fprintf(&b, "  %-4s %-28s %2d/10 minikits", ch.Short, ch.Name, ch.Minikits)
		if len(marks) > 0 {
			fmt.Fprintf(&b, "  (%s)", strings.Join(marks, ", "))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d check(s) in save data", len(r.Checks))
	for _, c := range r.Checks {
		fmt.Fprintf(&b, "\n  %s", c)
	}
	return b.String()
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the checks an image's save data proves",
		Long: `Decode chapter save records and shop state from a memory snapshot and
list the checks they prove, without connecting or writing anything.

With --db, checks the session has already confirmed are left out.

Examples:
  tcslink inspect --image game.yaml
  tcslink inspect --image game.yaml --db session.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Image, "image", "", "memory snapshot (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "session database used to hide confirmed checks")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	imagePath := firstNonEmpty(opts.Image, opts.Config.Game.Image)
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

	view := progress.View{Received: progress.NewInventory(), Confirmed: progress.NewCheckSet()}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeSession, "failed to open database", err)
		}
		defer st.Close()
		if view.Confirmed, err = st.ConfirmedChecks(ctx); err != nil {
			return out.Fail(ExitFailure, ErrCodeSession, "failed to read session", err)
		}
	}

	result := InspectResult{Image: imagePath, Chapters: []ChapterRecord{}, Checks: []string{}}
	if result.Studs, err = memory.ReadUint32(ctx, im, cat.Addresses.StudCount); err != nil {
		return out.Fail(ExitFailure, ErrCodeGame, "failed to read studs", err)
	}

	found := progress.NewCheckSet()
	for i := range cat.Chapters {
		ch := &cat.Chapters[i]
		rec, err := savedata.Read(ctx, im, ch.Address)
		if err != nil {
			return out.Fail(ExitFailure, ErrCodeGame, fmt.Sprintf("failed to read %s record", ch.Short), err)
		}
		result.Chapters = append(result.Chapters, ChapterRecord{
			Short:      ch.Short,
			Name:       ch.Name,
			Unlocked:   rec.IsUnlocked(),
			FreePlay:   rec.FreePlayCompleted(),
			TrueJedi:   rec.TrueJediCompleted(),
			Minikits:   int(rec.Minikits),
			GoldBrick:  rec.GoldBrickCollected(),
			PowerBrick: rec.PowerBrick != 0,
		})
		if rec.FreePlayCompleted() {
			found.Add(ch.Completion)
		}
	}

	detectors := []detect.Detector{
		detect.CharacterPurchases(cat),
		detect.ExtraPurchases(cat),
		detect.NewTrueJediMinikits(cat),
	}
	for _, d := range detectors {
		ids, err := d.Poll(ctx, im, view)
		if err != nil {
			return out.Fail(ExitFailure, ErrCodeGame, "detector "+d.Name()+" failed", err)
		}
		found.Add(ids...)
	}
	found.Remove(view.Confirmed.Sorted()...)
	for _, id := range found.Sorted() {
		result.Checks = append(result.Checks, cat.CheckName(id))
	}
	return out.Success(result)
}
