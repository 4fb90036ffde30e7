package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/progress"
)

// Catalog sections the catalog command can print.
var catalogSections = []string{"chapters", "characters", "extras", "bonuses"}

// ChapterInfo describes one chapter.
type ChapterInfo struct {
	Short    string   `json:"short"`
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Requires []string `json:"requires"`
	Checks   []int64  `json:"checks"`
}

// CharacterInfo describes one character.
type CharacterInfo struct {
	Name      string `json:"name"`
	Fact      int64  `json:"fact"`
	ShopSlot  int    `json:"shop_slot"`
	Abilities string `json:"abilities"`
}

// ExtraInfo describes one shop extra.
type ExtraInfo struct {
	Name    string `json:"name"`
	Number  int    `json:"number"`
	Chapter string `json:"chapter"`
}

// BonusInfo describes one bonus door.
type BonusInfo struct {
	Name     string   `json:"name"`
	Door     int      `json:"door"`
	Requires []string `json:"requires"`
}

// CatalogResult is the catalog command's output. Unselected sections are
// omitted.
type CatalogResult struct {
	Facts      int             `json:"facts"`
	Checks     int             `json:"checks"`
	Chapters   []ChapterInfo   `json:"chapters,omitempty"`
	Characters []CharacterInfo `json:"characters,omitempty"`
	Extras     []ExtraInfo     `json:"extras,omitempty"`
	Bonuses    []BonusInfo     `json:"bonuses,omitempty"`
}

func (r CatalogResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d facts, %d checks", r.Facts, r.Checks)
	if len(r.Chapters) > 0 {
		b.WriteString("\n\nChapters:")
		for _, ch := range r.Chapters {
			fmt.Fprintf(&b, "\n  %-4s %-30s %s  requires: %s", ch.Short, ch.Name, ch.Address, orNone(ch.Requires))
		}
	}
	if len(r.Characters) > 0 {
		b.WriteString("\n\nCharacters:")
		for _, c := range r.Characters {
			slot := "-"
			if c.ShopSlot >= 0 {
				slot = fmt.Sprint(c.ShopSlot)
			}
			fmt.Fprintf(&b, "\n  %-34s slot %-3s %s", c.Name, slot, c.Abilities)
		}
	}
	if len(r.Extras) > 0 {
		b.WriteString("\n\nExtras:")
		for _, e := range r.Extras {
			fmt.Fprintf(&b, "\n  %2d %-28s %s", e.Number, e.Name, e.Chapter)
		}
	}
	if len(r.Bonuses) > 0 {
		b.WriteString("\n\nBonus doors:")
		for _, d := range r.Bonuses {
			fmt.Fprintf(&b, "\n  %d %-24s requires: %s", d.Door, d.Name, orNone(d.Requires))
		}
	}
	return b.String()
}

func orNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog [section]",
		Short: "Print the game catalog",
		Long: `Print the catalog the engine runs with: chapters and their save
addresses, unlock requirements and check ids, characters, shop extras and
bonus doors.

Sections: chapters, characters, extras, bonuses. Without a section all
are printed.

Examples:
  tcslink catalog
  tcslink catalog chapters --format json`,
		Args:          cobra.MaximumNArgs(1),
		ValidArgs:     catalogSections,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			section := ""
			if len(args) == 1 {
				section = args[0]
			}
			return runCatalog(rootOpts, section, cmd)
		},
	}
	return cmd
}

func runCatalog(opts *RootOptions, section string, cmd *cobra.Command) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	if section != "" && !slices.Contains(catalogSections, section) {
		return out.Fail(ExitCommandError, ErrCodeUnknown,
			fmt.Sprintf("unknown section %q: must be one of %v", section, catalogSections), nil)
	}
	cat, err := opts.catalog()
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeInvalid, "failed to load catalog", err)
	}

	want := func(s string) bool { return section == "" || section == s }
	result := CatalogResult{
		Facts:  len(cat.Facts()),
		Checks: len(cat.AllChecks()),
	}
	if want("chapters") {
		for i := range cat.Chapters {
			ch := &cat.Chapters[i]
			info := ChapterInfo{
				Short:    ch.Short,
				Name:     ch.Name,
				Address:  ch.Address.String(),
				Requires: factNames(cat, ch.Requirements),
			}
			for _, id := range ch.Checks() {
				info.Checks = append(info.Checks, int64(id))
			}
			result.Chapters = append(result.Chapters, info)
		}
	}
	if want("characters") {
		for _, c := range cat.Characters {
			result.Characters = append(result.Characters, CharacterInfo{
				Name:      c.Name,
				Fact:      int64(c.Fact),
				ShopSlot:  c.ShopSlot,
				Abilities: c.Abilities.String(),
			})
		}
	}
	if want("extras") {
		for _, e := range cat.Extras {
			result.Extras = append(result.Extras, ExtraInfo{Name: e.Name, Number: e.Number, Chapter: e.Chapter})
		}
	}
	if want("bonuses") {
		for _, d := range cat.Bonuses {
			result.Bonuses = append(result.Bonuses, BonusInfo{
				Name:     d.Name,
				Door:     d.Door,
				Requires: factNames(cat, d.Requirements),
			})
		}
	}
	return out.Success(result)
}

func factNames(cat *catalog.Catalog, facts []progress.Fact) []string {
	names := make([]string, 0, len(facts))
	for _, f := range facts {
		names = append(names, cat.FactName(f))
	}
	return names
}
