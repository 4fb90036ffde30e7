package mirror

import (
	"context"
	"fmt"
	"strconv"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
)

// GoalTextSize is the byte capacity of the custom character name the goal
// text borrows, terminator included.
const GoalTextSize = 16

// MinikitsPerBundle is the number of minikits one bundle fact represents.
const MinikitsPerBundle = 5

// DefaultGoalLabel follows the counter in the goal text.
const DefaultGoalLabel = "GOAL"

// nameFolder reduces text to what the character-name font can draw:
// uppercase ASCII, accents stripped, anything else replaced by '?'.
var nameFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return '?'
		}
		return unicode.ToUpper(r)
	}),
)

// FoldName applies the character-name fold to s.
func FoldName(s string) string {
	out, _, err := transform.String(nameFolder, s)
	if err != nil {
		return s
	}
	return out
}

// GoalText renders "<current>/<goal> GOAL" into custom character 2's name,
// counting minikits in bundles of five. The player can rename the character
// in the character creator, so the text is written every tick.
type GoalText struct {
	cat   *catalog.Catalog
	goal  int
	label string
}

// NewGoalText returns the goal mirror for a goal of goalBundles bundles.
// An empty label selects DefaultGoalLabel.
func NewGoalText(cat *catalog.Catalog, goalBundles int, label string) *GoalText {
	if label == "" {
		label = DefaultGoalLabel
	}
	return &GoalText{cat: cat, goal: goalBundles, label: FoldName(label)}
}

func (m *GoalText) Name() string { return "goal_text" }

// Text returns the null-terminated bytes for inv, at most GoalTextSize long.
func (m *GoalText) Text(inv progress.Inventory) []byte {
	goal := m.goal * MinikitsPerBundle
	current := inv.Count(m.cat.Generic.MinikitBundle) * MinikitsPerBundle
	width := len(strconv.Itoa(goal))
	s := fmt.Sprintf("%0*d/%d %s", width, current, goal, m.label)
	if len(s) > GoalTextSize-1 {
		s = s[:GoalTextSize-1]
	}
	return append([]byte(s), 0)
}

func (m *GoalText) Apply(ctx context.Context, mem memory.Interface, view progress.View) error {
	return mem.WriteBytes(ctx, m.cat.Addresses.GoalText, m.Text(view.Received))
}
