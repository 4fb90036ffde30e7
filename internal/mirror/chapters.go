package mirror

import (
	"context"

	"github.com/roach88/tcslink/internal/catalog"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
	"github.com/roach88/tcslink/internal/savedata"
	"github.com/roach88/tcslink/internal/unlock"
)

// Chapter header patterns: unlocked byte, story byte.
var (
	headerFreePlay = []byte{savedata.FreePlayComplete, 0x01}
	headerUnlocked = []byte{savedata.FlagUnlocked, 0x00}
	headerLocked   = []byte{0x00, 0x00}
)

// UnlockState reports chapter lock state.
type UnlockState interface {
	State(node unlock.NodeID) unlock.State
}

// CompletionSource reports free-play completions.
type CompletionSource interface {
	Completed() progress.CheckSet
}

// Chapters writes the first two bytes of every chapter record each tick.
// The game rewrites these bytes when chapters are played, so the write is
// unconditional. Story completion stays clear on chapters not completed in
// free play; the game gates shop slots on it.
type Chapters struct {
	cat       *catalog.Catalog
	unlocks   UnlockState
	completed CompletionSource
}

// NewChapters returns the chapter mirror.
func NewChapters(cat *catalog.Catalog, unlocks UnlockState, completed CompletionSource) *Chapters {
	return &Chapters{cat: cat, unlocks: unlocks, completed: completed}
}

func (m *Chapters) Name() string { return "chapters" }

// Header returns the two header bytes ch should hold.
func (m *Chapters) Header(ch *catalog.Chapter, done progress.CheckSet) []byte {
	switch {
	case done.Has(ch.Completion):
		return headerFreePlay
	case m.unlocks.State(unlock.NodeID(ch.Short)) == unlock.Unlocked:
		return headerUnlocked
	default:
		return headerLocked
	}
}

func (m *Chapters) Apply(ctx context.Context, mem memory.Interface, _ progress.View) error {
	done := m.completed.Completed()
	for i := range m.cat.Chapters {
		ch := &m.cat.Chapters[i]
		if err := mem.WriteBytes(ctx, ch.Address, m.Header(ch, done)); err != nil {
			return err
		}
	}
	return nil
}
