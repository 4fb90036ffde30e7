package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/tcslink/internal/ability"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
)

//go:embed catalog.cue
var source []byte

// MinikitsPerChapter is the number of minikit checks each chapter carries.
const MinikitsPerChapter = 10

// StartingAbilities are available before any character fact is received.
const StartingAbilities = ability.Jedi | ability.ProtocolDroid

// Chapter check slots. Chapter i owns ids ChapterBase + i*checkStride + slot.
const (
	checkStride      = 16
	slotCompletion   = 0
	slotTrueJedi     = 1
	slotFirstMinikit = 2
)

// Addresses are the fixed game globals the engine reads and writes.
type Addresses struct {
	CharacterShop memory.Address
	ExtrasShop    memory.Address
	StudCount     memory.Address
	Bonuses       memory.Address
	GoalText      memory.Address
	CurrentArea   memory.Address
	CurrentLevel  memory.Address
	LiveMinikits  memory.Address
	LiveStudsP1   memory.Address
	LiveStudsP2   memory.Address
	TrueJediMeter memory.Address
	GameMode      memory.Address
	StatusType    memory.Address

	DisplayTimer memory.Address
	Paused       memory.Address
	TabbedOut    memory.Address
	MenuDepth    memory.Address
	IsPlaying    memory.Address
	GameState    memory.Address
}

// Chapter is one story level and its save record.
type Chapter struct {
	Index   int
	Short   string // "1-1"
	Name    string
	Episode int
	Number  int

	Address     memory.Address
	StatusLevel uint16
	Area        uint8

	// Requirements are the facts that unlock the chapter: its story
	// characters plus the episode unlock for episodes after the first.
	Requirements []progress.Fact

	PowerBrick          string
	PowerBrickAbilities ability.Set
	AllMinikitAbilities ability.Set

	Completion progress.CheckID
	TrueJedi   progress.CheckID
	Minikits   [MinikitsPerChapter]progress.CheckID
}

// Checks returns every check the chapter owns, completion first.
func (c *Chapter) Checks() []progress.CheckID {
	out := make([]progress.CheckID, 0, 2+MinikitsPerChapter)
	out = append(out, c.Completion, c.TrueJedi)
	return append(out, c.Minikits[:]...)
}

// Character is a playable character or vehicle. ShopSlot is -1 for
// characters that cannot be bought.
type Character struct {
	Name      string
	Fact      progress.Fact
	ShopSlot  int
	Abilities ability.Set
	Purchase  progress.CheckID
}

// Purchasable reports whether the character has a shop slot.
func (c *Character) Purchasable() bool { return c.ShopSlot >= 0 }

// Extra is a shop extra. Fact is zero for extras delivered through a
// progressive fact (the score multipliers).
type Extra struct {
	Name     string
	Number   int
	Fact     progress.Fact
	Chapter  string
	Purchase progress.CheckID
}

// BonusDoor is one door of the bonus room.
type BonusDoor struct {
	Name         string
	Door         int
	Requirements []progress.Fact
}

// GenericFacts are the facts that are not characters, extras or episodes.
type GenericFacts struct {
	MinikitBundle    progress.Fact
	ProgressiveBonus progress.Fact
	ProgressiveScore progress.Fact
	PurpleStud       progress.Fact
	RestartTrap      progress.Fact
}

// CheckBases are the first ids of each check family.
type CheckBases struct {
	Chapter           progress.CheckID
	CharacterPurchase progress.CheckID
	ExtraPurchase     progress.CheckID
}

// Catalog is the loaded, cross-referenced configuration. Slices are shared
// and must not be modified.
type Catalog struct {
	Addresses  Addresses
	Bases      CheckBases
	Generic    GenericFacts
	Chapters   []Chapter
	Characters []Character
	Extras     []Extra
	Bonuses    []BonusDoor

	episodeUnlocks  map[int]progress.Fact
	factNames       map[progress.Fact]string
	factsByName     map[string]progress.Fact
	checkNames      map[progress.CheckID]string
	chapterByShort  map[string]int
	chapterByArea   map[uint8]int
	chapterByStatus map[uint16]int
	characterByFact map[progress.Fact]int
}

// document mirrors catalog.cue for decoding.
type document struct {
	CheckBases struct {
		Chapter           int64 `json:"chapter"`
		CharacterPurchase int64 `json:"character_purchase"`
		ExtraPurchase     int64 `json:"extra_purchase"`
	} `json:"check_bases"`
	Addresses      map[string]uint32 `json:"addresses"`
	Generic        map[string]namedID `json:"generic"`
	EpisodeUnlocks []struct {
		Episode int   `json:"episode"`
		ID      int64 `json:"id"`
	} `json:"episode_unlocks"`
	Characters []struct {
		Name      string   `json:"name"`
		ID        int64    `json:"id"`
		ShopSlot  int      `json:"shop_slot"`
		Abilities []string `json:"abilities"`
	} `json:"characters"`
	Extras []struct {
		Name    string `json:"name"`
		Number  int    `json:"number"`
		ID      int64  `json:"id"`
		Chapter string `json:"chapter"`
	} `json:"extras"`
	Bonuses []struct {
		Name     string   `json:"name"`
		Door     int      `json:"door"`
		Requires []string `json:"requires"`
	} `json:"bonuses"`
	Chapters []struct {
		Short                string   `json:"short"`
		Name                 string   `json:"name"`
		Address              uint32   `json:"address"`
		StatusLevel          uint16   `json:"status_level"`
		Area                 uint8    `json:"area"`
		Requires             []string `json:"requires"`
		PowerBrick           string   `json:"power_brick"`
		PowerBrickAbilities  []string `json:"power_brick_abilities"`
		AllMinikitsAbilities []string `json:"all_minikits_abilities"`
	} `json:"chapters"`
}

type namedID struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

// Load compiles the embedded catalog.
func Load() (*Catalog, error) {
	return LoadBytes("catalog.cue", source)
}

// LoadFile compiles a catalog document from disk. The file must be
// self-contained: schema definitions and data.
func LoadFile(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return LoadBytes(path, src)
}

// LoadBytes compiles src, validates it against its own definitions, and
// builds the cross-referenced catalog.
func LoadBytes(filename string, src []byte) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var doc document
	if err := v.Decode(&doc); err != nil {
		return nil, formatCUEError(err)
	}

	b := &builder{doc: &doc, cat: newCatalog()}
	if err := b.build(); err != nil {
		return nil, err
	}
	return b.cat, nil
}

func newCatalog() *Catalog {
	return &Catalog{
		episodeUnlocks:  make(map[int]progress.Fact),
		factNames:       make(map[progress.Fact]string),
		factsByName:     make(map[string]progress.Fact),
		checkNames:      make(map[progress.CheckID]string),
		chapterByShort:  make(map[string]int),
		chapterByArea:   make(map[uint8]int),
		chapterByStatus: make(map[uint16]int),
		characterByFact: make(map[progress.Fact]int),
	}
}

// ChapterByShort looks a chapter up by its "E-N" name.
func (c *Catalog) ChapterByShort(short string) (*Chapter, bool) {
	i, ok := c.chapterByShort[short]
	if !ok {
		return nil, false
	}
	return &c.Chapters[i], true
}

// ChapterByArea looks a chapter up by the game's current-area id.
func (c *Catalog) ChapterByArea(area uint8) (*Chapter, bool) {
	i, ok := c.chapterByArea[area]
	if !ok {
		return nil, false
	}
	return &c.Chapters[i], true
}

// ChapterByStatusLevel looks a chapter up by the level id shown on its
// status screen.
func (c *Catalog) ChapterByStatusLevel(level uint16) (*Chapter, bool) {
	i, ok := c.chapterByStatus[level]
	if !ok {
		return nil, false
	}
	return &c.Chapters[i], true
}

// Character returns the character delivered by f.
func (c *Catalog) Character(f progress.Fact) (*Character, bool) {
	i, ok := c.characterByFact[f]
	if !ok {
		return nil, false
	}
	return &c.Characters[i], true
}

// EpisodeUnlock returns the fact that opens episode ep (2..6).
func (c *Catalog) EpisodeUnlock(ep int) (progress.Fact, bool) {
	f, ok := c.episodeUnlocks[ep]
	return f, ok
}

// KnownFact reports whether f is defined.
func (c *Catalog) KnownFact(f progress.Fact) bool {
	_, ok := c.factNames[f]
	return ok
}

// FactName returns the display name of f, or "fact <id>" when unknown.
func (c *Catalog) FactName(f progress.Fact) string {
	if n, ok := c.factNames[f]; ok {
		return n
	}
	return fmt.Sprintf("fact %d", f)
}

// FactByName resolves a display name.
func (c *Catalog) FactByName(name string) (progress.Fact, bool) {
	f, ok := c.factsByName[name]
	return f, ok
}

// KnownCheck reports whether id is assigned.
func (c *Catalog) KnownCheck(id progress.CheckID) bool {
	_, ok := c.checkNames[id]
	return ok
}

// CheckName returns the display name of id, or "check <id>" when unknown.
func (c *Catalog) CheckName(id progress.CheckID) string {
	if n, ok := c.checkNames[id]; ok {
		return n
	}
	return fmt.Sprintf("check %d", id)
}

// CheckByName resolves a check display name such as "1-1 Completion".
func (c *Catalog) CheckByName(name string) (progress.CheckID, bool) {
	for id, n := range c.checkNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// AllChecks returns every assigned check id.
func (c *Catalog) AllChecks() progress.CheckSet {
	s := make(progress.CheckSet, len(c.checkNames))
	for id := range c.checkNames {
		s.Add(id)
	}
	return s
}

// Facts returns every defined fact in ascending order.
func (c *Catalog) Facts() []progress.Fact {
	out := make([]progress.Fact, 0, len(c.factNames))
	for f := range c.factNames {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Abilities returns the abilities available with inv: the starting
// abilities plus those of every received character.
func (c *Catalog) Abilities(inv progress.Inventory) ability.Set {
	set := StartingAbilities
	for _, f := range inv.Distinct() {
		if ch, ok := c.Character(f); ok {
			set = set.Union(ch.Abilities)
		}
	}
	return set
}
