package catalog

import (
	"fmt"

	"github.com/roach88/tcslink/internal/ability"
	"github.com/roach88/tcslink/internal/memory"
	"github.com/roach88/tcslink/internal/progress"
)

// builder cross-references a decoded document into a Catalog.
type builder struct {
	doc *document
	cat *Catalog
}

func (b *builder) build() error {
	steps := []func() error{
		b.bases,
		b.addresses,
		b.generic,
		b.episodes,
		b.characters,
		b.extras,
		b.chapters,
		b.bonuses,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) bases() error {
	cb := b.doc.CheckBases
	b.cat.Bases = CheckBases{
		Chapter:           progress.CheckID(cb.Chapter),
		CharacterPurchase: progress.CheckID(cb.CharacterPurchase),
		ExtraPurchase:     progress.CheckID(cb.ExtraPurchase),
	}
	chapterEnd := cb.Chapter + int64(len(b.doc.Chapters))*checkStride
	if chapterEnd > cb.CharacterPurchase || cb.CharacterPurchase+128 > cb.ExtraPurchase {
		return &LoadError{Field: "check_bases", Message: "check id ranges overlap"}
	}
	return nil
}

func (b *builder) addresses() error {
	raw := b.doc.Addresses
	a := &b.cat.Addresses
	fields := []struct {
		key string
		dst *memory.Address
	}{
		{"character_shop", &a.CharacterShop},
		{"extras_shop", &a.ExtrasShop},
		{"stud_count", &a.StudCount},
		{"bonuses", &a.Bonuses},
		{"goal_text", &a.GoalText},
		{"current_area", &a.CurrentArea},
		{"current_level", &a.CurrentLevel},
		{"live_minikits", &a.LiveMinikits},
		{"live_studs_p1", &a.LiveStudsP1},
		{"live_studs_p2", &a.LiveStudsP2},
		{"true_jedi_meter", &a.TrueJediMeter},
		{"game_mode", &a.GameMode},
		{"status_type", &a.StatusType},
		{"display_timer", &a.DisplayTimer},
		{"paused", &a.Paused},
		{"tabbed_out", &a.TabbedOut},
		{"menu_depth", &a.MenuDepth},
		{"is_playing", &a.IsPlaying},
		{"game_state", &a.GameState},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			return &LoadError{Field: "addresses." + f.key, Message: "address is required"}
		}
		*f.dst = memory.Address(v)
	}
	return nil
}

func (b *builder) generic() error {
	g := &b.cat.Generic
	fields := []struct {
		key string
		dst *progress.Fact
	}{
		{"minikit_bundle", &g.MinikitBundle},
		{"progressive_bonus", &g.ProgressiveBonus},
		{"progressive_score", &g.ProgressiveScore},
		{"purple_stud", &g.PurpleStud},
		{"restart_trap", &g.RestartTrap},
	}
	for _, f := range fields {
		v, ok := b.doc.Generic[f.key]
		if !ok {
			return &LoadError{Field: "generic." + f.key, Message: "fact is required"}
		}
		if err := b.defineFact("generic."+f.key, progress.Fact(v.ID), v.Name); err != nil {
			return err
		}
		*f.dst = progress.Fact(v.ID)
	}
	return nil
}

func (b *builder) episodes() error {
	for _, e := range b.doc.EpisodeUnlocks {
		if _, dup := b.cat.episodeUnlocks[e.Episode]; dup {
			return &LoadError{Field: "episode_unlocks", Message: fmt.Sprintf("episode %d listed twice", e.Episode)}
		}
		name := fmt.Sprintf("Episode %d Unlock", e.Episode)
		if err := b.defineFact("episode_unlocks", progress.Fact(e.ID), name); err != nil {
			return err
		}
		b.cat.episodeUnlocks[e.Episode] = progress.Fact(e.ID)
	}
	return nil
}

func (b *builder) characters() error {
	slots := make(map[int]string)
	for _, raw := range b.doc.Characters {
		field := "characters." + raw.Name
		abilities, err := ability.ParseAll(raw.Abilities)
		if err != nil {
			return &LoadError{Field: field, Message: err.Error()}
		}
		ch := Character{
			Name:      raw.Name,
			Fact:      progress.Fact(raw.ID),
			ShopSlot:  raw.ShopSlot,
			Abilities: abilities,
		}
		if err := b.defineFact(field, ch.Fact, ch.Name); err != nil {
			return err
		}
		if ch.Purchasable() {
			if other, dup := slots[ch.ShopSlot]; dup {
				return &LoadError{Field: field, Message: fmt.Sprintf("shop slot %d already used by %s", ch.ShopSlot, other)}
			}
			slots[ch.ShopSlot] = ch.Name
			ch.Purchase = b.cat.Bases.CharacterPurchase + progress.CheckID(ch.ShopSlot)
			b.cat.checkNames[ch.Purchase] = "Purchase " + ch.Name
		}
		b.cat.characterByFact[ch.Fact] = len(b.cat.Characters)
		b.cat.Characters = append(b.cat.Characters, ch)
	}
	return nil
}

func (b *builder) extras() error {
	numbers := make(map[int]string)
	for _, raw := range b.doc.Extras {
		field := "extras." + raw.Name
		if other, dup := numbers[raw.Number]; dup {
			return &LoadError{Field: field, Message: fmt.Sprintf("extra number %d already used by %s", raw.Number, other)}
		}
		numbers[raw.Number] = raw.Name
		ex := Extra{
			Name:     raw.Name,
			Number:   raw.Number,
			Fact:     progress.Fact(raw.ID),
			Chapter:  raw.Chapter,
			Purchase: b.cat.Bases.ExtraPurchase + progress.CheckID(raw.Number),
		}
		if ex.Fact != 0 {
			if err := b.defineFact(field, ex.Fact, ex.Name); err != nil {
				return err
			}
		}
		b.cat.checkNames[ex.Purchase] = "Purchase " + ex.Name
		b.cat.Extras = append(b.cat.Extras, ex)
	}
	return nil
}

func (b *builder) chapters() error {
	extras := make(map[string]bool, len(b.cat.Extras))
	for _, ex := range b.cat.Extras {
		extras[ex.Name] = true
	}

	for i, raw := range b.doc.Chapters {
		field := "chapters." + raw.Short
		ch := Chapter{
			Index:       i,
			Short:       raw.Short,
			Name:        raw.Name,
			Address:     memory.Address(raw.Address),
			StatusLevel: raw.StatusLevel,
			Area:        raw.Area,
			PowerBrick:  raw.PowerBrick,
		}
		if _, err := fmt.Sscanf(raw.Short, "%d-%d", &ch.Episode, &ch.Number); err != nil {
			return &LoadError{Field: field, Message: "short name must be E-N"}
		}
		if _, dup := b.cat.chapterByShort[ch.Short]; dup {
			return &LoadError{Field: field, Message: "chapter listed twice"}
		}
		if _, dup := b.cat.chapterByArea[ch.Area]; dup {
			return &LoadError{Field: field, Message: fmt.Sprintf("area %d already used", ch.Area)}
		}
		if _, dup := b.cat.chapterByStatus[ch.StatusLevel]; dup {
			return &LoadError{Field: field, Message: fmt.Sprintf("status level %d already used", ch.StatusLevel)}
		}
		if ch.PowerBrick != "" && !extras[ch.PowerBrick] {
			return &LoadError{Field: field, Message: fmt.Sprintf("unknown power brick extra %q", ch.PowerBrick)}
		}

		var err error
		if ch.PowerBrickAbilities, err = ability.ParseAll(raw.PowerBrickAbilities); err != nil {
			return &LoadError{Field: field, Message: err.Error()}
		}
		if ch.AllMinikitAbilities, err = ability.ParseAll(raw.AllMinikitsAbilities); err != nil {
			return &LoadError{Field: field, Message: err.Error()}
		}

		if ch.Requirements, err = b.resolveCharacters(field, raw.Requires); err != nil {
			return err
		}
		if ch.Episode != 1 {
			unlock, ok := b.cat.episodeUnlocks[ch.Episode]
			if !ok {
				return &LoadError{Field: field, Message: fmt.Sprintf("no unlock fact for episode %d", ch.Episode)}
			}
			ch.Requirements = append(ch.Requirements, unlock)
		}

		base := b.cat.Bases.Chapter + progress.CheckID(i*checkStride)
		ch.Completion = base + slotCompletion
		ch.TrueJedi = base + slotTrueJedi
		b.cat.checkNames[ch.Completion] = ch.Short + " Completion"
		b.cat.checkNames[ch.TrueJedi] = ch.Short + " True Jedi"
		for k := range ch.Minikits {
			ch.Minikits[k] = base + slotFirstMinikit + progress.CheckID(k)
			b.cat.checkNames[ch.Minikits[k]] = fmt.Sprintf("%s Minikit %d", ch.Short, k+1)
		}

		b.cat.chapterByShort[ch.Short] = i
		b.cat.chapterByArea[ch.Area] = i
		b.cat.chapterByStatus[ch.StatusLevel] = i
		b.cat.Chapters = append(b.cat.Chapters, ch)
	}
	return nil
}

func (b *builder) bonuses() error {
	seen := make(map[int]bool)
	for _, raw := range b.doc.Bonuses {
		field := "bonuses." + raw.Name
		if seen[raw.Door] {
			return &LoadError{Field: field, Message: fmt.Sprintf("door %d listed twice", raw.Door)}
		}
		seen[raw.Door] = true
		reqs, err := b.resolveCharacters(field, raw.Requires)
		if err != nil {
			return err
		}
		b.cat.Bonuses = append(b.cat.Bonuses, BonusDoor{Name: raw.Name, Door: raw.Door, Requirements: reqs})
	}
	return nil
}

func (b *builder) resolveCharacters(field string, names []string) ([]progress.Fact, error) {
	out := make([]progress.Fact, 0, len(names))
	for _, name := range names {
		f, ok := b.cat.factsByName[name]
		if !ok {
			return nil, &LoadError{Field: field, Message: fmt.Sprintf("unknown character %q", name)}
		}
		if _, isChar := b.cat.characterByFact[f]; !isChar {
			return nil, &LoadError{Field: field, Message: fmt.Sprintf("%q is not a character", name)}
		}
		out = append(out, f)
	}
	return out, nil
}

func (b *builder) defineFact(field string, f progress.Fact, name string) error {
	if f <= 0 {
		return &LoadError{Field: field, Message: "fact id must be positive"}
	}
	if other, dup := b.cat.factNames[f]; dup {
		return &LoadError{Field: field, Message: fmt.Sprintf("fact id %d already used by %s", f, other)}
	}
	if _, dup := b.cat.factsByName[name]; dup {
		return &LoadError{Field: field, Message: fmt.Sprintf("fact name %q defined twice", name)}
	}
	b.cat.factNames[f] = name
	b.cat.factsByName[name] = f
	return nil
}
