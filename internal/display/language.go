package display

import "bytes"

// Anchor is the byte pattern the display searches for. R2-D2 and C-3PO keep
// their names in every localisation.
const Anchor = "\x00R2-D2\x00C-3PO\x00"

// Language describes one localisation of the string table the display
// borrows. The Rebel Trooper string sits directly before the anchor and
// identifies the language; StartOffset is the distance from the anchor back
// to the first borrowed string ("Double Score Zone!").
type Language struct {
	Name        string
	TrooperName string
	StartOffset int
}

// Languages lists every supported localisation.
var Languages = []Language{
	{"english", "Rebel Trooper", -482},
	{"french", "Soldat rebelle", -619},
	{"danish", "Rebel-trooper", -562},
	{"german", "Rebellentruppe", -643},
	{"italian", "Soldato ribelle", -670},
	{"japanese", "反乱軍 トルーパー", -769},
	{"polish", "Żołnierz Rebelii", -696},
	{"russian", "Глиссер-снегоход", -957},
	{"spanish", "Soldado rebelde", -639},
}

// lookbehind is the longest Rebel Trooper name in bytes.
var lookbehind = func() int {
	n := 0
	for _, l := range Languages {
		n = max(n, len(l.TrooperName))
	}
	return n
}()

// MaxMessageSize returns the number of bytes the language's borrowed region
// spans, terminator included.
func (l Language) MaxMessageSize() int {
	return -l.StartOffset - len(l.TrooperName)
}

// detectLanguage identifies the language from the bytes preceding the
// anchor: the trooper name is everything after the last NUL.
func detectLanguage(before []byte) (Language, bool) {
	name := before
	if i := bytes.LastIndexByte(before, 0); i >= 0 {
		name = before[i+1:]
	}
	for _, l := range Languages {
		if string(name) == l.TrooperName {
			return l, true
		}
	}
	return Language{}, false
}
