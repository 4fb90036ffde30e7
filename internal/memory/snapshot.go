package memory

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Region is one contiguous run of bytes in a Snapshot. Exactly one of Hex or
// Text is set; Text is written verbatim (no terminator is appended).
type Region struct {
	Address uint32 `yaml:"address"`
	Hex     string `yaml:"hex,omitempty"`
	Text    string `yaml:"text,omitempty"`
}

// Bytes decodes the region payload. Whitespace inside Hex is ignored.
func (r Region) Bytes() ([]byte, error) {
	if r.Text != "" {
		if r.Hex != "" {
			return nil, fmt.Errorf("region %s: hex and text are mutually exclusive", Address(r.Address))
		}
		return []byte(r.Text), nil
	}
	clean := strings.Join(strings.Fields(r.Hex), "")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", Address(r.Address), err)
	}
	return b, nil
}

// Snapshot is the YAML form of an Image.
type Snapshot struct {
	Regions []Region `yaml:"regions"`
}

// Apply pokes every region into im.
func (s *Snapshot) Apply(im *Image) error {
	for _, r := range s.Regions {
		b, err := r.Bytes()
		if err != nil {
			return err
		}
		im.Poke(Address(r.Address), b)
	}
	return nil
}

// LoadSnapshot reads a YAML snapshot file into a new Image.
func LoadSnapshot(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	im := NewImage()
	if err := snap.Apply(im); err != nil {
		return nil, fmt.Errorf("apply snapshot %s: %w", path, err)
	}
	return im, nil
}

// Snapshot captures the image's allocated pages, one region per page with
// leading and trailing zero bytes trimmed. All-zero pages are omitted.
func (im *Image) Snapshot() *Snapshot {
	im.mu.Lock()
	defer im.mu.Unlock()

	keys := make([]uint32, 0, len(im.pages))
	for k := range im.pages {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	snap := &Snapshot{}
	for _, k := range keys {
		p := im.pages[k]
		start := bytes.IndexFunc(p, func(r rune) bool { return r != 0 })
		if start < 0 {
			continue
		}
		end := len(bytes.TrimRight(p, "\x00"))
		snap.Regions = append(snap.Regions, Region{
			Address: k*pageSize + uint32(start),
			Hex:     hex.EncodeToString(p[start:end]),
		})
	}
	return snap
}

// SaveSnapshot writes the image as YAML to path.
func (im *Image) SaveSnapshot(path string) error {
	data, err := yaml.Marshal(im.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
