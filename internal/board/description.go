package board

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// glyphTable maps the description's integer glyph indices to base
// characters. Index 0 is empty space, index 1 is wall (spec.md §6.1); any
// index beyond that comes from the optional meta sidecar's glyph_chars.
var glyphTable = map[int]rune{
	0: EmptyChar,
	1: WallChar,
}

// RunEntry is one run-length-encoded entry of a board description.
type RunEntry struct {
	Entity int `json:"entity"`
	Repeat int `json:"repeat,omitempty"`
}

// Description is the RLE-JSON board format consumed at startup (§6.1).
type Description struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Cells  []RunEntry `json:"cells"`
}

// Meta is an optional YAML sidecar: the published dimension allow-list,
// extra glyph-index-to-character entries used by Build, and a
// glyph-index-to-color palette. The palette is parsed but not read by any
// code in this repository; SerializeGrid stays base-character only.
type Meta struct {
	AllowedDims [][2]int         `yaml:"allowed_dims"`
	Palette     map[int]uint32   `yaml:"palette"`
	GlyphChars  map[int]rune     `yaml:"glyph_chars"`
}

// DefaultAllowedDims is the published allow-list when no Meta sidecar is
// supplied (spec.md §6.1 default 60×25).
func DefaultAllowedDims() [][2]int {
	return [][2]int{{60, 25}}
}

// ParseDescription decodes raw RLE-JSON bytes into a Description, validating
// shape but not dimensions (dimension allow-listing is a separate step so
// callers can report a clear, specific error).
func ParseDescription(raw []byte) (*Description, error) {
	var d Description
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("board: malformed description: %w", err)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return nil, fmt.Errorf("board: width and height must be positive")
	}
	return &d, nil
}

// LoadMeta reads and parses the optional YAML board-meta sidecar. A missing
// file is not an error; it yields an empty Meta so callers fall back to
// DefaultAllowedDims.
func LoadMeta(path string) (*Meta, error) {
	if path == "" {
		return &Meta{}, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Meta{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("board: reading meta %q: %w", path, err)
	}
	var m Meta
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("board: malformed meta %q: %w", path, err)
	}
	return &m, nil
}

// AllowedDims returns m's allow-list, or the published default if m is nil
// or carries none.
func (m *Meta) AllowedDims() [][2]int {
	if m == nil || len(m.AllowedDims) == 0 {
		return DefaultAllowedDims()
	}
	return m.AllowedDims
}

// ValidateDims rejects a (width,height) pair not on the allow-list.
func ValidateDims(width, height int, allowed [][2]int) error {
	for _, d := range allowed {
		if d[0] == width && d[1] == height {
			return nil
		}
	}
	return fmt.Errorf("board: dimensions %dx%d not in allow-list %v", width, height, allowed)
}

// Build decodes the RLE-JSON cell sequence into a Board. The glyph table is
// extended with any custom glyph_chars from meta.
func Build(d *Description, meta *Meta) (*Board, error) {
	table := glyphTable
	if meta != nil && len(meta.GlyphChars) > 0 {
		table = make(map[int]rune, len(glyphTable)+len(meta.GlyphChars))
		for k, v := range glyphTable {
			table[k] = v
		}
		for k, v := range meta.GlyphChars {
			table[k] = v
		}
	}

	b := New(d.Width, d.Height)
	total := d.Width * d.Height

	pos := 0
	for _, run := range d.Cells {
		repeat := run.Repeat
		if repeat == 0 {
			repeat = 1
		}
		if repeat < 1 {
			return nil, fmt.Errorf("board: run repeat must be >= 1, got %d", repeat)
		}
		ch, ok := table[run.Entity]
		if !ok {
			return nil, fmt.Errorf("board: unknown glyph index %d", run.Entity)
		}
		for i := 0; i < repeat; i++ {
			if pos >= total {
				return nil, fmt.Errorf("board: run-length sequence exceeds width*height (%d)", total)
			}
			x := pos % d.Width
			y := pos / d.Width
			if err := b.SetBaseChar(x, y, ch); err != nil {
				return nil, err
			}
			pos++
		}
	}
	if pos != total {
		return nil, fmt.Errorf("board: run-length sequence decodes to %d cells, want %d", pos, total)
	}
	return b, nil
}

// Encode re-encodes a Board back into run-length form. Round-tripping
// ParseDescription -> Build -> Encode yields the same run structure as the
// original description whenever the original was itself maximally
// run-length-compressed (spec.md §8 round-trip property) and used only
// glyph indices 0 and 1. Encode does not consult a Meta: base characters
// added through glyph_chars are encoded with index -1.
func Encode(b *Board) *Description {
	inverse := make(map[rune]int, len(glyphTable))
	for idx, ch := range glyphTable {
		inverse[ch] = idx
	}

	d := &Description{Width: b.Width, Height: b.Height}
	grid := b.SerializeGrid()

	var runs []RunEntry
	var curIdx int
	var curRepeat int
	started := false

	flush := func() {
		if started {
			runs = append(runs, RunEntry{Entity: curIdx, Repeat: curRepeat})
		}
	}

	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			idx, ok := inverse[grid[y][x]]
			if !ok {
				idx = -1
			}
			if started && idx == curIdx {
				curRepeat++
				continue
			}
			flush()
			curIdx = idx
			curRepeat = 1
			started = true
		}
	}
	flush()

	d.Cells = runs
	return d
}
