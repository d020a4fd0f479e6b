package appearance

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Tag names an environment-recognized shape/material.
type Tag string

// Well-known tags used by the built-in visualizations.
const (
	WhiteConcrete     Tag = "white_concrete"
	BlackConcrete     Tag = "black_concrete"
	LightBlueConcrete Tag = "light_blue_concrete"
	RedConcrete       Tag = "red_concrete"
	CoalBlock         Tag = "coal_block"
	EmeraldBlock      Tag = "emerald_block"
	RedstoneBlock     Tag = "redstone_block"
	Barrier           Tag = "barrier"
	Glass             Tag = "glass"
)

var ErrInvalidEntry = errors.New("appearance: invalid catalog entry")

// Entry describes one tag.
type Entry struct {
	Tag   Tag    `toml:"tag"`
	Solid bool   `toml:"solid"`
	Note  string `toml:"note"`
}

type catalogFile struct {
	Entries []Entry `toml:"appearance"`
}

// Catalog answers whether a tag renders as a solid shape.
type Catalog struct {
	mu      sync.RWMutex
	entries map[Tag]Entry
}

func NewCatalog(entries ...Entry) *Catalog {
	c := &Catalog{entries: make(map[Tag]Entry)}
	for _, e := range entries {
		_ = c.Add(e)
	}
	return c
}

// DefaultCatalog holds the solid blocks used by the visualizations plus a
// few non-solid tags that must be rejected.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Entry{Tag: WhiteConcrete, Solid: true},
		Entry{Tag: BlackConcrete, Solid: true},
		Entry{Tag: LightBlueConcrete, Solid: true},
		Entry{Tag: RedConcrete, Solid: true},
		Entry{Tag: CoalBlock, Solid: true},
		Entry{Tag: EmeraldBlock, Solid: true},
		Entry{Tag: RedstoneBlock, Solid: true},
		Entry{Tag: Barrier, Solid: true},
		Entry{Tag: Glass, Solid: true},
		Entry{Tag: "wooden_axe", Solid: false, Note: "item"},
		Entry{Tag: "breeze_rod", Solid: false, Note: "item"},
	)
}

func (c *Catalog) Add(e Entry) error {
	key := Tag(strings.ToLower(strings.TrimSpace(string(e.Tag))))
	if key == "" {
		return fmt.Errorf("%w: empty tag", ErrInvalidEntry)
	}
	e.Tag = key
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
	return nil
}

// Solid reports whether tag is known and denotes a solid shape.
func (c *Catalog) Solid(tag Tag) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[tag]
	return ok && e.Solid
}

func (c *Catalog) Lookup(tag Tag) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[tag]
	return e, ok
}

func (c *Catalog) Tags() []Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Tag, 0, len(c.entries))
	for tag := range c.entries {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadCatalog overlays [[appearance]] entries from path onto the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("appearance catalog load failed (%s): %w", path, err)
	}
	var raw catalogFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("appearance catalog parse failed (%s): %w", path, err)
	}
	cat := DefaultCatalog()
	for i, e := range raw.Entries {
		if err := cat.Add(e); err != nil {
			return nil, fmt.Errorf("appearance[%d]: %w", i, err)
		}
	}
	return cat, nil
}
