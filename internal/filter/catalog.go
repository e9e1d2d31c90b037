// Package filter holds the static catalogs of edit filters and the user's
// selection over them.
//
// A filter is a named, pre-authored instruction fragment for one visual
// modification ("remove trash"). Catalogs are immutable once loaded; their
// order is the order fragments appear in generated prompts.
package filter

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fpang/redo-ai/internal/assets"
)

// Mode selects the subject of the photo and therefore the catalog and
// prompt framing.
type Mode string

const (
	ModeCity Mode = "CITY"
	ModeHome Mode = "HOME"
)

// ParseMode accepts "city"/"home" in any case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeCity:
		return ModeCity, nil
	case ModeHome:
		return ModeHome, nil
	}
	return "", fmt.Errorf("unknown mode %q (want city or home)", s)
}

// Category groups HOME filters in the editor. CITY filters have none.
type Category string

const (
	CategoryStyle     Category = "style"
	CategoryLighting  Category = "lighting"
	CategoryDeclutter Category = "declutter"
	CategoryGreenery  Category = "greenery"
	CategoryFurniture Category = "furniture"
)

var knownCategories = map[Category]bool{
	CategoryStyle:     true,
	CategoryLighting:  true,
	CategoryDeclutter: true,
	CategoryGreenery:  true,
	CategoryFurniture: true,
}

// Option is one filter in a catalog.
type Option struct {
	ID             string   `yaml:"id" json:"id"`
	Label          string   `yaml:"label" json:"label"`
	Description    string   `yaml:"description" json:"description"`
	PromptFragment string   `yaml:"prompt" json:"promptFragment"`
	Category       Category `yaml:"category,omitempty" json:"category,omitempty"`
	IsDefault      bool     `yaml:"default" json:"isDefault"`
}

// ErrUnknownFilter is returned when an ID is not in the catalog.
var ErrUnknownFilter = errors.New("unknown filter")

// Catalog is an ordered, immutable set of filters for one mode.
type Catalog struct {
	mode    Mode
	options []Option
	index   map[string]int
}

// Parse decodes and validates a YAML catalog. IDs and prompt fragments must
// be unique and non-empty, which keeps prompt assembly injective.
func Parse(mode Mode, data []byte) (*Catalog, error) {
	var options []Option
	if err := yaml.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("parse %s catalog: %w", mode, err)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%s catalog is empty", mode)
	}

	c := &Catalog{mode: mode, options: options, index: make(map[string]int, len(options))}
	fragments := make(map[string]string, len(options))
	for i, o := range options {
		if o.ID == "" {
			return nil, fmt.Errorf("%s catalog entry %d has no id", mode, i)
		}
		if _, dup := c.index[o.ID]; dup {
			return nil, fmt.Errorf("%s catalog has duplicate id %q", mode, o.ID)
		}
		frag := strings.TrimSpace(o.PromptFragment)
		if frag == "" {
			return nil, fmt.Errorf("%s filter %q has no prompt", mode, o.ID)
		}
		if other, dup := fragments[frag]; dup {
			return nil, fmt.Errorf("%s filters %q and %q share a prompt", mode, other, o.ID)
		}
		if o.Category != "" && !knownCategories[o.Category] {
			return nil, fmt.Errorf("%s filter %q has unknown category %q", mode, o.ID, o.Category)
		}
		fragments[frag] = o.ID
		c.options[i].PromptFragment = frag
		c.index[o.ID] = i
	}
	return c, nil
}

var (
	loadOnce sync.Once
	builtin  map[Mode]*Catalog
	loadErr  error
)

// Load returns the embedded catalog for mode. Catalogs are parsed once.
func Load(mode Mode) (*Catalog, error) {
	loadOnce.Do(func() {
		builtin = make(map[Mode]*Catalog, 2)
		for m, data := range map[Mode][]byte{ModeCity: assets.CityFilters, ModeHome: assets.HomeFilters} {
			c, err := Parse(m, data)
			if err != nil {
				loadErr = err
				return
			}
			builtin[m] = c
		}
	})
	if loadErr != nil {
		return nil, loadErr
	}
	c, ok := builtin[mode]
	if !ok {
		return nil, fmt.Errorf("no catalog for mode %q", mode)
	}
	return c, nil
}

// MustLoad is Load for callers that treat a broken embedded catalog as a
// programming error.
func MustLoad(mode Mode) *Catalog {
	c, err := Load(mode)
	if err != nil {
		panic(err)
	}
	return c
}

// Mode returns the catalog's mode.
func (c *Catalog) Mode() Mode { return c.mode }

// Options returns a copy of the filters in catalog order.
func (c *Catalog) Options() []Option {
	out := make([]Option, len(c.options))
	copy(out, c.options)
	return out
}

// Lookup finds a filter by ID.
func (c *Catalog) Lookup(id string) (Option, bool) {
	i, ok := c.index[id]
	if !ok {
		return Option{}, false
	}
	return c.options[i], true
}

// Defaults returns the IDs of the default filters in catalog order.
func (c *Catalog) Defaults() []string {
	var ids []string
	for _, o := range c.options {
		if o.IsDefault {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Resolve maps IDs to filters in catalog order, dropping duplicates.
// Unknown IDs fail the whole call.
func (c *Catalog) Resolve(ids []string) ([]Option, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.index[id]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, id)
		}
		want[id] = true
	}
	out := make([]Option, 0, len(want))
	for _, o := range c.options {
		if want[o.ID] {
			out = append(out, o)
		}
	}
	return out, nil
}
