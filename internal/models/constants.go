package models

import (
	"errors"
	"fmt"
)

var ErrEmptyCategories = errors.New("category table is empty")

const (
	CategoryFire          = "fire"
	CategoryDenseTraffic  = "dense_traffic"
	CategorySparseTraffic = "sparse_traffic"
	CategoryAccident      = "accident"
	CategoryTraffic       = "traffic"
	CategoryConstruction  = "construction"
	CategoryFlood         = "flood"

	PresetNZ    = "nz"
	PresetUrban = "urban"
)

// Category is one entry of the legend: the label drawn by the simulator plus
// how a renderer should display it.
type Category struct {
	Name  string `json:"name" mapstructure:"name"`
	Label string `json:"label" mapstructure:"label"`
	Color string `json:"color" mapstructure:"color"`
	Icon  string `json:"icon" mapstructure:"icon"`
}

// CategoryTable is the closed, ordered set of event types in use.
type CategoryTable []Category

var (
	NZCategories = CategoryTable{
		{Name: CategoryFire, Label: "Fire", Color: "#ef4444", Icon: "🔥"},
		{Name: CategoryDenseTraffic, Label: "Dense Traffic", Color: "#f97316", Icon: "🚗"},
		{Name: CategorySparseTraffic, Label: "Sparse Traffic", Color: "#22c55e", Icon: "🚙"},
		{Name: CategoryAccident, Label: "Accident", Color: "#a855f7", Icon: "🚑"},
	}

	UrbanCategories = CategoryTable{
		{Name: CategoryTraffic, Label: "Traffic", Color: "#ef4444", Icon: "🚦"},
		{Name: CategoryConstruction, Label: "Construction", Color: "#f97316", Icon: "🚧"},
		{Name: CategoryAccident, Label: "Accident", Color: "#a855f7", Icon: "🚑"},
		{Name: CategoryFlood, Label: "Flood", Color: "#3b82f6", Icon: "🌊"},
	}
)

func CategoryPreset(name string) (CategoryTable, error) {
	switch name {
	case "", PresetNZ:
		return NZCategories.Clone(), nil
	case PresetUrban:
		return UrbanCategories.Clone(), nil
	default:
		return nil, fmt.Errorf("unknown category preset: %s", name)
	}
}

func (t CategoryTable) Names() []string {
	names := make([]string, len(t))
	for i, c := range t {
		names[i] = c.Name
	}
	return names
}

func (t CategoryTable) Has(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

func (t CategoryTable) Lookup(name string) (Category, bool) {
	for _, c := range t {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

func (t CategoryTable) Clone() CategoryTable {
	out := make(CategoryTable, len(t))
	copy(out, t)
	return out
}

func (t CategoryTable) Validate() error {
	if len(t) == 0 {
		return ErrEmptyCategories
	}
	seen := make(map[string]struct{}, len(t))
	for i, c := range t {
		if c.Name == "" {
			return fmt.Errorf("category %d has no name", i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate category: %s", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}
