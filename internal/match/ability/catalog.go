package ability

import (
	"fmt"

	"github.com/spf13/viper"
)

// Catalog is the indexed set of ability specs for a match. Abilities are
// referenced by index everywhere (commands, cooldowns, the wire format).
type Catalog struct {
	specs []Spec
}

// NewCatalog wraps a fixed spec list.
func NewCatalog(specs []Spec) *Catalog {
	return &Catalog{specs: specs}
}

// LoadCatalog reads ability definitions from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read ability catalog: %w", err)
	}

	var specs []Spec
	if err := v.UnmarshalKey("abilities", &specs); err != nil {
		return nil, fmt.Errorf("failed to parse ability catalog: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("ability catalog %s defines no abilities", path)
	}
	return &Catalog{specs: specs}, nil
}

// Get returns the spec at the given index.
func (c *Catalog) Get(index int) (Spec, bool) {
	if index < 0 || index >= len(c.specs) {
		return Spec{}, false
	}
	return c.specs[index], true
}

// Len returns the number of abilities in the catalog.
func (c *Catalog) Len() int {
	return len(c.specs)
}

// DefaultCatalog returns the built-in ability set used when no catalog
// file is configured.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Spec{
		{
			Name: "Bolt", Cost: 3, Cooldown: 1, Range: 4, Damage: 4,
			Targets: TargetFlags{Enemy: true},
			Overload: &OverloadSpec{CostMultiplier: 2, DamageMultiplier: 2},
		},
		{
			Name: "Mend", Cost: 2, Cooldown: 1, Range: 3, Heal: 3,
			Targets: TargetFlags{Self: true, Ally: true},
		},
		{
			Name: "Entangle", Cost: 2, Cooldown: 2, Range: 3,
			Targets: TargetFlags{Enemy: true},
			Status:  &StatusPayload{Kind: "ROOT", Turns: 2},
		},
		{
			Name: "Firestorm", Cost: 4, Cooldown: 3, Range: 5, Area: 1, Damage: 2,
			Targets: TargetFlags{Ground: true},
			Zone:    &ZonePayload{Radius: 1, Damage: 2, Turns: 2},
		},
	})
}
