package ability

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEffectiveCostAndDamage(t *testing.T) {
	spec := Spec{
		Cost: 3, Damage: 4,
		Overload: &OverloadSpec{CostMultiplier: 2, DamageMultiplier: 3},
	}

	if spec.EffectiveCost(false) != 3 {
		t.Fatalf("expected base cost 3, got %d", spec.EffectiveCost(false))
	}
	if spec.EffectiveCost(true) != 6 {
		t.Fatalf("expected overload cost 6, got %d", spec.EffectiveCost(true))
	}
	if spec.EffectiveDamage(true) != 12 {
		t.Fatalf("expected overload damage 12, got %d", spec.EffectiveDamage(true))
	}

	plain := Spec{Cost: 2, Damage: 1}
	if plain.EffectiveCost(true) != 2 {
		t.Fatal("overload without a variant must not change cost")
	}
}

func TestCatalogIndexing(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() == 0 {
		t.Fatal("default catalog must not be empty")
	}
	if _, ok := c.Get(0); !ok {
		t.Fatal("expected ability at index 0")
	}
	if _, ok := c.Get(-1); ok {
		t.Fatal("negative index must miss")
	}
	if _, ok := c.Get(c.Len()); ok {
		t.Fatal("out-of-range index must miss")
	}
}

func TestLoadCatalogFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abilities.yaml")
	data := []byte(`abilities:
  - name: Spark
    cost: 1
    cooldown: 1
    range: 3
    damage: 2
    targets:
      enemy: true
  - name: Ward
    cost: 2
    range: 2
    targets:
      self: true
      ally: true
    status:
      kind: SHIELD
      turns: 2
      amount: 3
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 abilities, got %d", c.Len())
	}

	spark, _ := c.Get(0)
	if spark.Name != "Spark" || spark.Damage != 2 || !spark.Targets.Enemy {
		t.Fatalf("unexpected spark spec: %+v", spark)
	}
	ward, _ := c.Get(1)
	if ward.Status == nil || ward.Status.Kind != "SHIELD" || ward.Status.Amount != 3 {
		t.Fatalf("unexpected ward status payload: %+v", ward.Status)
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog("/nonexistent/abilities.yaml"); err == nil {
		t.Fatal("expected error for missing catalog")
	}
}
