package unit

import (
	"testing"

	"github.com/auragrid/auragrid-server-go/internal/match/grid"
)

func TestStatusGating(t *testing.T) {
	u := New(1, "grunt", 1, grid.Position{X: 0, Y: 0}, 10)

	if !u.CanMove() || !u.CanAct() {
		t.Fatal("fresh unit must be able to move and act")
	}

	u.ApplyStatus(Status{Kind: StatusRoot, TurnsLeft: 2})
	if u.CanMove() {
		t.Fatal("rooted unit must not move")
	}
	if !u.CanAct() {
		t.Fatal("rooted unit may still act")
	}

	u.ApplyStatus(Status{Kind: StatusStun, TurnsLeft: 1})
	if u.CanAct() {
		t.Fatal("stunned unit must not act")
	}
}

func TestShieldAbsorbsDamage(t *testing.T) {
	u := New(1, "guard", 1, grid.Position{}, 10)
	u.ApplyStatus(Status{Kind: StatusShield, TurnsLeft: 2, Amount: 3})

	dealt := u.ApplyDamage(5)
	if dealt != 2 {
		t.Fatalf("expected 2 damage past the shield, got %d", dealt)
	}
	if u.HP != 8 {
		t.Fatalf("expected 8 HP, got %d", u.HP)
	}
	if u.HasStatus(StatusShield) {
		t.Fatal("consumed shield must be removed")
	}
}

func TestBurnTicksAtResolution(t *testing.T) {
	u := New(1, "scout", 2, grid.Position{}, 10)
	u.ApplyStatus(Status{Kind: StatusBurn, TurnsLeft: 2, Amount: 2})

	if dmg := u.TickStatuses(); dmg != 2 {
		t.Fatalf("expected 2 burn damage, got %d", dmg)
	}
	if !u.HasStatus(StatusBurn) {
		t.Fatal("burn should persist one more turn")
	}
	if dmg := u.TickStatuses(); dmg != 2 {
		t.Fatalf("expected 2 burn damage on second tick, got %d", dmg)
	}
	if u.HasStatus(StatusBurn) {
		t.Fatal("burn should have expired")
	}
	if u.HP != 6 {
		t.Fatalf("expected 6 HP after two ticks, got %d", u.HP)
	}
}

func TestCooldownsPersistAcrossPhases(t *testing.T) {
	u := New(1, "mage", 1, grid.Position{}, 10)
	u.StartCooldown(0, 2)

	if !u.OnCooldown(0) {
		t.Fatal("expected ability 0 on cooldown")
	}
	u.ClearPhaseState() // phase reset must not touch cooldowns
	if !u.OnCooldown(0) {
		t.Fatal("cooldown must survive phase reset")
	}

	u.TickCooldowns()
	if !u.OnCooldown(0) {
		t.Fatal("expected one turn of cooldown remaining")
	}
	u.TickCooldowns()
	if u.OnCooldown(0) {
		t.Fatal("cooldown should have expired")
	}
}

func TestRegistryOrderIsStable(t *testing.T) {
	r := NewRegistry()
	a := r.Spawn("a", 1, grid.Position{X: 0, Y: 0}, 10)
	b := r.Spawn("b", 2, grid.Position{X: 1, Y: 0}, 10)
	c := r.Spawn("c", 1, grid.Position{X: 2, Y: 0}, 10)

	for i := 0; i < 5; i++ {
		alive := r.Alive()
		if len(alive) != 3 || alive[0] != a || alive[1] != b || alive[2] != c {
			t.Fatalf("iteration %d: order not stable: %v", i, alive)
		}
	}

	b.ApplyDamage(100)
	alive := r.Alive()
	if len(alive) != 2 || alive[0] != a || alive[1] != c {
		t.Fatal("dead units must drop out without disturbing order")
	}
}

func TestRegistryAtPosition(t *testing.T) {
	r := NewRegistry()
	r.Spawn("a", 1, grid.Position{X: 3, Y: 3}, 10)

	if _, ok := r.AtPosition(grid.Position{X: 3, Y: 3}); !ok {
		t.Fatal("expected occupant at (3,3)")
	}
	if _, ok := r.AtPosition(grid.Position{X: 4, Y: 3}); ok {
		t.Fatal("expected (4,3) empty")
	}
}
