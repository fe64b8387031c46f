package rules

import "testing"

func TestPhaseCycleOrder(t *testing.T) {
	expected := []Phase{
		PhaseOpening,
		PhaseMovement,
		PhaseAuraP1R1,
		PhaseAuraP2R1,
		PhaseAuraP1R2,
		PhaseAuraP2R2,
		PhaseMovement, // wraps back to Movement, never Opening
	}

	current := PhaseOpening
	for i := 1; i < len(expected); i++ {
		current = NextPhase(current)
		if current != expected[i] {
			t.Fatalf("step %d: expected %s, got %s", i, expected[i], current)
		}
	}
}

func TestMovementAllowedOnlyInOpeningAndMovement(t *testing.T) {
	specs := buildPhaseSpecs(DefaultBudgets())
	for phase, spec := range specs {
		want := phase == PhaseOpening || phase == PhaseMovement
		if spec.MovementAllowed != want {
			t.Errorf("phase %s: movement allowed = %v, want %v", phase, spec.MovementAllowed, want)
		}
	}
}

func TestAuraPhasesHaveExactlyOneActivePlayer(t *testing.T) {
	specs := buildPhaseSpecs(DefaultBudgets())
	for phase, spec := range specs {
		if !phase.IsAura() {
			if spec.AuraPlayer != 0 {
				t.Errorf("phase %s: non-aura phase should not permit activation", phase)
			}
			continue
		}
		if spec.AuraPlayer != 1 && spec.AuraPlayer != 2 {
			t.Errorf("phase %s: aura player = %d, want 1 or 2", phase, spec.AuraPlayer)
		}
		if spec.ActivePlayer != spec.AuraPlayer {
			t.Errorf("phase %s: active player %d differs from aura player %d", phase, spec.ActivePlayer, spec.AuraPlayer)
		}
	}
}

func TestPhaseValid(t *testing.T) {
	for p := PhaseOpening; p <= PhaseAuraP2R2; p++ {
		if !p.Valid() {
			t.Errorf("expected phase %d to be valid", int(p))
		}
	}
	if Phase(99).Valid() {
		t.Error("expected phase 99 to be invalid")
	}
	if Phase(-1).Valid() {
		t.Error("expected phase -1 to be invalid")
	}
}
