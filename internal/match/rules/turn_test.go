package rules

import "testing"

func newTestMachine() (*TurnMachine, *EventBus) {
	bus := NewEventBus()
	return NewTurnMachine(bus, DefaultBudgets(), nil), bus
}

func TestTurnMachineStartsAtOpening(t *testing.T) {
	tm, _ := newTestMachine()
	if tm.CurrentPhase() != PhaseOpening {
		t.Fatalf("expected OPENING, got %s", tm.CurrentPhase())
	}
	if tm.TurnNumber() != 1 {
		t.Fatalf("expected turn 1, got %d", tm.TurnNumber())
	}
}

func TestTurnMachineIncrementsOncePerCycle(t *testing.T) {
	tm, bus := newTestMachine()

	turnChanges := 0
	bus.SubscribeTyped(EventTurnChanged, func(Event) { turnChanges++ })

	// Opening -> Movement, then one full cycle back to Movement.
	tm.RequestTransitionToNext()
	for i := 0; i < 5; i++ {
		if tm.TurnNumber() != 1 {
			t.Fatalf("expected to remain on turn 1 mid-cycle, got %d", tm.TurnNumber())
		}
		tm.RequestTransitionToNext()
	}

	if tm.CurrentPhase() != PhaseMovement {
		t.Fatalf("expected cycle to wrap to MOVEMENT, got %s", tm.CurrentPhase())
	}
	if tm.TurnNumber() != 2 {
		t.Fatalf("expected turn 2 after full cycle, got %d", tm.TurnNumber())
	}
	if turnChanges != 1 {
		t.Fatalf("expected exactly one turn-changed event, got %d", turnChanges)
	}
}

func TestTransitionDroppedWhileLocked(t *testing.T) {
	tm, bus := newTestMachine()

	// A phase-ending handler that tries to advance again must be dropped.
	reentrantResult := true
	bus.SubscribeTyped(EventPhaseEnding, func(Event) {
		reentrantResult = tm.RequestTransitionToNext()
	})

	if !tm.RequestTransitionToNext() {
		t.Fatal("expected outer transition to succeed")
	}
	if reentrantResult {
		t.Fatal("expected reentrant transition to be dropped")
	}
	if tm.CurrentPhase() != PhaseMovement {
		t.Fatalf("expected MOVEMENT after single transition, got %s", tm.CurrentPhase())
	}
	if tm.IsTransitionLocked() {
		t.Fatal("lock must be released after transition completes")
	}
}

func TestForceTransitionBypassesCycle(t *testing.T) {
	tm, _ := newTestMachine()

	if !tm.ForceTransitionTo(PhaseAuraP2R1) {
		t.Fatal("expected force transition to succeed")
	}
	if tm.CurrentPhase() != PhaseAuraP2R1 {
		t.Fatalf("expected AURA_P2_ROUND1, got %s", tm.CurrentPhase())
	}
	if tm.IsTransitionLocked() {
		t.Fatal("lock must be restored after force transition")
	}
}

func TestForceTransitionSkipsWrapIncrement(t *testing.T) {
	tm, bus := newTestMachine()

	turnChanges := 0
	bus.SubscribeTyped(EventTurnChanged, func(Event) { turnChanges++ })

	tm.ForceTransitionTo(PhaseAuraP2R2)
	if !tm.ForceTransitionTo(PhaseMovement) {
		t.Fatal("expected force transition to succeed")
	}

	if tm.TurnNumber() != 1 {
		t.Fatalf("forced exit from the final aura sub-phase must not bump the turn, got %d", tm.TurnNumber())
	}
	if turnChanges != 0 {
		t.Fatalf("expected no turn-changed events during forced transitions, got %d", turnChanges)
	}
}

func TestForceTransitionUnknownPhaseIsNoOp(t *testing.T) {
	tm, _ := newTestMachine()
	before := tm.CurrentPhase()

	if tm.ForceTransitionTo(Phase(42)) {
		t.Fatal("expected force transition to unknown phase to fail")
	}
	if tm.CurrentPhase() != before {
		t.Fatalf("phase changed on invalid force transition: %s", tm.CurrentPhase())
	}
}

func TestTickAutoAdvancesAtBudget(t *testing.T) {
	bus := NewEventBus()
	tm := NewTurnMachine(bus, PhaseBudgets{Opening: 5, Movement: 10, Aura: 10}, nil)

	tm.Tick(4.9)
	if tm.CurrentPhase() != PhaseOpening {
		t.Fatalf("advanced before budget: %s", tm.CurrentPhase())
	}
	tm.Tick(0.2)
	if tm.CurrentPhase() != PhaseMovement {
		t.Fatalf("expected auto-advance to MOVEMENT, got %s", tm.CurrentPhase())
	}
	if tm.Elapsed() != 0 {
		t.Fatalf("expected timer reset on transition, got %f", tm.Elapsed())
	}
}

func TestTickUnlimitedBudgetNeverAdvances(t *testing.T) {
	bus := NewEventBus()
	tm := NewTurnMachine(bus, PhaseBudgets{Opening: 0, Movement: 0, Aura: 0}, nil)

	tm.Tick(10000)
	if tm.CurrentPhase() != PhaseOpening {
		t.Fatalf("zero budget must mean unlimited, got %s", tm.CurrentPhase())
	}
}

func TestActivePlayerChangedFiresOnHandover(t *testing.T) {
	tm, bus := newTestMachine()

	var changes []int
	bus.SubscribeTyped(EventActivePlayerChanged, func(e Event) {
		changes = append(changes, e.Player)
	})

	tm.RequestTransitionToNext() // Opening -> Movement (both -> both, no event)
	tm.RequestTransitionToNext() // Movement -> Aura P1 (0 -> 1)
	tm.RequestTransitionToNext() // Aura P1 -> Aura P2 (1 -> 2)

	if len(changes) != 2 || changes[0] != 1 || changes[1] != 2 {
		t.Fatalf("unexpected active-player-changed sequence: %v", changes)
	}
}

func TestSetTurnNumber(t *testing.T) {
	tm, _ := newTestMachine()

	tm.SetTurnNumber(7)
	if tm.TurnNumber() != 7 {
		t.Fatalf("expected turn 7, got %d", tm.TurnNumber())
	}

	tm.SetTurnNumber(0)
	if tm.TurnNumber() != 7 {
		t.Fatalf("turn below 1 must be refused, got %d", tm.TurnNumber())
	}
}
