package rules

import (
	"go.uber.org/zap"
)

// TurnMachine is the single source of truth for the current phase and
// turn number. It owns the fixed phase cycle, the reentrancy lock that
// guards transitions, and the per-phase timer that drives auto-advance.
//
// The machine is written to only from the match tick (single-writer);
// everything else consumes the read-only queries or subscribes to the
// event bus.
type TurnMachine struct {
	logger *zap.Logger
	bus    *EventBus
	specs  map[Phase]PhaseSpec

	turnNumber int
	current    Phase
	locked     bool
	elapsed    float64
}

// NewTurnMachine creates a machine at turn 1, Opening phase.
func NewTurnMachine(bus *EventBus, budgets PhaseBudgets, logger *zap.Logger) *TurnMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnMachine{
		logger:     logger,
		bus:        bus,
		specs:      buildPhaseSpecs(budgets),
		turnNumber: 1,
		current:    PhaseOpening,
	}
}

// CurrentPhase returns the phase currently in progress.
func (tm *TurnMachine) CurrentPhase() Phase {
	return tm.current
}

// TurnNumber returns the current turn number (1-based).
func (tm *TurnMachine) TurnNumber() int {
	return tm.turnNumber
}

// Elapsed returns seconds spent in the current phase.
func (tm *TurnMachine) Elapsed() float64 {
	return tm.elapsed
}

// IsTransitionLocked reports whether a transition is in progress.
func (tm *TurnMachine) IsTransitionLocked() bool {
	return tm.locked
}

// Spec returns the immutable rule-set for a phase.
func (tm *TurnMachine) Spec(p Phase) PhaseSpec {
	return tm.specs[p]
}

// AllowsMovement reports whether units may move in the current phase.
func (tm *TurnMachine) AllowsMovement() bool {
	return tm.specs[tm.current].MovementAllowed
}

// AllowsAuraActivation reports whether the given player may activate
// auras in the current phase.
func (tm *TurnMachine) AllowsAuraActivation(player int) bool {
	return player != 0 && tm.specs[tm.current].AuraPlayer == player
}

// ActivePlayer returns the current phase's active player (0 = both).
func (tm *TurnMachine) ActivePlayer() int {
	return tm.specs[tm.current].ActivePlayer
}

// RequestTransitionToNext advances to the successor phase in the fixed
// cycle. Requests made while a transition is in progress are dropped and
// logged, not escalated.
func (tm *TurnMachine) RequestTransitionToNext() bool {
	return tm.transition(NextPhase(tm.current), false)
}

// ForceTransitionTo is the administrative override used for authoritative
// state sync. It temporarily lifts the transition lock, performs the
// exit/enter sequence for the target phase, then restores the prior lock
// state. The cycle's wrap increment is skipped: the sync caller supplies
// the turn number, so forcing out of the final aura sub-phase must not
// bump the counter past server truth. An unrecognized phase is a
// reported no-op.
func (tm *TurnMachine) ForceTransitionTo(target Phase) bool {
	if !target.Valid() {
		tm.logger.Error("force transition to unrecognized phase",
			zap.Int("phase", int(target)),
		)
		return false
	}

	prevLock := tm.locked
	tm.locked = false
	ok := tm.transition(target, true)
	tm.locked = prevLock
	return ok
}

// IncrementTurn raises the turn counter by one and fires the turn-changed
// notification. Invoked once per full phase cycle, at exit of the final
// aura sub-phase.
func (tm *TurnMachine) IncrementTurn() {
	old := tm.turnNumber
	tm.turnNumber++
	tm.bus.Publish(Event{
		Type:     EventTurnChanged,
		Phase:    tm.current,
		OldValue: old,
		NewValue: tm.turnNumber,
	})
}

// SetTurnNumber forces the turn counter, bypassing the normal increment.
// Only the authoritative sync path should call this.
func (tm *TurnMachine) SetTurnNumber(n int) {
	if n < 1 {
		tm.logger.Error("refusing turn number below 1", zap.Int("turn", n))
		return
	}
	if n < tm.turnNumber {
		tm.logger.Warn("authoritative sync rewinds turn counter",
			zap.Int("local", tm.turnNumber),
			zap.Int("server", n),
		)
	}
	tm.turnNumber = n
}

// Tick advances the phase timer and auto-advances when the phase's time
// budget has expired. This is the only source of idle advancement.
func (tm *TurnMachine) Tick(delta float64) {
	if tm.locked || delta <= 0 {
		return
	}
	tm.elapsed += delta
	budget := tm.specs[tm.current].BudgetSeconds
	if budget > 0 && tm.elapsed >= budget {
		tm.logger.Debug("phase time budget expired",
			zap.Stringer("phase", tm.current),
			zap.Float64("elapsed", tm.elapsed),
		)
		tm.RequestTransitionToNext()
	}
}

// transition performs the exit/enter sequence under the transition lock.
// The lock is released on every exit path. Forced transitions skip the
// wrap increment.
func (tm *TurnMachine) transition(target Phase, forced bool) bool {
	if tm.locked {
		tm.logger.Warn("transition request dropped: lock held",
			zap.Stringer("current", tm.current),
			zap.Stringer("target", target),
		)
		return false
	}
	tm.locked = true
	defer func() { tm.locked = false }()

	prev := tm.current

	// Exit side effects run before the phase switches: subscribers must
	// observe the state as it was during the outgoing phase.
	tm.bus.Publish(Event{Type: EventPhaseEnding, Phase: prev})
	if prev == PhaseAuraP2R2 && !forced {
		tm.IncrementTurn()
	}

	tm.current = target
	tm.elapsed = 0

	tm.bus.Publish(Event{
		Type:     EventPhaseChanged,
		Phase:    target,
		OldValue: int(prev),
		NewValue: int(target),
	})

	if tm.specs[prev].ActivePlayer != tm.specs[target].ActivePlayer {
		tm.bus.Publish(Event{
			Type:   EventActivePlayerChanged,
			Phase:  target,
			Player: tm.specs[target].ActivePlayer,
		})
	}
	return true
}
