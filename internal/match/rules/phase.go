package rules

import "fmt"

// Phase represents one segment of the fixed six-step turn cycle.
type Phase int

const (
	PhaseOpening Phase = iota
	PhaseMovement
	PhaseAuraP1R1
	PhaseAuraP2R1
	PhaseAuraP1R2
	PhaseAuraP2R2
)

var phaseNames = map[Phase]string{
	PhaseOpening:  "OPENING",
	PhaseMovement: "MOVEMENT",
	PhaseAuraP1R1: "AURA_P1_ROUND1",
	PhaseAuraP2R1: "AURA_P2_ROUND1",
	PhaseAuraP1R2: "AURA_P1_ROUND2",
	PhaseAuraP2R2: "AURA_P2_ROUND2",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Valid reports whether p is one of the six defined phases.
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// IsAura reports whether p is one of the four aura sub-phases.
func (p Phase) IsAura() bool {
	switch p {
	case PhaseAuraP1R1, PhaseAuraP2R1, PhaseAuraP1R2, PhaseAuraP2R2:
		return true
	}
	return false
}

// PhaseSpec is the immutable rule-set attached to a phase: who acts,
// whether units may move, which player may activate auras, and the time
// budget in seconds (0 means unlimited).
type PhaseSpec struct {
	ActivePlayer    int // 0 = both players
	MovementAllowed bool
	AuraPlayer      int // 0 = no aura activation in this phase
	BudgetSeconds   float64
}

// PhaseBudgets overrides the default per-phase time budgets.
type PhaseBudgets struct {
	Opening  float64
	Movement float64
	Aura     float64
}

// DefaultBudgets mirrors the stock match tuning.
func DefaultBudgets() PhaseBudgets {
	return PhaseBudgets{Opening: 30, Movement: 45, Aura: 30}
}

// buildPhaseSpecs constructs the rule-set table for all six phases.
func buildPhaseSpecs(budgets PhaseBudgets) map[Phase]PhaseSpec {
	return map[Phase]PhaseSpec{
		PhaseOpening:  {ActivePlayer: 0, MovementAllowed: true, AuraPlayer: 0, BudgetSeconds: budgets.Opening},
		PhaseMovement: {ActivePlayer: 0, MovementAllowed: true, AuraPlayer: 0, BudgetSeconds: budgets.Movement},
		PhaseAuraP1R1: {ActivePlayer: 1, MovementAllowed: false, AuraPlayer: 1, BudgetSeconds: budgets.Aura},
		PhaseAuraP2R1: {ActivePlayer: 2, MovementAllowed: false, AuraPlayer: 2, BudgetSeconds: budgets.Aura},
		PhaseAuraP1R2: {ActivePlayer: 1, MovementAllowed: false, AuraPlayer: 1, BudgetSeconds: budgets.Aura},
		PhaseAuraP2R2: {ActivePlayer: 2, MovementAllowed: false, AuraPlayer: 2, BudgetSeconds: budgets.Aura},
	}
}

// NextPhase returns the successor in the fixed cycle. Opening is entered
// only once at match start; after the last aura sub-phase the cycle
// returns to Movement.
func NextPhase(p Phase) Phase {
	switch p {
	case PhaseOpening:
		return PhaseMovement
	case PhaseMovement:
		return PhaseAuraP1R1
	case PhaseAuraP1R1:
		return PhaseAuraP2R1
	case PhaseAuraP2R1:
		return PhaseAuraP1R2
	case PhaseAuraP1R2:
		return PhaseAuraP2R2
	case PhaseAuraP2R2:
		return PhaseMovement
	default:
		return PhaseMovement
	}
}
