package unit

import (
	"github.com/auragrid/auragrid-server-go/internal/match/grid"
)

// StatusKind identifies a status effect applied to a unit.
type StatusKind string

const (
	// StatusRoot blocks movement but not ability use.
	StatusRoot StatusKind = "ROOT"
	// StatusStun blocks both movement and ability use.
	StatusStun StatusKind = "STUN"
	// StatusShield absorbs Amount damage before HP is touched.
	StatusShield StatusKind = "SHIELD"
	// StatusBurn deals Amount damage at each turn resolution.
	StatusBurn StatusKind = "BURN"
)

// Status is one active status effect. TurnsLeft decrements at turn
// resolution; the status drops when it reaches zero.
type Status struct {
	Kind      StatusKind
	TurnsLeft int
	Amount    int
}

// Unit is one piece on the board. The registry is the only writer of
// unit state outside of command execution.
type Unit struct {
	ID    int
	Name  string
	Owner int
	Pos   grid.Position

	HP    int
	MaxHP int

	Statuses  []Status
	Cooldowns map[int]int // ability index -> turns remaining

	// Per-phase action record, cleared at Movement phase start.
	HasActed    bool
	PendingMove *grid.Position
}

// New creates a unit at the given position with full HP.
func New(id int, name string, owner int, pos grid.Position, maxHP int) *Unit {
	return &Unit{
		ID:        id,
		Name:      name,
		Owner:     owner,
		Pos:       pos,
		HP:        maxHP,
		MaxHP:     maxHP,
		Cooldowns: make(map[int]int),
	}
}

// Alive reports whether the unit is still in play.
func (u *Unit) Alive() bool {
	return u.HP > 0
}

// HasStatus reports whether a status of the given kind is active.
func (u *Unit) HasStatus(kind StatusKind) bool {
	for _, s := range u.Statuses {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// CanMove reports whether status effects permit movement.
func (u *Unit) CanMove() bool {
	return u.Alive() && !u.HasStatus(StatusRoot) && !u.HasStatus(StatusStun)
}

// CanAct reports whether status effects permit ability use.
func (u *Unit) CanAct() bool {
	return u.Alive() && !u.HasStatus(StatusStun)
}

// ApplyStatus adds a status effect. An existing status of the same kind
// is refreshed rather than stacked.
func (u *Unit) ApplyStatus(s Status) {
	for i := range u.Statuses {
		if u.Statuses[i].Kind == s.Kind {
			if s.TurnsLeft > u.Statuses[i].TurnsLeft {
				u.Statuses[i].TurnsLeft = s.TurnsLeft
			}
			if s.Amount > u.Statuses[i].Amount {
				u.Statuses[i].Amount = s.Amount
			}
			return
		}
	}
	u.Statuses = append(u.Statuses, s)
}

// ApplyDamage reduces HP by amount, consuming shields first. Returns the
// damage actually dealt to HP.
func (u *Unit) ApplyDamage(amount int) int {
	if amount <= 0 || !u.Alive() {
		return 0
	}
	for i := range u.Statuses {
		if u.Statuses[i].Kind != StatusShield {
			continue
		}
		absorbed := amount
		if absorbed > u.Statuses[i].Amount {
			absorbed = u.Statuses[i].Amount
		}
		u.Statuses[i].Amount -= absorbed
		amount -= absorbed
		if u.Statuses[i].Amount == 0 {
			u.Statuses = append(u.Statuses[:i], u.Statuses[i+1:]...)
		}
		break
	}
	if amount <= 0 {
		return 0
	}
	if amount > u.HP {
		amount = u.HP
	}
	u.HP -= amount
	return amount
}

// ApplyHeal raises HP, clamped to MaxHP. Returns the amount healed.
func (u *Unit) ApplyHeal(amount int) int {
	if amount <= 0 || !u.Alive() {
		return 0
	}
	if u.HP+amount > u.MaxHP {
		amount = u.MaxHP - u.HP
	}
	u.HP += amount
	return amount
}

// OnCooldown reports whether the ability index is still cooling down.
func (u *Unit) OnCooldown(abilityIndex int) bool {
	return u.Cooldowns[abilityIndex] > 0
}

// StartCooldown begins a cooldown for the ability index.
func (u *Unit) StartCooldown(abilityIndex, turns int) {
	if turns > 0 {
		u.Cooldowns[abilityIndex] = turns
	}
}

// TickCooldowns decrements every active cooldown by one. Called once per
// turn; cooldowns persist across phases.
func (u *Unit) TickCooldowns() {
	for idx, remaining := range u.Cooldowns {
		if remaining <= 1 {
			delete(u.Cooldowns, idx)
		} else {
			u.Cooldowns[idx] = remaining - 1
		}
	}
}

// TickStatuses applies per-turn status effects (burn damage) and drops
// expired statuses. Returns total burn damage dealt.
func (u *Unit) TickStatuses() int {
	// Snapshot burn amounts first: ApplyDamage may consume a shield and
	// rewrite the status slice mid-iteration.
	burn := 0
	for _, s := range u.Statuses {
		if s.Kind == StatusBurn {
			burn += s.Amount
		}
	}
	damage := u.ApplyDamage(burn)

	kept := make([]Status, 0, len(u.Statuses))
	for _, s := range u.Statuses {
		s.TurnsLeft--
		if s.TurnsLeft > 0 {
			kept = append(kept, s)
		}
	}
	u.Statuses = kept
	return damage
}

// ClearPhaseState resets the per-phase action record. Called at the
// start of each Movement phase.
func (u *Unit) ClearPhaseState() {
	u.HasActed = false
	u.PendingMove = nil
}
