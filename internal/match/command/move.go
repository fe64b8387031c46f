package command

import (
	"fmt"

	"github.com/auragrid/auragrid-server-go/internal/match/grid"
	"github.com/auragrid/auragrid-server-go/internal/match/rules"
)

// Move queues a movement intent for a unit. The actual position change
// happens at Movement phase commit, not here.
type Move struct {
	Player int
	UnitID int
	Target grid.Position
}

func (m *Move) Kind() Kind { return KindMove }

func (m *Move) Validate(ctx *Context) (bool, string) {
	u, ok := ctx.Registry.Get(m.UnitID)
	if !ok {
		return false, ReasonUnknownUnit
	}
	if u.Owner != m.Player {
		return false, ReasonNotOwner
	}
	return ctx.Queue.CanQueue(m.UnitID, m.Target)
}

func (m *Move) Execute(ctx *Context) error {
	if ok, reason := ctx.Queue.QueueMove(m.UnitID, m.Target); !ok {
		return fmt.Errorf("move rejected: %s", reason)
	}
	return nil
}

func (m *Move) Fields() map[string]int {
	return map[string]int{
		"player":  m.Player,
		"unit_id": m.UnitID,
		"x":       m.Target.X,
		"y":       m.Target.Y,
	}
}

// Reposition places a unit directly during the Opening phase, before the
// first Movement phase begins. Unlike Move it executes immediately.
type Reposition struct {
	Player int
	UnitID int
	Target grid.Position
}

func (r *Reposition) Kind() Kind { return KindReposition }

func (r *Reposition) Validate(ctx *Context) (bool, string) {
	if ctx.Machine.CurrentPhase() != rules.PhaseOpening {
		return false, ReasonWrongPhase
	}
	u, ok := ctx.Registry.Get(r.UnitID)
	if !ok {
		return false, ReasonUnknownUnit
	}
	if !u.Alive() {
		return false, ReasonUnitDead
	}
	if u.Owner != r.Player {
		return false, ReasonNotOwner
	}
	if !ctx.Board.IsValid(r.Target) {
		return false, ReasonOffBoard
	}
	if occupant, taken := ctx.Registry.AtPosition(r.Target); taken && occupant.ID != r.UnitID {
		return false, ReasonTileOccupied
	}
	return true, ""
}

func (r *Reposition) Execute(ctx *Context) error {
	u, ok := ctx.Registry.Get(r.UnitID)
	if !ok {
		return fmt.Errorf("reposition: %s", ReasonUnknownUnit)
	}
	u.Pos = r.Target
	return nil
}

func (r *Reposition) Fields() map[string]int {
	return map[string]int{
		"player":  r.Player,
		"unit_id": r.UnitID,
		"x":       r.Target.X,
		"y":       r.Target.Y,
	}
}

// EndTurn requests the phase advance for the acting player.
type EndTurn struct {
	Player int
}

func (e *EndTurn) Kind() Kind { return KindEndTurn }

func (e *EndTurn) Validate(ctx *Context) (bool, string) {
	active := ctx.Machine.ActivePlayer()
	if active != 0 && active != e.Player {
		return false, ReasonNotActivePlayer
	}
	return true, ""
}

func (e *EndTurn) Execute(ctx *Context) error {
	if !ctx.Machine.RequestTransitionToNext() {
		return fmt.Errorf("end turn: transition dropped")
	}
	return nil
}

func (e *EndTurn) Fields() map[string]int {
	return map[string]int{"player": e.Player}
}
