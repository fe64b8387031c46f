// Package command implements the validation/execution pipeline that
// decouples player intent from legality and effect. The four command
// kinds form a closed set; each validates read-only against current
// match state, executes locally, and round-trips through the integer
// key/value wire format for the authoritative path.
package command

import (
	"go.uber.org/zap"

	"github.com/auragrid/auragrid-server-go/internal/match/ability"
	"github.com/auragrid/auragrid-server-go/internal/match/aura"
	"github.com/auragrid/auragrid-server-go/internal/match/grid"
	"github.com/auragrid/auragrid-server-go/internal/match/queue"
	"github.com/auragrid/auragrid-server-go/internal/match/rules"
	"github.com/auragrid/auragrid-server-go/internal/match/unit"
)

// Kind identifies a command variant on the wire.
type Kind string

const (
	KindMove       Kind = "MOVE"
	KindAbility    Kind = "ABILITY"
	KindReposition Kind = "REPOSITION"
	KindEndTurn    Kind = "END_TURN"
)

// Validation failure reasons shared across command kinds.
const (
	ReasonUnknownUnit       = "unit does not exist"
	ReasonUnitDead          = "unit is dead"
	ReasonNotOwner          = "unit is not owned by the acting player"
	ReasonWrongPhase        = "phase does not permit this action"
	ReasonActivationCap     = "aura activation limit reached for this phase"
	ReasonOnCooldown        = "ability is on cooldown"
	ReasonInsufficientAura  = "insufficient aura"
	ReasonOutOfRange        = "target out of range"
	ReasonInvalidTarget     = "invalid target"
	ReasonUnknownAbility    = "ability does not exist"
	ReasonUnitCannotAct     = "unit cannot act"
	ReasonTileOccupied      = "target tile is occupied"
	ReasonOffBoard          = "target position is off the board"
	ReasonNotActivePlayer   = "player is not active in this phase"
	ReasonNoOverloadVariant = "ability has no overload variant"
)

// ZoneSink receives zones created by ability execution. The session owns
// the zone list; commands only append through this interface.
type ZoneSink interface {
	AddZone(pos grid.Position, radius, damage, turns, owner int)
}

// Context bundles the collaborators a command validates and executes
// against. All references are borrowed from the owning session.
type Context struct {
	Machine  *rules.TurnMachine
	Ledger   *aura.Ledger
	Queue    *queue.ActionQueue
	Registry *unit.Registry
	Catalog  *ability.Catalog
	Board    grid.Board
	Zones    ZoneSink
	Bus      *rules.EventBus
	Logger   *zap.Logger
}

// Command is one player intent. Validate must be side-effect free and
// safe to call speculatively; Execute applies the effect and is called
// at most once, only after a passing Validate.
type Command interface {
	Kind() Kind
	// Validate checks legality against current state. The reason is
	// human-readable and only meaningful when ok is false.
	Validate(ctx *Context) (ok bool, reason string)
	// Execute applies the command's effect to local state.
	Execute(ctx *Context) error
	// Fields returns the integer wire payload.
	Fields() map[string]int
}
