package queue

import (
	"sync"

	"go.uber.org/zap"

	"github.com/auragrid/auragrid-server-go/internal/match/aura"
	"github.com/auragrid/auragrid-server-go/internal/match/grid"
	"github.com/auragrid/auragrid-server-go/internal/match/rules"
	"github.com/auragrid/auragrid-server-go/internal/match/unit"
)

// Rejection reasons surfaced to callers. Expected and recoverable, never
// errors.
const (
	ReasonUnknownUnit     = "unit does not exist"
	ReasonUnitDead        = "unit is dead"
	ReasonWrongPhase      = "movement is not allowed in this phase"
	ReasonAlreadyActed    = "unit has already acted this phase"
	ReasonUnitImmobilized = "unit cannot move"
	ReasonOffBoard        = "target position is off the board"
	ReasonTileContended   = "target tile was claimed by an earlier unit"
)

// Quotas configures early phase advance. Zero disables a quota.
type Quotas struct {
	// GlobalMoves ends the Movement phase once this many moves are
	// queued in total.
	GlobalMoves int
	// PlayerMoves ends the Movement phase once BOTH players have queued
	// this many moves each.
	PlayerMoves int
}

// CancelledMove reports one move dropped during commit, with the reason.
type CancelledMove struct {
	UnitID int
	Target grid.Position
	Reason string
}

// CommitResult is the outcome of one batch commit.
type CommitResult struct {
	Committed []int
	Cancelled []CancelledMove
}

// ActionQueue buffers per-unit move intents during the Movement phase
// and commits them as a batch with deterministic conflict resolution.
// A newer request from the same unit silently supersedes the previous
// one; resolution order is the registry's canonical order, not
// submission order.
type ActionQueue struct {
	mu     sync.Mutex
	logger *zap.Logger
	bus    *rules.EventBus

	machine *rules.TurnMachine
	reg     *unit.Registry
	board   grid.Board
	quotas  Quotas
	ledger  *aura.Ledger

	pending map[int]grid.Position
}

// NewActionQueue creates an empty queue bound to the match collaborators.
// The ledger keeps the per-player move counts the quota rule consults.
func NewActionQueue(machine *rules.TurnMachine, reg *unit.Registry, board grid.Board, quotas Quotas, ledger *aura.Ledger, bus *rules.EventBus, logger *zap.Logger) *ActionQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionQueue{
		logger:  logger,
		bus:     bus,
		machine: machine,
		reg:     reg,
		board:   board,
		quotas:  quotas,
		ledger:  ledger,
		pending: make(map[int]grid.Position),
	}
}

// CanQueue checks whether a move intent would be accepted, without
// recording it. Safe to call speculatively.
func (q *ActionQueue) CanQueue(unitID int, target grid.Position) (bool, string) {
	u, ok := q.reg.Get(unitID)
	if !ok {
		return false, ReasonUnknownUnit
	}
	if !u.Alive() {
		return false, ReasonUnitDead
	}
	if !q.machine.AllowsMovement() {
		return false, ReasonWrongPhase
	}
	if u.HasActed {
		return false, ReasonAlreadyActed
	}
	if !u.CanMove() {
		return false, ReasonUnitImmobilized
	}
	if !q.board.IsValid(target) {
		return false, ReasonOffBoard
	}
	return true, ""
}

// QueueMove records a move intent for the unit. Rejections carry the
// reason; the caller must be told why.
func (q *ActionQueue) QueueMove(unitID int, target grid.Position) (bool, string) {
	if ok, reason := q.CanQueue(unitID, target); !ok {
		q.logger.Debug("move rejected",
			zap.Int("unit", unitID),
			zap.Stringer("target", target),
			zap.String("reason", reason),
		)
		return false, reason
	}

	q.mu.Lock()
	_, resubmit := q.pending[unitID]
	q.pending[unitID] = target
	q.mu.Unlock()

	u, _ := q.reg.Get(unitID)
	u.PendingMove = &target

	// A superseding request replaces the intent; only the first queue per
	// unit counts toward the move quota.
	if !resubmit {
		q.ledger.RegisterMove(u.Owner)
	}

	if q.bus != nil {
		q.bus.Publish(rules.Event{
			Type:   rules.EventMoveQueued,
			UnitID: unitID,
			Player: u.Owner,
			X:      target.X,
			Y:      target.Y,
		})
	}
	return true, ""
}

// PendingCount returns the number of units with a queued move.
func (q *ActionQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ShouldAdvanceEarly reports whether a move quota has been reached:
// either the global quota, or both players' individual quotas. The
// counts come from the ledger's per-phase move counters.
func (q *ActionQueue) ShouldAdvanceEarly() bool {
	p1 := q.ledger.MoveCount(1)
	p2 := q.ledger.MoveCount(2)
	if q.quotas.GlobalMoves > 0 && p1+p2 >= q.quotas.GlobalMoves {
		return true
	}
	if q.quotas.PlayerMoves > 0 && p1 >= q.quotas.PlayerMoves && p2 >= q.quotas.PlayerMoves {
		return true
	}
	return false
}

// Commit resolves all queued moves atomically. Units are visited in the
// registry's canonical order; each claims its destination tile greedily,
// and a later unit whose target collides with an already-reserved tile
// has its move cancelled and reported. Cancellations never abort the
// batch.
func (q *ActionQueue) Commit() CommitResult {
	q.mu.Lock()
	pending := q.pending
	q.pending = make(map[int]grid.Position)
	q.mu.Unlock()

	var result CommitResult
	reserved := make(map[grid.Position]int)

	for _, u := range q.reg.Alive() {
		target, ok := pending[u.ID]
		if !ok || target == u.Pos {
			u.PendingMove = nil
			continue
		}

		var reason string
		switch {
		case !u.CanMove():
			reason = ReasonUnitImmobilized
		case !q.board.IsValid(target):
			reason = ReasonOffBoard
		default:
			if _, taken := reserved[target]; taken {
				reason = ReasonTileContended
			}
		}

		if reason != "" {
			u.PendingMove = nil
			result.Cancelled = append(result.Cancelled, CancelledMove{UnitID: u.ID, Target: target, Reason: reason})
			q.logger.Info("queued move cancelled",
				zap.Int("unit", u.ID),
				zap.Stringer("target", target),
				zap.String("reason", reason),
			)
			if q.bus != nil {
				q.bus.Publish(rules.Event{
					Type:   rules.EventMoveCancelled,
					UnitID: u.ID,
					Player: u.Owner,
					X:      target.X,
					Y:      target.Y,
					Reason: reason,
				})
			}
			continue
		}

		reserved[target] = u.ID
		u.Pos = target
		u.HasActed = true
		u.PendingMove = nil
		result.Committed = append(result.Committed, u.ID)

		if q.bus != nil {
			q.bus.Publish(rules.Event{
				Type:   rules.EventMoveCommitted,
				UnitID: u.ID,
				Player: u.Owner,
				X:      target.X,
				Y:      target.Y,
			})
		}
	}
	return result
}

// Clear drops all queued intents without committing them.
func (q *ActionQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for unitID := range q.pending {
		if u, ok := q.reg.Get(unitID); ok {
			u.PendingMove = nil
		}
	}
	q.pending = make(map[int]grid.Position)
}
