// Package match owns the per-match session: the turn machine, aura
// ledger, unit registry, action queue, and command pipeline, wired
// together through the event bus. The session is the single writer of
// match state; everything advances from its Tick.
package match

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auragrid/auragrid-server-go/internal/match/ability"
	"github.com/auragrid/auragrid-server-go/internal/match/aura"
	"github.com/auragrid/auragrid-server-go/internal/match/command"
	"github.com/auragrid/auragrid-server-go/internal/match/grid"
	"github.com/auragrid/auragrid-server-go/internal/match/queue"
	"github.com/auragrid/auragrid-server-go/internal/match/rules"
	"github.com/auragrid/auragrid-server-go/internal/match/unit"
)

// Tuning carries the per-match knobs. Defaults mirror the stock ruleset.
type Tuning struct {
	BoardWidth  int
	BoardHeight int

	PlayerAuraMax   int
	PlayerAuraRegen int
	UnitAuraMax     int

	MaxActivationsPerPhase int
	Quotas                 queue.Quotas
	Budgets                rules.PhaseBudgets
}

// DefaultTuning returns the stock match tuning.
func DefaultTuning() Tuning {
	return Tuning{
		BoardWidth:             12,
		BoardHeight:            12,
		PlayerAuraMax:          10,
		PlayerAuraRegen:        2,
		UnitAuraMax:            6,
		MaxActivationsPerPhase: 2,
		Quotas:                 queue.Quotas{GlobalMoves: 0, PlayerMoves: 3},
		Budgets:                rules.DefaultBudgets(),
	}
}

// Zone is a persistent area effect anchored to a tile. Zones damage
// units in radius at each turn resolution and expire after TurnsLeft
// resolutions.
type Zone struct {
	Pos       grid.Position
	Radius    int
	Damage    int
	TurnsLeft int
	Owner     int
}

// Session is one running match. A single mutex serializes Tick and
// command submission; everything below it runs single-threaded, so
// event handlers observe consistent state.
type Session struct {
	ID     string
	logger *zap.Logger
	tuning Tuning
	mu     sync.Mutex

	bus      *rules.EventBus
	machine  *rules.TurnMachine
	ledger   *aura.Ledger
	registry *unit.Registry
	queue    *queue.ActionQueue
	catalog  *ability.Catalog
	board    grid.Board
	pipeline *command.Pipeline

	zones    []Zone
	finished bool
	winner   int
}

// NewSession wires a fresh match at turn 1, Opening phase. fwd may be
// nil for fully-local play.
func NewSession(tuning Tuning, catalog *ability.Catalog, fwd command.Forwarder, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = ability.DefaultCatalog()
	}

	bus := rules.NewEventBus()
	board := grid.Board{Width: tuning.BoardWidth, Height: tuning.BoardHeight}
	machine := rules.NewTurnMachine(bus, tuning.Budgets, logger)
	ledger := aura.NewLedger(bus, tuning.MaxActivationsPerPhase, logger)
	registry := unit.NewRegistry()
	actionQueue := queue.NewActionQueue(machine, registry, board, tuning.Quotas, ledger, bus, logger)

	s := &Session{
		ID:       uuid.NewString(),
		logger:   logger,
		tuning:   tuning,
		bus:      bus,
		machine:  machine,
		ledger:   ledger,
		registry: registry,
		queue:    actionQueue,
		catalog:  catalog,
		board:    board,
	}

	s.pipeline = command.NewPipeline(&command.Context{
		Machine:  machine,
		Ledger:   ledger,
		Queue:    actionQueue,
		Registry: registry,
		Catalog:  catalog,
		Board:    board,
		Zones:    s,
		Bus:      bus,
		Logger:   logger,
	}, fwd, logger)

	ledger.AddPlayer(1, tuning.PlayerAuraMax, tuning.PlayerAuraRegen)
	ledger.AddPlayer(2, tuning.PlayerAuraMax, tuning.PlayerAuraRegen)

	bus.SubscribeTyped(rules.EventPhaseEnding, s.onPhaseEnding)
	bus.SubscribeTyped(rules.EventPhaseChanged, s.onPhaseChanged)
	bus.SubscribeTyped(rules.EventTurnChanged, s.onTurnChanged)
	bus.SubscribeTyped(rules.EventAuraActivated, s.onAuraActivated)
	bus.SubscribeTyped(rules.EventMoveQueued, s.onMoveQueued)
	bus.SubscribeTyped(rules.EventUnitDied, s.onUnitDied)

	return s
}

// SpawnUnit registers a unit and its aura pool.
func (s *Session) SpawnUnit(name string, owner int, pos grid.Position, maxHP int) *unit.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.registry.Spawn(name, owner, pos, maxHP)
	s.ledger.AddUnit(u.ID, s.tuning.UnitAuraMax)
	return u
}

// Tick advances the match by delta seconds: backend completions are
// drained onto this loop, then the phase timer runs. This is the only
// driver of time; it has no engine dependency.
func (s *Session) Tick(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipeline.Drain()
	if s.finished {
		return
	}
	s.machine.Tick(delta)
}

// Submit runs a command through the validation/execution pipeline.
func (s *Session) Submit(cmd command.Command, onResult command.ResultFunc) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return false, "match is finished"
	}
	return s.pipeline.Submit(cmd, onResult)
}

// SubmitWire decodes a wire-format command and submits it.
func (s *Session) SubmitWire(data []byte, onResult command.ResultFunc) (bool, string) {
	cmd, err := command.Decode(data)
	if err != nil {
		s.logger.Error("wire command decode failed", zap.Error(err))
		return false, err.Error()
	}
	return s.Submit(cmd, onResult)
}

// SetState forces local phase/turn to match server truth. It uses the
// same ForceTransitionTo path as any other override.
func (s *Session) SetState(turnNumber int, phase rules.Phase, activePlayer int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !phase.Valid() {
		s.logger.Error("authoritative sync with unrecognized phase", zap.Int("phase", int(phase)))
		return false
	}
	// Transition first: forcing out of the final aura sub-phase skips the
	// wrap increment, so the server's turn number lands last and sticks.
	if !s.machine.ForceTransitionTo(phase) {
		return false
	}
	s.machine.SetTurnNumber(turnNumber)
	if got := s.machine.ActivePlayer(); got != activePlayer {
		s.logger.Warn("authoritative active player differs from phase rule-set",
			zap.Int("server", activePlayer),
			zap.Int("local", got),
		)
	}
	return true
}

// AddZone implements command.ZoneSink.
func (s *Session) AddZone(pos grid.Position, radius, damage, turns, owner int) {
	s.zones = append(s.zones, Zone{Pos: pos, Radius: radius, Damage: damage, TurnsLeft: turns, Owner: owner})
	s.bus.Publish(rules.Event{
		Type:   rules.EventZoneCreated,
		Player: owner,
		X:      pos.X,
		Y:      pos.Y,
		Amount: damage,
	})
}

// Accessors for collaborators. Mutable references stay inside the
// session; these are for queries and subscriptions.

func (s *Session) Bus() *rules.EventBus        { return s.bus }
func (s *Session) Machine() *rules.TurnMachine { return s.machine }
func (s *Session) Ledger() *aura.Ledger        { return s.ledger }
func (s *Session) Registry() *unit.Registry    { return s.registry }
func (s *Session) Queue() *queue.ActionQueue   { return s.queue }
func (s *Session) Catalog() *ability.Catalog   { return s.catalog }
func (s *Session) Board() grid.Board           { return s.board }

// Zones returns a copy of the active zones.
func (s *Session) Zones() []Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Zone, len(s.zones))
	copy(out, s.zones)
	return out
}

// Finished reports whether a win condition ended the match.
func (s *Session) Finished() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished, s.winner
}

// onPhaseEnding applies phase-exit side effects before the phase
// switches: movement phases commit their batch; the final aura
// sub-phase runs turn resolution. Both happen while the outgoing
// phase's state is still current.
func (s *Session) onPhaseEnding(e rules.Event) {
	if s.machine.Spec(e.Phase).MovementAllowed {
		result := s.queue.Commit()
		s.logger.Debug("movement batch committed",
			zap.Stringer("phase", e.Phase),
			zap.Int("committed", len(result.Committed)),
			zap.Int("cancelled", len(result.Cancelled)),
		)
		s.bus.Publish(rules.Event{Type: rules.EventMovementPhaseEnd, Phase: e.Phase})
	}

	if e.Phase == rules.PhaseAuraP2R2 {
		s.resolveTurn()
		s.bus.Publish(rules.Event{Type: rules.EventTurnResolutionEnd, Phase: e.Phase})
	}
}

func (s *Session) onPhaseChanged(e rules.Event) {
	switch {
	case e.Phase == rules.PhaseMovement:
		for _, u := range s.registry.All() {
			u.ClearPhaseState()
		}
		s.queue.Clear()
		s.ledger.ResetMoveCounts()
		s.bus.Publish(rules.Event{Type: rules.EventMovementPhaseStart, Phase: e.Phase})
	case e.Phase.IsAura():
		s.ledger.ResetActivations()
	}
}

func (s *Session) onTurnChanged(e rules.Event) {
	for _, player := range []int{1, 2} {
		s.ledger.GainForTurn(player, e.NewValue)
	}
	for _, u := range s.registry.Alive() {
		u.TickCooldowns()
	}
}

// onAuraActivated auto-advances the aura sub-phase once the active
// player has spent the per-phase activation budget.
func (s *Session) onAuraActivated(e rules.Event) {
	phase := s.machine.CurrentPhase()
	if !phase.IsAura() || s.machine.Spec(phase).AuraPlayer != e.Player {
		return
	}
	if s.ledger.AtActivationCap(e.Player) {
		s.logger.Debug("activation cap reached, advancing phase",
			zap.Int("player", e.Player),
			zap.Stringer("phase", phase),
		)
		s.machine.RequestTransitionToNext()
	}
}

// onMoveQueued ends the Movement phase early when a move quota is hit.
// The commit-then-transition sequence is the same as on timer expiry.
func (s *Session) onMoveQueued(rules.Event) {
	if s.machine.AllowsMovement() && s.queue.ShouldAdvanceEarly() {
		s.machine.RequestTransitionToNext()
	}
}

func (s *Session) onUnitDied(rules.Event) {
	if s.finished {
		return
	}
	for _, player := range []int{1, 2} {
		if len(s.registry.AliveOwnedBy(player)) == 0 {
			s.finished = true
			s.winner = 3 - player
			s.logger.Info("match finished by elimination",
				zap.Int("winner", s.winner),
			)
			s.bus.Publish(rules.Event{Type: rules.EventMatchFinished, Player: s.winner})
			return
		}
	}
}

// resolveTurn applies end-of-turn effects: unit statuses first, then
// zone damage, then zone expiry. Runs before the turn increment so
// resolution sees the turn's final state.
func (s *Session) resolveTurn() {
	for _, u := range s.registry.Alive() {
		burned := u.TickStatuses()
		if burned > 0 {
			s.publishUnitDamage(u, burned)
		}
	}

	kept := s.zones[:0]
	for _, z := range s.zones {
		for _, u := range s.registry.Alive() {
			if grid.Manhattan(z.Pos, u.Pos) <= z.Radius {
				dealt := u.ApplyDamage(z.Damage)
				s.publishUnitDamage(u, dealt)
			}
		}
		z.TurnsLeft--
		if z.TurnsLeft > 0 {
			kept = append(kept, z)
		} else {
			s.bus.Publish(rules.Event{Type: rules.EventZoneExpired, X: z.Pos.X, Y: z.Pos.Y, Player: z.Owner})
		}
	}
	s.zones = kept
}

func (s *Session) publishUnitDamage(u *unit.Unit, dealt int) {
	if dealt <= 0 {
		return
	}
	s.bus.Publish(rules.Event{
		Type:   rules.EventUnitDamaged,
		UnitID: u.ID,
		Player: u.Owner,
		Amount: dealt,
	})
	if !u.Alive() {
		s.bus.Publish(rules.Event{Type: rules.EventUnitDied, UnitID: u.ID, Player: u.Owner})
	}
}
