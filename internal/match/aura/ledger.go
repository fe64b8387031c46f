package aura

import (
	"sync"

	"go.uber.org/zap"

	"github.com/auragrid/auragrid-server-go/internal/match/rules"
)

// Pool tracks a single aura reserve. Current is always clamped into
// [0, Max].
type Pool struct {
	Current int
	Max     int
}

// Ledger is the single writer of aura amounts. It tracks the strategic
// per-player pools fed by turn regeneration, the per-unit pools that
// ability costs are paid from, and the per-phase activation and move
// counters.
type Ledger struct {
	mu     sync.RWMutex
	logger *zap.Logger
	bus    *rules.EventBus

	players map[int]*Pool
	regen   map[int]int
	units   map[int]*Pool

	activations    map[int]int
	maxActivations int
	moves          map[int]int
}

// NewLedger creates an empty ledger. maxActivations caps aura
// activations per player per aura round (0 = uncapped).
func NewLedger(bus *rules.EventBus, maxActivations int, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		logger:         logger,
		bus:            bus,
		players:        make(map[int]*Pool),
		regen:          make(map[int]int),
		units:          make(map[int]*Pool),
		activations:    make(map[int]int),
		maxActivations: maxActivations,
		moves:          make(map[int]int),
	}
}

// AddPlayer registers a player pool starting at max.
func (l *Ledger) AddPlayer(player, max, regenPerTurn int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.players[player] = &Pool{Current: max, Max: max}
	l.regen[player] = regenPerTurn
}

// AddUnit registers a unit pool starting at max.
func (l *Ledger) AddUnit(unitID, max int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.units[unitID] = &Pool{Current: max, Max: max}
}

// PlayerAura returns the player's current and maximum aura.
func (l *Ledger) PlayerAura(player int) (current, max int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if p, ok := l.players[player]; ok {
		return p.Current, p.Max
	}
	return 0, 0
}

// UnitAura returns the unit's current and maximum aura.
func (l *Ledger) UnitAura(unitID int) (current, max int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if p, ok := l.units[unitID]; ok {
		return p.Current, p.Max
	}
	return 0, 0
}

// HasEnoughPlayer reports whether the player's pool covers cost.
func (l *Ledger) HasEnoughPlayer(player, cost int) bool {
	current, _ := l.PlayerAura(player)
	return current >= cost
}

// HasEnoughUnit reports whether the unit's pool covers cost.
func (l *Ledger) HasEnoughUnit(unitID, cost int) bool {
	current, _ := l.UnitAura(unitID)
	return current >= cost
}

// GainForTurn applies the player's base regeneration, clamped to max.
// Regeneration starts on turn 2: the very first turn is played on the
// starting pools alone. Returns the amount actually gained.
func (l *Ledger) GainForTurn(player, turnNumber int) int {
	if turnNumber <= 1 {
		return 0
	}
	l.mu.Lock()
	pool, ok := l.players[player]
	if !ok {
		l.mu.Unlock()
		l.logger.Error("turn gain for unknown player", zap.Int("player", player))
		return 0
	}
	old := pool.Current
	pool.Current = clamp(pool.Current+l.regen[player], pool.Max)
	gained := pool.Current - old
	now := pool.Current
	l.mu.Unlock()

	l.publishChange(player, 0, old, now)
	return gained
}

// ModifyPlayer applies a delta to the player's pool, clamped into
// [0, max]. Returns the old and new values.
func (l *Ledger) ModifyPlayer(player, delta int) (old, now int) {
	l.mu.Lock()
	pool, ok := l.players[player]
	if !ok {
		l.mu.Unlock()
		l.logger.Error("modify for unknown player", zap.Int("player", player))
		return 0, 0
	}
	old = pool.Current
	pool.Current = clamp(pool.Current+delta, pool.Max)
	now = pool.Current
	l.mu.Unlock()

	l.publishChange(player, 0, old, now)
	return old, now
}

// ModifyUnit applies a delta to the unit's pool, clamped into [0, max].
// Returns the old and new values.
func (l *Ledger) ModifyUnit(unitID, delta int) (old, now int) {
	l.mu.Lock()
	pool, ok := l.units[unitID]
	if !ok {
		l.mu.Unlock()
		l.logger.Error("modify for unknown unit", zap.Int("unit", unitID))
		return 0, 0
	}
	old = pool.Current
	pool.Current = clamp(pool.Current+delta, pool.Max)
	now = pool.Current
	l.mu.Unlock()

	l.publishChange(0, unitID, old, now)
	return old, now
}

// RegisterActivation counts one aura activation for the player in the
// current aura round. Returns false once the per-phase cap is reached.
func (l *Ledger) RegisterActivation(player int) bool {
	l.mu.Lock()
	if l.maxActivations > 0 && l.activations[player] >= l.maxActivations {
		l.mu.Unlock()
		return false
	}
	l.activations[player]++
	count := l.activations[player]
	l.mu.Unlock()

	if l.bus != nil {
		l.bus.Publish(rules.Event{
			Type:   rules.EventAuraActivated,
			Player: player,
			Amount: count,
		})
	}
	return true
}

// ActivationCount returns the player's activation count for the current
// aura round.
func (l *Ledger) ActivationCount(player int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.activations[player]
}

// AtActivationCap reports whether the player has exhausted the per-phase
// activation budget.
func (l *Ledger) AtActivationCap(player int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.maxActivations > 0 && l.activations[player] >= l.maxActivations
}

// ResetActivations clears the activation counters. Called at the start
// of each aura round.
func (l *Ledger) ResetActivations() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activations = make(map[int]int)
}

// RegisterMove counts one queued move for the player.
func (l *Ledger) RegisterMove(player int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.moves[player]++
}

// MoveCount returns the player's move count for the current Movement
// phase.
func (l *Ledger) MoveCount(player int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.moves[player]
}

// ResetMoveCounts clears the move counters. Called at the start of each
// Movement phase.
func (l *Ledger) ResetMoveCounts() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.moves = make(map[int]int)
}

func (l *Ledger) publishChange(player, unitID, old, now int) {
	if l.bus == nil || old == now {
		return
	}
	l.bus.Publish(rules.Event{
		Type:     rules.EventAuraChanged,
		Player:   player,
		UnitID:   unitID,
		OldValue: old,
		NewValue: now,
	})
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
