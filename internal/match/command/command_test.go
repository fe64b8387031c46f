package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auragrid/auragrid-server-go/internal/match/ability"
	"github.com/auragrid/auragrid-server-go/internal/match/aura"
	"github.com/auragrid/auragrid-server-go/internal/match/grid"
	"github.com/auragrid/auragrid-server-go/internal/match/queue"
	"github.com/auragrid/auragrid-server-go/internal/match/rules"
	"github.com/auragrid/auragrid-server-go/internal/match/unit"
)

type recordedZone struct {
	pos    grid.Position
	radius int
	damage int
	turns  int
	owner  int
}

type zoneRecorder struct {
	zones []recordedZone
}

func (z *zoneRecorder) AddZone(pos grid.Position, radius, damage, turns, owner int) {
	z.zones = append(z.zones, recordedZone{pos, radius, damage, turns, owner})
}

// newTestContext builds a context in player 1's first aura sub-phase
// with one unit per player.
func newTestContext(t *testing.T) (*Context, *unit.Unit, *unit.Unit, *zoneRecorder) {
	t.Helper()

	bus := rules.NewEventBus()
	machine := rules.NewTurnMachine(bus, rules.PhaseBudgets{}, nil)
	reg := unit.NewRegistry()
	board := grid.Board{Width: 10, Height: 10}
	ledger := aura.NewLedger(bus, 2, nil)
	q := queue.NewActionQueue(machine, reg, board, queue.Quotas{}, ledger, bus, nil)

	caster := reg.Spawn("caster", 1, grid.Position{X: 2, Y: 2}, 10)
	enemy := reg.Spawn("enemy", 2, grid.Position{X: 4, Y: 2}, 10)
	ledger.AddPlayer(1, 10, 2)
	ledger.AddPlayer(2, 10, 2)
	ledger.AddUnit(caster.ID, 5)
	ledger.AddUnit(enemy.ID, 5)

	machine.ForceTransitionTo(rules.PhaseAuraP1R1)

	zones := &zoneRecorder{}
	ctx := &Context{
		Machine:  machine,
		Ledger:   ledger,
		Queue:    q,
		Registry: reg,
		Catalog:  ability.DefaultCatalog(),
		Board:    board,
		Zones:    zones,
		Bus:      bus,
	}
	return ctx, caster, enemy, zones
}

func TestWireRoundTrip(t *testing.T) {
	commands := []Command{
		&Move{Player: 1, UnitID: 7, Target: grid.Position{X: 3, Y: 9}},
		&Ability{Player: 2, UnitID: 4, AbilityIndex: 1, Target: grid.Position{X: 0, Y: 5}, Overload: true},
		&Reposition{Player: 1, UnitID: 2, Target: grid.Position{X: 8, Y: 8}},
		&EndTurn{Player: 2},
	}

	for _, original := range commands {
		data, err := Encode(original)
		require.NoError(t, err)

		decoded, err := Decode(data)
		require.NoError(t, err)

		assert.Equal(t, original.Kind(), decoded.Kind())
		assert.Equal(t, original.Fields(), decoded.Fields())
		assert.Equal(t, original, decoded)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"TELEPORT","fields":{}}`))
	assert.Error(t, err)
}

func TestAbilityInsufficientAuraLeavesPoolUntouched(t *testing.T) {
	ctx, caster, _, _ := newTestContext(t)

	// Bolt costs 3; leave the caster with 2.
	ctx.Ledger.ModifyUnit(caster.ID, -3)
	require.True(t, ctx.Ledger.HasEnoughUnit(caster.ID, 2))

	cmd := &Ability{Player: 1, UnitID: caster.ID, AbilityIndex: 0, Target: grid.Position{X: 4, Y: 2}}
	ok, reason := cmd.Validate(ctx)

	assert.False(t, ok)
	assert.Equal(t, ReasonInsufficientAura, reason)
	current, _ := ctx.Ledger.UnitAura(caster.ID)
	assert.Equal(t, 2, current, "validation must not spend aura")
}

func TestAbilityValidationOrder(t *testing.T) {
	ctx, caster, enemy, _ := newTestContext(t)

	bolt := func() *Ability {
		return &Ability{Player: 1, UnitID: caster.ID, AbilityIndex: 0, Target: enemy.Pos}
	}

	// Unknown unit short-circuits everything else.
	cmd := bolt()
	cmd.UnitID = 99
	_, reason := cmd.Validate(ctx)
	assert.Equal(t, ReasonUnknownUnit, reason)

	// Ownership is checked before phase.
	cmd = bolt()
	cmd.Player = 2
	ctx.Machine.ForceTransitionTo(rules.PhaseMovement)
	_, reason = cmd.Validate(ctx)
	assert.Equal(t, ReasonNotOwner, reason)

	// Wrong phase before cooldown.
	caster.StartCooldown(0, 2)
	cmd = bolt()
	_, reason = cmd.Validate(ctx)
	assert.Equal(t, ReasonWrongPhase, reason)

	// Cooldown before cost.
	ctx.Machine.ForceTransitionTo(rules.PhaseAuraP1R1)
	ctx.Ledger.ModifyUnit(caster.ID, -5)
	cmd = bolt()
	_, reason = cmd.Validate(ctx)
	assert.Equal(t, ReasonOnCooldown, reason)

	// Overload waives the cooldown gate but not the cost.
	cmd = bolt()
	cmd.Overload = true
	_, reason = cmd.Validate(ctx)
	assert.Equal(t, ReasonInsufficientAura, reason)

	// Cost before range.
	caster.Cooldowns = map[int]int{}
	ctx.Ledger.ModifyUnit(caster.ID, 5)
	enemy.Pos = grid.Position{X: 9, Y: 9}
	cmd = bolt()
	cmd.Target = enemy.Pos
	_, reason = cmd.Validate(ctx)
	assert.Equal(t, ReasonOutOfRange, reason)

	// Range before target type: empty in-range tile on a unit-targeted
	// ability is an invalid target.
	cmd = bolt()
	cmd.Target = grid.Position{X: 3, Y: 2}
	_, reason = cmd.Validate(ctx)
	assert.Equal(t, ReasonInvalidTarget, reason)
}

func TestAbilityTargetTypeLegality(t *testing.T) {
	ctx, caster, enemy, _ := newTestContext(t)
	enemy.Pos = grid.Position{X: 3, Y: 2}

	// Bolt targets enemies only: self-cast is invalid.
	selfCast := &Ability{Player: 1, UnitID: caster.ID, AbilityIndex: 0, Target: caster.Pos}
	ok, reason := selfCast.Validate(ctx)
	assert.False(t, ok)
	assert.Equal(t, ReasonInvalidTarget, reason)

	// Mend targets self/ally only: enemy is invalid.
	mendEnemy := &Ability{Player: 1, UnitID: caster.ID, AbilityIndex: 1, Target: enemy.Pos}
	ok, reason = mendEnemy.Validate(ctx)
	assert.False(t, ok)
	assert.Equal(t, ReasonInvalidTarget, reason)

	// Mend self is fine.
	mendSelf := &Ability{Player: 1, UnitID: caster.ID, AbilityIndex: 1, Target: caster.Pos}
	ok, _ = mendSelf.Validate(ctx)
	assert.True(t, ok)
}

func TestGroundAbilitySkipsUnitChecks(t *testing.T) {
	ctx, caster, _, zones := newTestContext(t)

	// Firestorm is ground-targeted: an empty tile is a legal target.
	cmd := &Ability{Player: 1, UnitID: caster.ID, AbilityIndex: 3, Target: grid.Position{X: 5, Y: 3}}
	ok, reason := cmd.Validate(ctx)
	require.True(t, ok, "reason: %s", reason)

	require.NoError(t, cmd.Execute(ctx))
	require.Len(t, zones.zones, 1)
	assert.Equal(t, grid.Position{X: 5, Y: 3}, zones.zones[0].pos)
	assert.Equal(t, 1, zones.zones[0].owner)
}

func TestAbilityExecuteAppliesEffects(t *testing.T) {
	ctx, caster, enemy, _ := newTestContext(t)

	cmd := &Ability{Player: 1, UnitID: caster.ID, AbilityIndex: 0, Target: enemy.Pos}
	ok, reason := cmd.Validate(ctx)
	require.True(t, ok, "reason: %s", reason)
	require.NoError(t, cmd.Execute(ctx))

	assert.Equal(t, 6, enemy.HP, "bolt deals 4")
	current, _ := ctx.Ledger.UnitAura(caster.ID)
	assert.Equal(t, 2, current, "cost 3 deducted from unit pool")
	assert.True(t, caster.OnCooldown(0))
	assert.Equal(t, 1, ctx.Ledger.ActivationCount(1))
}

func TestRepositionOnlyDuringOpening(t *testing.T) {
	ctx, caster, _, _ := newTestContext(t)

	cmd := &Reposition{Player: 1, UnitID: caster.ID, Target: grid.Position{X: 0, Y: 9}}
	ok, reason := cmd.Validate(ctx)
	assert.False(t, ok)
	assert.Equal(t, ReasonWrongPhase, reason)

	ctx.Machine.ForceTransitionTo(rules.PhaseOpening)
	ok, _ = cmd.Validate(ctx)
	require.True(t, ok)
	require.NoError(t, cmd.Execute(ctx))
	assert.Equal(t, grid.Position{X: 0, Y: 9}, caster.Pos)
}

func TestEndTurnRequiresActivePlayer(t *testing.T) {
	ctx, _, _, _ := newTestContext(t)

	// Player 1's aura sub-phase: player 2 may not end it.
	ok, reason := (&EndTurn{Player: 2}).Validate(ctx)
	assert.False(t, ok)
	assert.Equal(t, ReasonNotActivePlayer, reason)

	ok, _ = (&EndTurn{Player: 1}).Validate(ctx)
	assert.True(t, ok)
}

type fakeForwarder struct {
	err      error
	payloads [][]byte
}

func (f *fakeForwarder) Forward(payload []byte, done func(error)) {
	f.payloads = append(f.payloads, payload)
	done(f.err)
}

func (f *fakeForwarder) Close() error { return nil }

func TestPipelineNoBackendAssumesSuccess(t *testing.T) {
	ctx, caster, enemy, _ := newTestContext(t)
	p := NewPipeline(ctx, nil, nil)

	var status BackendStatus = -1
	ok, _ := p.Submit(&Ability{Player: 1, UnitID: caster.ID, AbilityIndex: 0, Target: enemy.Pos},
		func(s BackendStatus, _ string) { status = s })
	require.True(t, ok)

	// Callback lands on the tick, not inside Submit.
	assert.Equal(t, BackendStatus(-1), status)
	p.Drain()
	assert.Equal(t, BackendNone, status)
}

func TestPipelineBackendRejectionLogsAndDiverges(t *testing.T) {
	ctx, caster, enemy, _ := newTestContext(t)
	fwd := &fakeForwarder{err: errors.New("server said no")}
	p := NewPipeline(ctx, fwd, nil)

	var status BackendStatus = -1
	var msg string
	ok, _ := p.Submit(&Ability{Player: 1, UnitID: caster.ID, AbilityIndex: 0, Target: enemy.Pos},
		func(s BackendStatus, m string) { status, msg = s, m })
	require.True(t, ok)
	p.Drain()

	assert.Equal(t, BackendRejected, status)
	assert.Contains(t, msg, "server said no")
	// Optimistic local state is left as-is.
	assert.Equal(t, 6, enemy.HP)
	assert.Len(t, fwd.payloads, 1)
}

func TestPipelineValidationFailureNeverForwards(t *testing.T) {
	ctx, caster, _, _ := newTestContext(t)
	fwd := &fakeForwarder{}
	p := NewPipeline(ctx, fwd, nil)

	ok, reason := p.Submit(&Ability{Player: 1, UnitID: caster.ID, AbilityIndex: 0, Target: grid.Position{X: 9, Y: 9}}, nil)
	assert.False(t, ok)
	assert.Equal(t, ReasonOutOfRange, reason)
	assert.Empty(t, fwd.payloads)
}
