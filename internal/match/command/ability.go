package command

import (
	"fmt"

	"github.com/auragrid/auragrid-server-go/internal/match/grid"
	"github.com/auragrid/auragrid-server-go/internal/match/rules"
	"github.com/auragrid/auragrid-server-go/internal/match/unit"
)

// Ability casts a unit ability at a target tile. Aura sub-phases have a
// single acting player, so ability intents commit immediately upon
// validated submission; there is no batching.
type Ability struct {
	Player       int
	UnitID       int
	AbilityIndex int
	Target       grid.Position
	Overload     bool
}

func (a *Ability) Kind() Kind { return KindAbility }

// Validate checks legality in a fixed short-circuit order: unit exists
// and alive, ownership, unit can act, phase permits this player's aura
// activation, activation cap, cooldown (waived by overload), unit-pool
// cost, Manhattan range, target-type legality. Ground-only abilities
// skip unit-type checks once range passes.
func (a *Ability) Validate(ctx *Context) (bool, string) {
	caster, ok := ctx.Registry.Get(a.UnitID)
	if !ok {
		return false, ReasonUnknownUnit
	}
	if !caster.Alive() {
		return false, ReasonUnitDead
	}
	if caster.Owner != a.Player {
		return false, ReasonNotOwner
	}
	if !caster.CanAct() {
		return false, ReasonUnitCannotAct
	}
	if !ctx.Machine.AllowsAuraActivation(a.Player) {
		return false, ReasonWrongPhase
	}
	if ctx.Ledger.AtActivationCap(a.Player) {
		return false, ReasonActivationCap
	}

	spec, ok := ctx.Catalog.Get(a.AbilityIndex)
	if !ok {
		return false, ReasonUnknownAbility
	}
	if a.Overload && !spec.CanOverload() {
		return false, ReasonNoOverloadVariant
	}
	// Overload waives the cooldown gate only; cost is still checked.
	if !a.Overload && caster.OnCooldown(a.AbilityIndex) {
		return false, ReasonOnCooldown
	}
	if !ctx.Ledger.HasEnoughUnit(a.UnitID, spec.EffectiveCost(a.Overload)) {
		return false, ReasonInsufficientAura
	}
	if grid.Manhattan(caster.Pos, a.Target) > spec.Range {
		return false, ReasonOutOfRange
	}

	if spec.Targets.Ground {
		return true, ""
	}

	target, found := ctx.Registry.AtPosition(a.Target)
	if !found {
		return false, ReasonInvalidTarget
	}
	switch {
	case target.ID == caster.ID:
		if !spec.Targets.Self {
			return false, ReasonInvalidTarget
		}
	case target.Owner == caster.Owner:
		if !spec.Targets.Ally {
			return false, ReasonInvalidTarget
		}
	default:
		if !spec.Targets.Enemy {
			return false, ReasonInvalidTarget
		}
	}
	return true, ""
}

func (a *Ability) Execute(ctx *Context) error {
	caster, ok := ctx.Registry.Get(a.UnitID)
	if !ok {
		return fmt.Errorf("ability: %s", ReasonUnknownUnit)
	}
	spec, ok := ctx.Catalog.Get(a.AbilityIndex)
	if !ok {
		return fmt.Errorf("ability: %s", ReasonUnknownAbility)
	}

	ctx.Ledger.ModifyUnit(a.UnitID, -spec.EffectiveCost(a.Overload))
	caster.StartCooldown(a.AbilityIndex, spec.Cooldown)

	damage := spec.EffectiveDamage(a.Overload)
	for _, target := range a.affectedUnits(ctx, spec.Area) {
		if damage > 0 {
			dealt := target.ApplyDamage(damage)
			a.publish(ctx, rules.EventUnitDamaged, target, dealt)
			if !target.Alive() {
				a.publish(ctx, rules.EventUnitDied, target, 0)
			}
		}
		if spec.Heal > 0 {
			healed := target.ApplyHeal(spec.Heal)
			a.publish(ctx, rules.EventUnitHealed, target, healed)
		}
		if spec.Status != nil && target.Alive() {
			target.ApplyStatus(unit.Status{
				Kind:      unit.StatusKind(spec.Status.Kind),
				TurnsLeft: spec.Status.Turns,
				Amount:    spec.Status.Amount,
			})
		}
	}

	if spec.Zone != nil && ctx.Zones != nil {
		ctx.Zones.AddZone(a.Target, spec.Zone.Radius, spec.Zone.Damage, spec.Zone.Turns, a.Player)
	}

	ctx.Ledger.RegisterActivation(a.Player)
	return nil
}

// affectedUnits returns every living unit within the area radius of the
// target tile, in canonical registry order. Area 0 hits the target tile
// only.
func (a *Ability) affectedUnits(ctx *Context, area int) []*unit.Unit {
	var out []*unit.Unit
	for _, u := range ctx.Registry.Alive() {
		if grid.Manhattan(a.Target, u.Pos) <= area {
			out = append(out, u)
		}
	}
	return out
}

func (a *Ability) publish(ctx *Context, eventType rules.EventType, target *unit.Unit, amount int) {
	if ctx.Bus == nil {
		return
	}
	ctx.Bus.Publish(rules.Event{
		Type:   eventType,
		UnitID: target.ID,
		Player: target.Owner,
		Amount: amount,
		X:      target.Pos.X,
		Y:      target.Pos.Y,
	})
}

func (a *Ability) Fields() map[string]int {
	overload := 0
	if a.Overload {
		overload = 1
	}
	return map[string]int{
		"player":        a.Player,
		"unit_id":       a.UnitID,
		"ability_index": a.AbilityIndex,
		"x":             a.Target.X,
		"y":             a.Target.Y,
		"overload":      overload,
	}
}
