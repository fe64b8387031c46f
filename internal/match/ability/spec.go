package ability

// TargetFlags describes what an ability may be aimed at. Ground-only
// abilities skip unit-type checks entirely once range passes.
type TargetFlags struct {
	Self   bool `mapstructure:"self"`
	Ally   bool `mapstructure:"ally"`
	Enemy  bool `mapstructure:"enemy"`
	Ground bool `mapstructure:"ground"`
}

// StatusPayload is an optional status effect carried by an ability.
type StatusPayload struct {
	Kind   string `mapstructure:"kind"`
	Turns  int    `mapstructure:"turns"`
	Amount int    `mapstructure:"amount"`
}

// ZonePayload is an optional persistent zone created at the target tile.
type ZonePayload struct {
	Radius int `mapstructure:"radius"`
	Damage int `mapstructure:"damage"`
	Turns  int `mapstructure:"turns"`
}

// OverloadSpec describes the overload cast variant. Overload waives the
// cooldown gate only; the (multiplied) cost is still checked and paid.
type OverloadSpec struct {
	CostMultiplier   int `mapstructure:"cost_multiplier"`
	DamageMultiplier int `mapstructure:"damage_multiplier"`
}

// Spec is the read-only definition of one ability. The core never
// mutates these; they are authored externally and loaded at startup.
type Spec struct {
	Name     string         `mapstructure:"name"`
	Cost     int            `mapstructure:"cost"`
	Cooldown int            `mapstructure:"cooldown"`
	Range    int            `mapstructure:"range"`
	Area     int            `mapstructure:"area"`
	Damage   int            `mapstructure:"damage"`
	Heal     int            `mapstructure:"heal"`
	Targets  TargetFlags    `mapstructure:"targets"`
	Status   *StatusPayload `mapstructure:"status"`
	Zone     *ZonePayload   `mapstructure:"zone"`
	Overload *OverloadSpec  `mapstructure:"overload"`
}

// EffectiveCost returns the aura cost for a cast, applying the overload
// multiplier when casting in overload mode.
func (s Spec) EffectiveCost(overload bool) int {
	if overload && s.Overload != nil && s.Overload.CostMultiplier > 0 {
		return s.Cost * s.Overload.CostMultiplier
	}
	return s.Cost
}

// EffectiveDamage returns the damage for a cast, applying the overload
// multiplier when casting in overload mode.
func (s Spec) EffectiveDamage(overload bool) int {
	if overload && s.Overload != nil && s.Overload.DamageMultiplier > 0 {
		return s.Damage * s.Overload.DamageMultiplier
	}
	return s.Damage
}

// CanOverload reports whether the ability has an overload variant.
func (s Spec) CanOverload() bool {
	return s.Overload != nil
}
