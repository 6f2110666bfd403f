package systems

import (
	"math/rand"

	"github.com/pthm-cable/osmia/components"
	"github.com/pthm-cable/osmia/config"
)

// StepImmature advances an egg, larva or pupa by one day: mortality test,
// degree-day accumulation, threshold check. Cells in a still-open nest do
// not develop; their thermal environment stabilizes only once the nest is
// sealed.
func StepImmature(b *components.Bee, sc *config.StageConfig, day *DayContext, rng *rand.Rand) StepResult {
	b.AgeDays++
	if b.Nest != nil && b.Nest.IsOpen() {
		return ResContinue
	}
	if rng.Float64() < sc.DailyMortality {
		return ResDie
	}
	b.DevAccum += DegreeDayDelta(day.MeanTemp, sc.ThresholdC)
	if ReachedTarget(b.DevAccum, sc.TotalDD) {
		return ResAdvance
	}
	return ResContinue
}

// StepPrepupa advances a prepupa by one day. The stage is time-based, not
// degree-day based: elapsed development-days scale by the population-wide
// temperature-indexed rate, against a per-individual target drawn at stage
// entry.
func StepPrepupa(b *components.Bee, pc *config.PrepupaConfig, day *DayContext, rng *rand.Rand) StepResult {
	b.AgeDays++
	if b.Nest != nil && b.Nest.IsOpen() {
		return ResContinue
	}
	if rng.Float64() < pc.DailyMortality {
		return ResDie
	}
	b.DevAccum += day.PrepupalRate
	if ReachedTarget(b.DevAccum, b.PrepupaTarget) {
		return ResAdvance
	}
	return ResContinue
}

// PrepupaTargetDays draws the per-individual prepupal duration target:
// base days with uniform ±spread variation.
func PrepupaTargetDays(pc *config.PrepupaConfig, rng *rand.Rand) float64 {
	return pc.BaseDays * (1 + pc.TargetSpread*(2*rng.Float64()-1))
}
