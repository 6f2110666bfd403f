package systems

import (
	"math/rand"

	"github.com/pthm-cable/osmia/components"
	"github.com/pthm-cable/osmia/config"
)

// StepOverwinter advances an overwintering adult through the three seasonal
// phases. Prewintering accumulates fat-depleting warmth above the autumn
// threshold; deep winter accumulates chill-offset degree-days into the
// repurposed development accumulator; the spring phase runs the emergence
// countdown. The winter mortality test happens exactly once, at the moment
// the countdown completes.
func StepOverwinter(b *components.Bee, ow *components.Overwinter, oc *config.OverwinterConfig, day *DayContext, rng *rand.Rand) StepResult {
	b.AgeDays++

	if day.EmergenceWindow {
		if !ow.CounterSet {
			micro := 0.0
			if b.Nest != nil {
				micro = b.Nest.MicrositeDelay
			}
			ow.Counter = oc.EmergenceConst + oc.EmergenceSlope*b.DevAccum + ow.EmergeOffset + micro
			ow.CounterSet = true
			// The countdown runs on the days after the counter is fixed.
			return ResContinue
		}
		if day.MeanTemp >= oc.EmergenceThresholdC {
			ow.Counter--
		}
		if ow.Counter < 1 {
			ow.MortTestPassed = true
			if rng.Float64() < WinterMortalityProb(ow.PrewinterDD, oc) {
				return ResDie
			}
			return ResEmerge
		}
		return ResContinue
	}

	// Countdown started but the window closed: emergence failed.
	if ow.CounterSet {
		return ResDie
	}

	if !day.PrewinterOver {
		ow.PrewinterDD += DegreeDayDelta(day.MeanTemp, oc.PrewinterThresholdC)
		return ResContinue
	}

	b.DevAccum += DegreeDayDelta(day.MeanTemp, oc.WinterThresholdC)
	return ResContinue
}

// WinterMortalityProb returns the emergence-time mortality probability.
// More prewinter thermal accumulation means more depleted reserves, so the
// relationship is increasing; the raw linear form is clamped to [0,1].
func WinterMortalityProb(prewinterDD float64, oc *config.OverwinterConfig) float64 {
	p := oc.MortSlope*prewinterDD + oc.MortConst
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// DrawEmergeOffset samples the individual emergence-date offset in days
// from the configured discrete spread distribution.
func DrawEmergeOffset(cdf []float64, rng *rand.Rand) float64 {
	u := rng.Float64()
	for i, c := range cdf {
		if u <= c {
			return float64(i)
		}
	}
	return float64(len(cdf) - 1)
}

// AdultMass converts carried provision mass to flight-capable adult mass,
// applied exactly once at emergence.
func AdultMass(provisionMass float64, fc *config.FemaleConfig) float64 {
	return fc.AdultMassSlope*provisionMass + fc.AdultMassConst
}
