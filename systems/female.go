package systems

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/osmia/components"
	"github.com/pthm-cable/osmia/config"
	"github.com/pthm-cable/osmia/landscape"
	"github.com/pthm-cable/osmia/nest"
)

// EggSpec describes a finalized cell for the scheduler to turn into an egg
// entity after the parallel phase.
type EggSpec struct {
	Mass       float64 // accumulated provision mass, mg
	Female     bool
	Parasitism components.ParasitismStatus
	Nest       *nest.Nest
}

// FemaleOutcome is the result of one female's daily step.
type FemaleOutcome struct {
	Result StepResult
	Cause  DeathCause

	HasEgg bool
	Egg    EggSpec

	HasDeplete bool
	Deplete    Depletion

	// Seal is set when the active nest completed this step. Sealing is the
	// scheduler's job, after the day's final egg has been added to the nest.
	Seal *nest.Nest

	NestStarted bool
}

// FemaleEnv bundles everything the female state machine touches beyond her
// own components. Nests and polygons are internally synchronized, the
// density grid is atomic, so all of it is safe from the parallel phase.
type FemaleEnv struct {
	Forage      *ForageEnv
	Polygons    *nest.Registry
	Parasitoids landscape.ParasitoidDensitySource

	// BetaDraw samples the asymmetric provision-mass noise in [0,1].
	BetaDraw func() float64
}

// StepFemale advances an active female by one day. Death is an ordinary
// state transition; genuine invariant violations (an unknown mode) panic.
func StepFemale(b *components.Bee, f *components.Female, c *config.Config, env *FemaleEnv, day *DayContext, rng *rand.Rand) FemaleOutcome {
	out := FemaleOutcome{Result: ResContinue}
	b.AgeDays++

	if int(b.AgeDays) > c.Female.MaxLifespanDays {
		return die(b, f, env, CauseLifespan)
	}
	if rng.Float64() < c.Female.DailyMortality {
		return die(b, f, env, CauseBackground)
	}

	switch f.Mode {
	case components.ModeMaturing:
		f.MaturingDays++
		if f.MaturingDays >= c.Female.PrenestingDays {
			f.Mode = components.ModeSearching
		}

	case components.ModeSearching:
		stepSearch(b, f, c, env, rng, &out)

	case components.ModeDispersing:
		if f.Dispersals >= c.Female.MaxDispersals {
			return die(b, f, env, CauseNestFailure)
		}
		disperse(f, c, env, rng)

	case components.ModeProvisioning:
		stepProvision(b, f, c, env, day, rng, &out)

	case components.ModeDone:
		// Reproductive capacity exhausted; living out remaining lifespan.

	default:
		panic("systems: unknown female mode")
	}

	return out
}

// die handles any terminal condition. An open nest must stop accepting
// siblings, but sealing is shared-state the immature steps read the same
// day, so it rides in the intent and the scheduler applies it; only the
// density count, which is atomic, is released here.
func die(b *components.Bee, f *components.Female, env *FemaleEnv, cause DeathCause) FemaleOutcome {
	out := FemaleOutcome{Result: ResDie, Cause: cause}
	if b.Nest != nil {
		out.Seal = b.Nest
		env.Forage.Density.Dec(b.Nest.X, b.Nest.Y)
		b.Nest = nil
		f.HasForageLoc = false
	}
	return out
}

// stepSearch makes one cavity-claim attempt in nearby habitat.
func stepSearch(b *components.Bee, f *components.Female, c *config.Config, env *FemaleEnv, rng *rand.Rand, out *FemaleOutcome) {
	if f.EggsRemaining <= 0 || f.NestsStarted >= c.Female.TotalNestsPossible {
		f.Mode = components.ModeDone
		return
	}

	candidates := env.Polygons.Nearest(f.X, f.Y, c.Female.HomingDistance)
	if len(candidates) > 0 {
		p := candidates[rng.Intn(len(candidates))]
		if rng.Float64() < p.NestProb {
			micro := rng.Float64() * c.Overwinter.MicrositeDelayMax
			if n := p.TryCreateNest(micro, rng); n != nil {
				beginNest(b, f, c, env, n, rng)
				out.NestStarted = true
				return
			}
		}
	}

	f.NestAttempts++
	if f.NestAttempts >= c.Female.NestAttempts {
		f.Mode = components.ModeDispersing
	}
}

// beginNest claims a nest, plans its cell sequence, and opens the first cell.
func beginNest(b *components.Bee, f *components.Female, c *config.Config, env *FemaleEnv, n *nest.Nest, rng *rand.Rand) {
	b.Nest = n
	f.X = n.X
	f.Y = n.Y
	f.NestAttempts = 0
	f.NestsStarted++
	f.EggsThisNest = PlanEggsPerNest(&c.Female, f.EggsRemaining, rng)
	f.Mode = components.ModeProvisioning
	env.Forage.Density.Inc(n.X, n.Y)
	openNextCell(b, f, c, env, rng)
}

// disperse relocates the female well beyond her homing range and restarts
// the local search with a fresh attempt budget.
func disperse(f *components.Female, c *config.Config, env *FemaleEnv, rng *rand.Rand) {
	f.Dispersals++
	dist := float64(c.Female.HomingDistance) * (1 + rng.Float64()*(c.Female.DispersalFactor-1))
	ang := rng.Float64() * 2 * math.Pi
	f.X = clampInt(f.X+int(dist*math.Cos(ang)), 0, env.Forage.Width-1)
	f.Y = clampInt(f.Y+int(dist*math.Sin(ang)), 0, env.Forage.Height-1)
	f.NestAttempts = 0
	f.HasForageLoc = false
	f.Mode = components.ModeSearching
}

// stepProvision runs one day of the cell provisioning loop.
func stepProvision(b *components.Bee, f *components.Female, c *config.Config, env *FemaleEnv, day *DayContext, rng *rand.Rand, out *FemaleOutcome) {
	f.CellOpenDays++

	if day.ForageHours > 0 {
		mg, dep, ok := ForageDay(b, f, c, env.Forage, day)
		if ok && mg > 0 {
			f.CellProvision += mg
			out.HasDeplete = true
			out.Deplete = dep
		}
	}

	if f.CellProvision >= f.CellTarget {
		finalizeCell(b, f, c, env, rng, out)
		return
	}

	// Weather or resource failure stalled the cell too long: the open cell's
	// parasitism exposure makes continuing unprofitable, abandon it.
	if f.CellOpenDays > c.Female.MaxCellOpenDays {
		f.CellProvision = 0
		f.CellOpenDays = 0
	}
}

// finalizeCell resolves parasitism, emits the egg, and either opens the next
// cell, seals and moves to the next nest, or ends reproduction.
func finalizeCell(b *components.Bee, f *components.Female, c *config.Config, env *FemaleEnv, rng *rand.Rand, out *FemaleOutcome) {
	out.HasEgg = true
	out.Egg = EggSpec{
		Mass:       f.CellProvision,
		Female:     f.CellFemale,
		Parasitism: drawParasitism(f, c, env, rng),
		Nest:       b.Nest,
	}
	f.EggsRemaining--
	f.EggsThisNest--
	f.CellsLaid++
	f.CellProvision = 0
	f.CellOpenDays = 0

	if f.EggsThisNest <= 0 || f.EggsRemaining <= 0 {
		out.Seal = b.Nest
		env.Forage.Density.Dec(b.Nest.X, b.Nest.Y)
		b.Nest = nil
		f.HasForageLoc = false
		if f.EggsRemaining > 0 && f.NestsStarted < c.Female.TotalNestsPossible {
			f.Mode = components.ModeSearching
		} else {
			f.Mode = components.ModeDone
		}
		return
	}
	openNextCell(b, f, c, env, rng)
}

func openNextCell(b *components.Bee, f *components.Female, c *config.Config, env *FemaleEnv, rng *rand.Rand) {
	eggCapacity := f.EggsRemaining + f.CellsLaid
	f.CellFemale, f.CellTarget = PlanNextCell(c, b.Mass, int(b.AgeDays), f.CellsLaid, eggCapacity, env.BetaDraw(), rng)
	f.CellProvision = 0
	f.CellOpenDays = 0
}

// drawParasitism resolves a completed cell's parasitism outcome. With a
// parasitoid density source plugged in, risk derives from local density and
// per-capita attack rates; otherwise risk grows linearly with the days the
// cell stood open.
func drawParasitism(f *components.Female, c *config.Config, env *FemaleEnv, rng *rand.Rand) components.ParasitismStatus {
	risk := 0.0
	if densities := env.Parasitoids.Density(f.X, f.Y); len(densities) > 0 {
		for i, d := range densities {
			if i < len(c.Parasitism.PerCapitaAttack) {
				risk += d * c.Parasitism.PerCapitaAttack[i]
			}
		}
	} else {
		risk = float64(f.CellOpenDays) * c.Parasitism.RiskPerOpenDay
	}

	if rng.Float64() >= risk {
		return components.Unparasitised
	}
	if rng.Float64() < c.Parasitism.BombylidProb {
		return components.ParasitisedBombylid
	}
	return components.ParasitisedClepto
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
