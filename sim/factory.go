package sim

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/osmia/components"
	"github.com/pthm-cable/osmia/nest"
	"github.com/pthm-cable/osmia/systems"
)

// newScratch builds one worker's generator and female environment. Worker
// seeds derive from the master seed so runs reproduce at a fixed worker
// count.
func (s *Simulation) newScratch(id int64) workerScratch {
	beta := distuv.Beta{
		Alpha: s.cfg.Allocation.NoiseAlpha,
		Beta:  s.cfg.Allocation.NoiseBeta,
		Src:   exprand.NewSource(uint64(s.cfg.Sim.Seed + 31*id + 13)),
	}
	return workerScratch{
		rng: rand.New(rand.NewSource(s.cfg.Sim.Seed + 1000*id + 7)),
		env: systems.FemaleEnv{
			Forage:      &s.forageEnv,
			Polygons:    s.polygons,
			Parasitoids: s.parasitoids,
			BetaDraw:    beta.Rand,
		},
	}
}

// applyIntents executes the structural outcomes of the parallel phase in
// snapshot order: write the worker's component copies back, then depletion
// and egg insertion, then the individual's own terminal transition.
func (s *Simulation) applyIntents() {
	for i := range s.parallel.intents {
		intent := &s.parallel.intents[i]
		snap := &s.parallel.snapshots[i]

		// Earlier structural changes move archetype rows, so fetch fresh
		// pointers per individual rather than trusting anything captured
		// before this loop started.
		live := s.beeMap.Get(snap.Entity)
		if live == nil {
			continue
		}
		*live = snap.Bee
		if snap.HasOw {
			if ow := s.owMap.Get(snap.Entity); ow != nil {
				*ow = snap.Ow
			}
		}
		if snap.HasFem {
			if fem := s.femMap.Get(snap.Entity); fem != nil {
				*fem = snap.Fem
			}
		}

		if intent.HasDeplete {
			s.pollen.Deplete(intent.Deplete.X, intent.Deplete.Y, intent.Deplete.Amount)
			s.collector.RecordHarvest(intent.Deplete.Amount * s.cfg.Forage.ScoreToMg)
		}
		if intent.HasEgg {
			s.createEgg(intent.Egg)
		}
		if intent.NestStarted {
			s.collector.RecordNestStarted()
		}
		if intent.Seal != nil {
			intent.Seal.Seal()
			s.collector.RecordNestSealed()
			s.releaseIfEmpty(intent.Seal)
		}

		switch intent.Result {
		case systems.ResContinue:
		case systems.ResDie:
			s.removeBee(snap, intent.Cause)
		case systems.ResAdvance:
			s.metamorphose(snap)
		case systems.ResEmerge:
			s.emerge(snap)
		default:
			panic("sim: unknown step result")
		}
	}
}

// createEgg turns a finalized cell into an egg entity in its nest.
func (s *Simulation) createEgg(spec systems.EggSpec) {
	bee := components.Bee{
		Stage:      components.StageEgg,
		Mass:       spec.Mass,
		Female:     spec.Female,
		Parasitism: spec.Parasitism,
		Nest:       spec.Nest,
	}
	e := s.eggMapper.NewEntity(&bee)
	if spec.Nest == nil || !spec.Nest.AddCell(e) {
		// Only the mother seals her nest, and her own seal is ordered after
		// this insertion. A sealed nest here means corrupted state.
		panic("sim: egg laid into a sealed nest")
	}
	s.collector.RecordEggLaid(spec.Female, spec.Parasitism != components.Unparasitised)
}

// metamorphose replaces an individual with its successor stage, copying the
// shared attributes forward. The accumulator restarts at zero; its meaning
// changes with the stage.
func (s *Simulation) metamorphose(snap *beeSnapshot) {
	old := &snap.Bee
	next := components.Bee{
		AgeDays:    old.AgeDays,
		Mass:       old.Mass,
		Female:     old.Female,
		Parasitism: old.Parasitism,
		Nest:       old.Nest,
	}

	var e ecs.Entity
	switch old.Stage {
	case components.StageEgg:
		next.Stage = components.StageLarva
		e = s.eggMapper.NewEntity(&next)
	case components.StageLarva:
		next.Stage = components.StagePrepupa
		next.PrepupaTarget = systems.PrepupaTargetDays(&s.cfg.Prepupa, s.rng)
		e = s.eggMapper.NewEntity(&next)
	case components.StagePrepupa:
		next.Stage = components.StagePupa
		e = s.eggMapper.NewEntity(&next)
	case components.StagePupa:
		next.Stage = components.StageOverwintering
		ow := components.Overwinter{
			EmergeOffset: systems.DrawEmergeOffset(s.cfg.Derived.EmergeSpreadCDF, s.rng),
		}
		e = s.owMapper.NewEntity(&next, &ow)
	default:
		panic("sim: invalid metamorphosis source stage")
	}

	if next.Nest != nil {
		next.Nest.ReplaceOccupant(snap.Entity, e)
	}
	s.world.RemoveEntity(snap.Entity)
}

// emerge resolves a spring emergence: males are discarded, parasitised
// individuals die in the cocoon, and surviving females get their adult mass
// and lifetime egg load.
func (s *Simulation) emerge(snap *beeSnapshot) {
	b := &snap.Bee
	s.removeFromNest(snap)

	switch {
	case b.Parasitism != components.Unparasitised:
		s.collector.RecordDeath(systems.CauseParasitism)
	case !b.Female:
		s.collector.RecordMaleDiscarded()
	default:
		adult := systems.AdultMass(b.Mass, &s.cfg.Female)
		x, y := s.emergeLocation(b)
		bee := components.Bee{Stage: components.StageFemale, Mass: adult, Female: true}
		fem := components.Female{
			Mode:          components.ModeMaturing,
			X:             x,
			Y:             y,
			EggsRemaining: systems.EggLoad(adult, &s.cfg.Female, s.rng),
		}
		s.femMapper.NewEntity(&bee, &fem)
		s.collector.RecordEmergence(adult)
	}

	s.world.RemoveEntity(snap.Entity)
}

// emergeLocation places a fresh female at her natal nest, or at a random
// habitat polygon for seeded individuals without one.
func (s *Simulation) emergeLocation(b *components.Bee) (int, int) {
	if b.Nest != nil {
		return b.Nest.X, b.Nest.Y
	}
	polys := s.polygons.Polygons()
	p := polys[s.rng.Intn(len(polys))]
	return p.X, p.Y
}

// removeBee applies a death: leave the nest, then destroy the entity.
func (s *Simulation) removeBee(snap *beeSnapshot, cause systems.DeathCause) {
	s.collector.RecordDeath(cause)
	s.removeFromNest(snap)
	s.world.RemoveEntity(snap.Entity)
}

// removeFromNest clears the individual's cell slot. Females reference their
// active nest rather than occupying a cell, so they are skipped.
func (s *Simulation) removeFromNest(snap *beeSnapshot) {
	b := &snap.Bee
	if b.Nest == nil || b.Stage == components.StageFemale {
		return
	}
	if b.Nest.RemoveOccupant(snap.Entity) == 0 {
		s.releaseIfEmpty(b.Nest)
	}
}

// releaseIfEmpty returns a sealed nest's slot to its polygon once no
// occupant is left alive.
func (s *Simulation) releaseIfEmpty(n *nest.Nest) {
	if !n.IsOpen() && n.LiveCount() == 0 {
		if p := n.Polygon(); p != nil {
			p.Release(n)
		}
	}
}
