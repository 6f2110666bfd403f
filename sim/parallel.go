package sim

import (
	"math/rand"
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/osmia/components"
	"github.com/pthm-cable/osmia/nest"
	"github.com/pthm-cable/osmia/systems"
)

// parallelThreshold is the minimum population to use parallel stepping.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// beeSnapshot holds component copies for one individual. Workers mutate
// their own copy, so the compute phase never touches shared archetype
// storage; the apply phase writes survivors back through freshly fetched
// pointers, since earlier structural changes move rows around.
type beeSnapshot struct {
	Entity ecs.Entity
	Bee    components.Bee
	Ow     components.Overwinter
	Fem    components.Female
	HasOw  bool
	HasFem bool
}

// stepIntent captures one individual's structural outcome for serial apply.
type stepIntent struct {
	Result systems.StepResult
	Cause  systems.DeathCause

	HasEgg bool
	Egg    systems.EggSpec

	HasDeplete bool
	Deplete    systems.Depletion

	// Seal defers nest sealing to after the day's egg has been added.
	Seal *nest.Nest

	NestStarted bool
}

// workerScratch holds per-worker state: a seeded generator and the female
// environment with its Beta noise sampler.
type workerScratch struct {
	rng *rand.Rand
	env systems.FemaleEnv
}

// workChunk is a snapshot range for one worker.
type workChunk struct {
	start, end int
}

// parallelState is the persistent worker pool for daily stepping.
type parallelState struct {
	snapshots  []beeSnapshot
	intents    []stepIntent
	scratches  []workerScratch
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newParallelState(s *Simulation) *parallelState {
	numWorkers := runtime.GOMAXPROCS(0)
	p := &parallelState{
		numWorkers: numWorkers,
		scratches:  make([]workerScratch, numWorkers),
		snapshots:  make([]beeSnapshot, 0, 4096),
		intents:    make([]stepIntent, 0, 4096),
	}
	for i := range p.scratches {
		p.scratches[i] = s.newScratch(int64(i))
	}
	return p
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Simulation) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker processes chunks until stopped.
func (p *parallelState) worker(s *Simulation, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk.start, chunk.end, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// stepAll runs the three-phase daily update: snapshot, compute, apply.
func (s *Simulation) stepAll() {
	// Phase A: build snapshots (single-threaded)
	s.parallel.snapshots = s.parallel.snapshots[:0]

	query := s.beeFilter.Query()
	for query.Next() {
		entity := query.Entity()
		snap := beeSnapshot{Entity: entity, Bee: *query.Get()}
		if ow := s.owMap.Get(entity); ow != nil {
			snap.Ow = *ow
			snap.HasOw = true
		}
		if fem := s.femMap.Get(entity); fem != nil {
			snap.Fem = *fem
			snap.HasFem = true
		}
		s.parallel.snapshots = append(s.parallel.snapshots, snap)
	}

	n := len(s.parallel.snapshots)
	if n == 0 {
		return
	}

	if cap(s.parallel.intents) < n {
		s.parallel.intents = make([]stepIntent, n)
	}
	s.parallel.intents = s.parallel.intents[:n]
	for i := range s.parallel.intents {
		s.parallel.intents[i] = stepIntent{}
	}

	// Phase B: compute.
	if n < parallelThreshold {
		s.computeChunk(0, n, &s.parallel.scratches[0])
	} else {
		s.computeParallel(n)
	}

	// Phase C: apply structural changes (single-threaded, deterministic).
	s.applyIntents()
}

// computeParallel dispatches chunks to the worker pool.
func (s *Simulation) computeParallel(n int) {
	if !s.parallel.running {
		s.parallel.startWorkers(s)
	}

	numWorkers := s.parallel.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	dispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		s.parallel.workChan <- workChunk{start: start, end: end}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-s.parallel.doneChan
	}
}

// computeChunk steps a snapshot range against the read-only day context.
func (s *Simulation) computeChunk(i0, i1 int, scratch *workerScratch) {
	for i := i0; i < i1; i++ {
		snap := &s.parallel.snapshots[i]
		intent := &s.parallel.intents[i]
		b := &snap.Bee

		switch b.Stage {
		case components.StageEgg:
			intent.Result = systems.StepImmature(b, &s.cfg.Egg, &s.day, scratch.rng)
			intent.Cause = systems.CauseDevelopment
		case components.StageLarva:
			intent.Result = systems.StepImmature(b, &s.cfg.Larva, &s.day, scratch.rng)
			intent.Cause = systems.CauseDevelopment
		case components.StagePrepupa:
			intent.Result = systems.StepPrepupa(b, &s.cfg.Prepupa, &s.day, scratch.rng)
			intent.Cause = systems.CauseDevelopment
		case components.StagePupa:
			intent.Result = systems.StepImmature(b, &s.cfg.Pupa, &s.day, scratch.rng)
			intent.Cause = systems.CauseDevelopment
		case components.StageOverwintering:
			if !snap.HasOw {
				panic("sim: overwintering individual without winter state")
			}
			intent.Result = systems.StepOverwinter(b, &snap.Ow, &s.cfg.Overwinter, &s.day, scratch.rng)
			if intent.Result == systems.ResDie {
				if snap.Ow.MortTestPassed {
					intent.Cause = systems.CauseWinter
				} else {
					intent.Cause = systems.CauseEmergenceFail
				}
			}
		case components.StageFemale:
			if !snap.HasFem {
				panic("sim: adult female without reproductive state")
			}
			out := systems.StepFemale(b, &snap.Fem, s.cfg, &scratch.env, &s.day, scratch.rng)
			intent.Result = out.Result
			intent.Cause = out.Cause
			intent.HasEgg = out.HasEgg
			intent.Egg = out.Egg
			intent.HasDeplete = out.HasDeplete
			intent.Deplete = out.Deplete
			intent.Seal = out.Seal
			intent.NestStarted = out.NestStarted
		default:
			panic("sim: unknown life stage in step dispatch")
		}
	}
}
