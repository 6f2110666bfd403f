package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/osmia/components"
	"github.com/pthm-cable/osmia/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func warmDay(temp float64) DayContext {
	return DayContext{MeanTemp: temp, ForageHours: 8}
}

// ---------- Egg, larva, pupa ----------

func TestStepImmature_HatchDayMatchesDegreeDayTarget(t *testing.T) {
	cfg := testConfig(t)
	sc := cfg.Egg
	sc.DailyMortality = 0 // isolate the clock
	rng := rand.New(rand.NewSource(1))

	b := components.Bee{Stage: components.StageEgg}
	day := warmDay(20.0)

	// 86 dd at 20°C above a 0°C threshold: 4 days accumulate 80, day 5 crosses.
	for i := 1; i <= 4; i++ {
		if res := StepImmature(&b, &sc, &day, rng); res != ResContinue {
			t.Fatalf("day %d: expected ResContinue, got %v", i, res)
		}
	}
	if res := StepImmature(&b, &sc, &day, rng); res != ResAdvance {
		t.Errorf("day 5: expected ResAdvance at 100 accumulated dd, got %v", res)
	}
	if b.AgeDays != 5 {
		t.Errorf("expected age 5 days, got %d", b.AgeDays)
	}
}

func TestStepImmature_NoDevelopmentBelowThreshold(t *testing.T) {
	cfg := testConfig(t)
	sc := cfg.Larva
	sc.DailyMortality = 0
	rng := rand.New(rand.NewSource(1))

	b := components.Bee{Stage: components.StageLarva}
	day := warmDay(3.0) // below the 4.5°C larval threshold

	for i := 0; i < 100; i++ {
		if res := StepImmature(&b, &sc, &day, rng); res != ResContinue {
			t.Fatalf("expected ResContinue below threshold, got %v", res)
		}
	}
	if b.DevAccum != 0 {
		t.Errorf("expected no accumulation below threshold, got %f", b.DevAccum)
	}
}

func TestStepImmature_CertainMortalityDies(t *testing.T) {
	cfg := testConfig(t)
	sc := cfg.Egg
	sc.DailyMortality = 1.0
	rng := rand.New(rand.NewSource(1))

	b := components.Bee{Stage: components.StageEgg}
	day := warmDay(20.0)

	if res := StepImmature(&b, &sc, &day, rng); res != ResDie {
		t.Errorf("expected ResDie at mortality 1.0, got %v", res)
	}
}

func TestStepImmature_OpenNestBlocksDevelopment(t *testing.T) {
	cfg := testConfig(t)
	sc := cfg.Egg
	sc.DailyMortality = 1.0 // would die immediately if the gate let it through
	rng := rand.New(rand.NewSource(1))

	n := openTestNest()
	b := components.Bee{Stage: components.StageEgg, Nest: n}
	day := warmDay(20.0)

	for i := 0; i < 10; i++ {
		if res := StepImmature(&b, &sc, &day, rng); res != ResContinue {
			t.Fatalf("expected ResContinue while nest open, got %v", res)
		}
	}
	if b.DevAccum != 0 {
		t.Errorf("expected no accumulation while nest open, got %f", b.DevAccum)
	}

	n.Seal()
	if res := StepImmature(&b, &sc, &day, rng); res != ResDie {
		t.Errorf("expected mortality to apply after sealing, got %v", res)
	}
}

// ---------- Prepupa ----------

func TestStepPrepupa_PeakRateFinishesNearBaseDays(t *testing.T) {
	cfg := testConfig(t)
	pc := cfg.Prepupa
	pc.DailyMortality = 0
	rng := rand.New(rand.NewSource(1))

	b := components.Bee{Stage: components.StagePrepupa, PrepupaTarget: pc.BaseDays}
	day := DayContext{MeanTemp: 22.0, PrepupalRate: cfg.PrepupalRateAt(22.0)}

	days := 0
	for {
		days++
		res := StepPrepupa(&b, &pc, &day, rng)
		if res == ResAdvance {
			break
		}
		if res != ResContinue {
			t.Fatalf("unexpected result %v", res)
		}
		if days > 1000 {
			t.Fatal("prepupa never finished")
		}
	}

	// Rate at the 22°C optimum is 1.0 per day, so a 45-day target takes 45 days.
	if days != int(pc.BaseDays) {
		t.Errorf("expected %d days at peak rate, got %d", int(pc.BaseDays), days)
	}
}

func TestStepPrepupa_ColdSlowerThanOptimum(t *testing.T) {
	cfg := testConfig(t)
	pc := cfg.Prepupa
	pc.DailyMortality = 0

	durations := make(map[float64]int)
	for _, temp := range []float64{10.0, 22.0} {
		rng := rand.New(rand.NewSource(1))
		b := components.Bee{Stage: components.StagePrepupa, PrepupaTarget: pc.BaseDays}
		day := DayContext{MeanTemp: temp, PrepupalRate: cfg.PrepupalRateAt(temp)}
		days := 0
		for StepPrepupa(&b, &pc, &day, rng) != ResAdvance {
			days++
			if days > 10000 {
				t.Fatalf("prepupa never finished at %f°C", temp)
			}
		}
		durations[temp] = days
	}

	if durations[10.0] <= durations[22.0] {
		t.Errorf("expected slower development at 10°C: %d vs %d days",
			durations[10.0], durations[22.0])
	}
}

func TestPrepupaTargetDays_WithinSpread(t *testing.T) {
	cfg := testConfig(t)
	pc := cfg.Prepupa
	rng := rand.New(rand.NewSource(7))

	lo := pc.BaseDays * (1 - pc.TargetSpread)
	hi := pc.BaseDays * (1 + pc.TargetSpread)
	for i := 0; i < 1000; i++ {
		d := PrepupaTargetDays(&pc, rng)
		if d < lo || d > hi {
			t.Fatalf("target %f outside [%f, %f]", d, lo, hi)
		}
	}
}
