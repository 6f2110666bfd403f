package telemetry

import (
	"testing"
	"time"

	"github.com/pthm-cable/osmia/systems"
)

func dayCtx(date time.Time) systems.DayContext {
	return systems.DayContext{
		Date:      date,
		DayOfYear: date.YearDay(),
		MeanTemp:  12.0,
	}
}

func TestEndDay_FlushesAndResets(t *testing.T) {
	c := NewCollector()
	c.RecordEggLaid(true, false)
	c.RecordEggLaid(false, true)
	c.RecordEmergence(80.0)
	c.RecordMaleDiscarded()
	c.RecordDeath(systems.CauseWinter)
	c.RecordDeath(systems.CauseBackground)
	c.RecordNestStarted()
	c.RecordNestSealed()
	c.RecordHarvest(12.5)

	date := time.Date(2020, 4, 10, 0, 0, 0, 0, time.UTC)
	counts := StageCounts{Eggs: 2, Females: 3}
	row := c.EndDay(1, dayCtx(date), counts)

	if row.EggsLaid != 2 || row.EmergedFemales != 1 || row.MalesDiscarded != 1 {
		t.Errorf("unexpected event counts: %+v", row)
	}
	if row.DeathsWinter != 1 || row.DeathsBackground != 1 || row.DeathsParasitism != 0 {
		t.Errorf("deaths bucketed wrong: %+v", row)
	}
	if row.NestsStarted != 1 || row.NestsSealed != 1 || row.PollenHarvestedMg != 12.5 {
		t.Errorf("nest counters wrong: %+v", row)
	}
	if row.Date != "2020-04-10" || row.Total != 5 {
		t.Errorf("expected date 2020-04-10 and total 5, got %s / %d", row.Date, row.Total)
	}

	// The next day starts from zero.
	next := c.EndDay(2, dayCtx(date.AddDate(0, 0, 1)), counts)
	if next.EggsLaid != 0 || next.EmergedFemales != 0 || next.DeathsWinter != 0 ||
		next.NestsStarted != 0 || next.PollenHarvestedMg != 0 {
		t.Errorf("daily counters not reset: %+v", next)
	}
}

func TestYearStats_AggregatesByCalendarYear(t *testing.T) {
	c := NewCollector()

	d1 := time.Date(2020, 4, 10, 0, 0, 0, 0, time.UTC) // day 101
	c.RecordEmergence(90.0)
	c.RecordEmergence(110.0)
	c.RecordEggLaid(true, false)
	c.RecordEggLaid(true, true)
	c.RecordEggLaid(false, false)
	c.RecordDeath(systems.CauseWinter)
	c.EndDay(1, dayCtx(d1), StageCounts{Females: 10})

	d2 := time.Date(2021, 4, 20, 0, 0, 0, 0, time.UTC)
	c.RecordEmergence(70.0)
	c.EndDay(2, dayCtx(d2), StageCounts{Females: 4})

	ys := c.YearStats()
	if len(ys) != 2 || ys[0].Year != 2020 || ys[1].Year != 2021 {
		t.Fatalf("expected sorted 2020/2021 summaries, got %+v", ys)
	}

	y := ys[0]
	if y.EmergedFemales != 2 {
		t.Errorf("expected 2 emerged in 2020, got %d", y.EmergedFemales)
	}
	if y.EmergenceDayMean != float64(d1.YearDay()) {
		t.Errorf("expected mean emergence day %d, got %f", d1.YearDay(), y.EmergenceDayMean)
	}
	if y.AdultMassMeanMg != 100.0 {
		t.Errorf("expected mean adult mass 100, got %f", y.AdultMassMeanMg)
	}
	if y.EggsLaid != 3 {
		t.Errorf("expected 3 eggs in 2020, got %d", y.EggsLaid)
	}
	if share := y.FemaleEggShare; share < 0.66 || share > 0.67 {
		t.Errorf("expected female share 2/3, got %f", share)
	}
	if rate := y.ParasitisedRate; rate < 0.33 || rate > 0.34 {
		t.Errorf("expected parasitised rate 1/3, got %f", rate)
	}
	if y.DeathsWinter != 1 {
		t.Errorf("expected 1 winter death in 2020, got %d", y.DeathsWinter)
	}
	if y.PeakPopulation != 10 {
		t.Errorf("expected peak population 10, got %d", y.PeakPopulation)
	}

	if ys[1].EmergedFemales != 1 || ys[1].PeakPopulation != 4 {
		t.Errorf("2021 summary wrong: %+v", ys[1])
	}
}
