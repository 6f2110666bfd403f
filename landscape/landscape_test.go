package landscape

import (
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"
)

func defaultLimits() FlightLimits {
	return FlightLimits{
		MinTempC:      6.0,
		MaxWind:       8.0,
		MaxPrecip:     0.1,
		DaylightStart: 6,
		DaylightEnd:   20,
	}
}

// ---------- Flight hours ----------

func TestForageHours_AllDaylightFlyable(t *testing.T) {
	d := expandDay(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), 15.0, 12.0, 18.0, 2.0, 0)
	h := ForageHours(d, defaultLimits())
	if h != 14 {
		t.Errorf("expected all 14 daylight hours flyable, got %f", h)
	}
}

func TestForageHours_ColdOrWetGroundsFlight(t *testing.T) {
	lim := defaultLimits()

	cold := expandDay(time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC), 0.0, -3.0, 3.0, 2.0, 0)
	if h := ForageHours(cold, lim); h != 0 {
		t.Errorf("expected 0 flyable hours on a cold day, got %f", h)
	}

	wet := expandDay(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), 15.0, 12.0, 18.0, 2.0, 5.0)
	if h := ForageHours(wet, lim); h != 0 {
		t.Errorf("expected 0 flyable hours in rain, got %f", h)
	}

	windy := expandDay(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), 15.0, 12.0, 18.0, 12.0, 0)
	if h := ForageHours(windy, lim); h != 0 {
		t.Errorf("expected 0 flyable hours in high wind, got %f", h)
	}
}

func TestForageHours_MarginalDayPartial(t *testing.T) {
	// Mean at the threshold with diurnal amplitude: warm afternoon hours
	// qualify, cool morning hours do not.
	d := expandDay(time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC), 6.0, 2.0, 10.0, 2.0, 0)
	h := ForageHours(d, defaultLimits())
	if h <= 0 || h >= 14 {
		t.Errorf("expected partial flyable day, got %f", h)
	}
}

func TestExpandDay_DiurnalShape(t *testing.T) {
	d := expandDay(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), 10.0, 5.0, 15.0, 2.0, 0)

	if d.Hours[14].TempC <= d.Hours[5].TempC {
		t.Errorf("afternoon (%f) should be warmer than dawn (%f)",
			d.Hours[14].TempC, d.Hours[5].TempC)
	}
	for h, hw := range d.Hours {
		if hw.TempC < 5.0-1e-9 || hw.TempC > 15.0+1e-9 {
			t.Errorf("hour %d temperature %f outside [min, max]", h, hw.TempC)
		}
	}
}

// ---------- Weather CSV ----------

func TestReadWeather_ParsesRecords(t *testing.T) {
	csv := strings.Join([]string{
		"date,mean_temp,min_temp,max_temp,wind,precip",
		"2020-01-01,2.5,-1.0,6.0,3.0,0.0",
		"2020-01-02,3.0,0.0,6.5,4.0,1.2",
	}, "\n")

	days, err := ReadWeather(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].MeanTemp != 2.5 {
		t.Errorf("expected mean 2.5, got %f", days[0].MeanTemp)
	}
	if days[1].Date != time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC) {
		t.Errorf("unexpected date %v", days[1].Date)
	}
	if days[1].Hours[12].Precip != 1.2 {
		t.Errorf("expected precip carried to hours, got %f", days[1].Hours[12].Precip)
	}
}

func TestReadWeather_RejectsBadDateAndEmpty(t *testing.T) {
	bad := "date,mean_temp,min_temp,max_temp,wind,precip\n01/05/2020,2.5,-1.0,6.0,3.0,0.0"
	if _, err := ReadWeather(strings.NewReader(bad)); err == nil {
		t.Error("expected error for unparseable date")
	}

	empty := "date,mean_temp,min_temp,max_temp,wind,precip\n"
	if _, err := ReadWeather(strings.NewReader(empty)); err == nil {
		t.Error("expected error for empty weather series")
	}
}

func TestSeries_WrapsWithRunCalendar(t *testing.T) {
	csv := strings.Join([]string{
		"date,mean_temp,min_temp,max_temp,wind,precip",
		"2020-01-01,1.0,0.0,2.0,3.0,0.0",
		"2020-01-02,2.0,1.0,3.0,3.0,0.0",
		"2020-01-03,3.0,2.0,4.0,3.0,0.0",
	}, "\n")
	days, err := ReadWeather(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := NewSeries(days)

	if got := s.Day(4).MeanTemp; got != 2.0 {
		t.Errorf("expected day 4 to wrap to record 1 (mean 2.0), got %f", got)
	}
	want := time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)
	if got := s.Day(4).Date; got != want {
		t.Errorf("wrapped day should follow the run calendar: got %v, want %v", got, want)
	}
}

// ---------- Synthetic weather ----------

func TestSynthetic_SeasonalCycleAndDeterminism(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewSynthetic(42, start)
	b := NewSynthetic(42, start)

	if a.Day(100).MeanTemp != b.Day(100).MeanTemp {
		t.Error("same seed must reproduce the same weather")
	}

	winter := a.Day(15).MeanTemp  // mid January
	summer := a.Day(196).MeanTemp // mid July
	if summer <= winter {
		t.Errorf("expected summer (%f) warmer than winter (%f)", summer, winter)
	}

	if got := a.Day(31).Date; got != start.AddDate(0, 0, 31) {
		t.Errorf("expected date to track the run calendar, got %v", got)
	}
}

// ---------- Mask ----------

func TestNewMask_NearestFirstAndBounded(t *testing.T) {
	m := NewMask(20, 50, 600)
	offs := m.Offsets()
	if len(offs) == 0 {
		t.Fatal("expected a non-empty mask")
	}

	if offs[0].DX != 0 || offs[0].DY != 0 {
		t.Errorf("expected the origin first, got (%d, %d)", offs[0].DX, offs[0].DY)
	}

	maxDist := 20 * 50
	prev := -1
	for _, o := range offs {
		d2 := o.DX*o.DX + o.DY*o.DY
		if d2 < prev {
			t.Fatal("offsets are not ordered nearest first")
		}
		prev = d2
		if d2 > maxDist*maxDist {
			t.Fatalf("offset (%d, %d) beyond flight radius", o.DX, o.DY)
		}
		if o.DX%50 != 0 || o.DY%50 != 0 {
			t.Fatalf("offset (%d, %d) off the step grid", o.DX, o.DY)
		}
	}
}

// ---------- Pollen grid ----------

func TestPollenGrid_BloomAndDepletion(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	g := NewPollenGrid(500, 500, 50, 10.0, 1.0, 10.0, 1.0, rng)

	g.Refresh(time.May)
	may := g.At(250, 250).Pollen
	if may <= 0 {
		t.Fatal("expected pollen at peak bloom")
	}

	g.Refresh(time.January)
	jan := g.At(250, 250).Pollen
	if jan >= may {
		t.Errorf("expected January (%f) below May (%f)", jan, may)
	}

	g.Refresh(time.May)
	g.Deplete(250, 250, may/2)
	if got := g.At(250, 250).Pollen; math.Abs(got-may/2) > 1e-9 {
		t.Errorf("expected half remaining after depletion, got %f", got)
	}

	g.Deplete(250, 250, 1e9)
	if got := g.At(250, 250).Pollen; got != 0 {
		t.Errorf("expected depletion clamped at zero, got %f", got)
	}
}

func TestPollenGrid_FertilityPersistsAcrossRefresh(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	g := NewPollenGrid(500, 500, 50, 10.0, 1.0, 10.0, 1.0, rng)

	g.Refresh(time.May)
	first := g.At(120, 380).Pollen
	g.Refresh(time.May)
	second := g.At(120, 380).Pollen

	if first != second {
		t.Errorf("per-cell fertility should be fixed: %f vs %f", first, second)
	}
}

// ---------- Density grid ----------

func TestDensityGrid_CountsPerCoarseCell(t *testing.T) {
	g := NewDensityGrid(3000, 3000, 1000)

	g.Inc(100, 100)
	g.Inc(900, 900) // same 1 km cell
	g.Inc(2500, 100)

	if d := g.Density(500, 500); d != 2 {
		t.Errorf("expected density 2 in the first cell, got %f", d)
	}
	if d := g.Density(2500, 900); d != 1 {
		t.Errorf("expected density 1 in the far cell, got %f", d)
	}

	g.Dec(100, 100)
	if d := g.Density(500, 500); d != 1 {
		t.Errorf("expected density 1 after release, got %f", d)
	}
}
