package telemetry

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/osmia/systems"
)

// YearStats is one seasonal summary row, written at the end of a run.
type YearStats struct {
	Year int `csv:"year"`

	EmergedFemales    int     `csv:"emerged_females"`
	EmergenceDayMean  float64 `csv:"emergence_day_mean"`
	EmergenceDayStd   float64 `csv:"emergence_day_std"`
	EmergenceDayP10   float64 `csv:"emergence_day_p10"`
	EmergenceDayP90   float64 `csv:"emergence_day_p90"`
	AdultMassMeanMg   float64 `csv:"adult_mass_mean_mg"`
	AdultMassStdMg    float64 `csv:"adult_mass_std_mg"`

	EggsLaid        int     `csv:"eggs_laid"`
	FemaleEggShare  float64 `csv:"female_egg_share"`
	ParasitisedRate float64 `csv:"parasitised_rate"`

	DeathsWinter     int `csv:"deaths_winter"`
	DeathsEmergence  int `csv:"deaths_emergence"`
	DeathsParasitism int `csv:"deaths_parasitism"`

	PeakPopulation int `csv:"peak_population"`
}

// YearStats summarizes every calendar year seen so far, oldest first.
func (c *Collector) YearStats() []YearStats {
	out := make([]YearStats, 0, len(c.years))
	for _, y := range c.years {
		ys := YearStats{
			Year:             y.year,
			EmergedFemales:   len(y.emergenceMasses),
			EggsLaid:         y.eggsLaid,
			DeathsWinter:     y.deaths[systems.CauseWinter],
			DeathsEmergence:  y.deaths[systems.CauseEmergenceFail],
			DeathsParasitism: y.deaths[systems.CauseParasitism],
			PeakPopulation:   y.peakPopulation,
		}
		if len(y.emergenceDays) > 0 {
			ys.EmergenceDayMean = stat.Mean(y.emergenceDays, nil)
			ys.EmergenceDayP10 = percentile(y.emergenceDays, 0.10)
			ys.EmergenceDayP90 = percentile(y.emergenceDays, 0.90)
			ys.AdultMassMeanMg = stat.Mean(y.emergenceMasses, nil)
			if len(y.emergenceDays) > 1 {
				ys.EmergenceDayStd = stat.StdDev(y.emergenceDays, nil)
				ys.AdultMassStdMg = stat.StdDev(y.emergenceMasses, nil)
			}
		}
		if y.eggsLaid > 0 {
			ys.FemaleEggShare = float64(y.femaleEggs) / float64(y.eggsLaid)
			ys.ParasitisedRate = float64(y.parasitisedEggs) / float64(y.eggsLaid)
		}
		out = append(out, ys)
	}
	return out
}

// percentile sorts a copy of the sample and interpolates the p-quantile.
func percentile(sample []float64, p float64) float64 {
	s := make([]float64, len(sample))
	copy(s, sample)
	sort.Float64s(s)
	return stat.Quantile(p, stat.Empirical, s, nil)
}
