package landscape

import (
	"math"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Synthetic generates plausible multi-year weather for runs without station
// data: a seasonal temperature cycle with smooth noise anomalies, noisy wind,
// and intermittent precipitation. Temperate-lowland shape, matching the
// climate the default parameters were calibrated for.
type Synthetic struct {
	noise opensimplex.Noise
	start time.Time
}

// NewSynthetic creates a generator. The same seed reproduces the same weather.
func NewSynthetic(seed int64, start time.Time) *Synthetic {
	return &Synthetic{
		noise: opensimplex.New(seed),
		start: start,
	}
}

// Day generates the weather for day n after the start date.
func (s *Synthetic) Day(n int) DayWeather {
	date := s.start.AddDate(0, 0, n)
	doy := float64(date.YearDay())

	// Seasonal mean: ~1°C mid-January, ~18°C mid-July.
	seasonal := 9.5 - 8.5*math.Cos(2*math.Pi*(doy-15)/365)
	anomaly := s.noise.Eval2(float64(n)*0.12, 0) * 4
	mean := seasonal + anomaly

	// Wider diurnal swing under calm high-pressure anomalies.
	amp := 4 + 2*s.noise.Eval2(float64(n)*0.12, 31)
	if amp < 2 {
		amp = 2
	}

	wind := 4 + 3*s.noise.Eval2(float64(n)*0.2, 63)
	if wind < 0 {
		wind = 0
	}

	precip := 0.0
	if w := s.noise.Eval2(float64(n)*0.3, 97); w > 0.25 {
		precip = (w - 0.25) * 8
	}

	return expandDay(date, mean, mean-amp, mean+amp, wind, precip)
}
