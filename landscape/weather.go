// Package landscape provides the in-memory stand-ins for the external
// landscape and weather collaborators: daily weather with hourly detail,
// the pollen/nectar grid, the forage offset mask, and the female density
// grid. The query surface matches what the bee model consumes; everything
// behind it is deliberately simple.
package landscape

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/gocarina/gocsv"
)

// Hour holds one hour of weather.
type Hour struct {
	TempC  float64
	Wind   float64 // m/s
	Precip float64 // mm
}

// DayWeather is one simulated day of weather.
type DayWeather struct {
	Date     time.Time
	MeanTemp float64
	Hours    [24]Hour
}

// WeatherProvider supplies weather by day index from the run start.
type WeatherProvider interface {
	Day(n int) DayWeather
}

// FlightLimits are the conditions under which a female can fly.
type FlightLimits struct {
	MinTempC      float64
	MaxWind       float64
	MaxPrecip     float64
	DaylightStart int
	DaylightEnd   int // exclusive
}

// ForageHours counts the daylight hours flyable under the given limits.
func ForageHours(d DayWeather, lim FlightLimits) float64 {
	hours := 0.0
	for h := lim.DaylightStart; h < lim.DaylightEnd && h < 24; h++ {
		hw := d.Hours[h]
		if hw.TempC >= lim.MinTempC && hw.Wind <= lim.MaxWind && hw.Precip <= lim.MaxPrecip {
			hours++
		}
	}
	return hours
}

// weatherRow is one daily record in a weather CSV.
type weatherRow struct {
	Date     string  `csv:"date"`
	MeanTemp float64 `csv:"mean_temp"`
	MinTemp  float64 `csv:"min_temp"`
	MaxTemp  float64 `csv:"max_temp"`
	Wind     float64 `csv:"wind"`
	Precip   float64 `csv:"precip"`
}

// ReadWeather parses daily weather records from CSV and expands each day to
// hourly detail with a standard diurnal temperature curve (coolest near
// dawn, warmest mid-afternoon). Wind and precipitation are held constant
// across the day; daily records are all the typical station data carries.
func ReadWeather(r io.Reader) ([]DayWeather, error) {
	var rows []weatherRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parsing weather csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("weather csv contains no records")
	}

	days := make([]DayWeather, len(rows))
	for i, row := range rows {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			return nil, fmt.Errorf("weather csv row %d: %w", i+1, err)
		}
		days[i] = expandDay(date, row.MeanTemp, row.MinTemp, row.MaxTemp, row.Wind, row.Precip)
	}
	return days, nil
}

// expandDay builds hourly detail from daily summary values.
func expandDay(date time.Time, mean, min, max, wind, precip float64) DayWeather {
	d := DayWeather{Date: date, MeanTemp: mean}
	amp := (max - min) / 2
	for h := 0; h < 24; h++ {
		// Minimum near 05:00, maximum near 14:00.
		d.Hours[h] = Hour{
			TempC:  mean + amp*math.Sin(2*math.Pi*(float64(h)-9.5)/24),
			Wind:   wind,
			Precip: precip,
		}
	}
	return d
}

// Series is a WeatherProvider over a fixed day list, cycling when the run
// outlasts the series.
type Series struct {
	days []DayWeather
}

// NewSeries wraps parsed weather days as a provider.
func NewSeries(days []DayWeather) *Series {
	return &Series{days: days}
}

// Day returns the weather for day n, wrapping around the series length.
// The date always follows the run calendar from the series start so wrapped
// years stay consistent.
func (s *Series) Day(n int) DayWeather {
	d := s.days[n%len(s.days)]
	d.Date = s.days[0].Date.AddDate(0, 0, n)
	return d
}
