package telemetry

import (
	"sort"

	"github.com/pthm-cable/osmia/systems"
)

// StageCounts is the per-stage census attached to daily stats.
type StageCounts struct {
	Eggs          int
	Larvae        int
	Prepupae      int
	Pupae         int
	Overwintering int
	Females       int
}

// Total returns the live population size.
func (c StageCounts) Total() int {
	return c.Eggs + c.Larvae + c.Prepupae + c.Pupae + c.Overwintering + c.Females
}

// DayStats is one daily output row.
type DayStats struct {
	Day         int     `csv:"day"`
	Date        string  `csv:"date"`
	MeanTemp    float64 `csv:"mean_temp"`
	ForageHours float64 `csv:"forage_hours"`

	Eggs          int `csv:"eggs"`
	Larvae        int `csv:"larvae"`
	Prepupae      int `csv:"prepupae"`
	Pupae         int `csv:"pupae"`
	Overwintering int `csv:"overwintering"`
	Females       int `csv:"females"`
	Total         int `csv:"total"`

	EggsLaid       int `csv:"eggs_laid"`
	EmergedFemales int `csv:"emerged_females"`
	MalesDiscarded int `csv:"males_discarded"`

	DeathsDevelopment int `csv:"deaths_development"`
	DeathsWinter      int `csv:"deaths_winter"`
	DeathsEmergence   int `csv:"deaths_emergence"`
	DeathsParasitism  int `csv:"deaths_parasitism"`
	DeathsBackground  int `csv:"deaths_background"`
	DeathsLifespan    int `csv:"deaths_lifespan"`
	DeathsNestFailure int `csv:"deaths_nest_failure"`

	NestsStarted      int     `csv:"nests_started"`
	NestsSealed       int     `csv:"nests_sealed"`
	PollenHarvestedMg float64 `csv:"pollen_harvested_mg"`
}

// yearAccum gathers one calendar year of event data for seasonal summaries.
type yearAccum struct {
	year            int
	emergenceDays   []float64 // day of year per emerged female
	emergenceMasses []float64 // adult mass per emerged female, mg
	eggsLaid        int
	femaleEggs      int
	parasitisedEggs int
	deaths          [8]int
	peakPopulation  int
}

// Collector accumulates the event counters the apply phase reports and
// flushes them into a DayStats row at the end of each day.
type Collector struct {
	// daily counters, reset by EndDay
	eggsLaid        int
	femaleEggs      int
	parasitisedEggs int
	emergenceMasses []float64
	malesDiscarded  int
	deaths          [8]int
	nestsStarted    int
	nestsSealed     int
	pollenMg        float64

	years []*yearAccum
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) RecordEggLaid(female, parasitised bool) {
	c.eggsLaid++
	if female {
		c.femaleEggs++
	}
	if parasitised {
		c.parasitisedEggs++
	}
}

func (c *Collector) RecordDeath(cause systems.DeathCause) {
	c.deaths[cause]++
}

func (c *Collector) RecordMaleDiscarded() {
	c.malesDiscarded++
}

// RecordEmergence logs one female reaching adulthood at the given mass.
func (c *Collector) RecordEmergence(massMg float64) {
	c.emergenceMasses = append(c.emergenceMasses, massMg)
}

func (c *Collector) RecordNestStarted() {
	c.nestsStarted++
}

func (c *Collector) RecordNestSealed() {
	c.nestsSealed++
}

// RecordHarvest logs pollen removed from the landscape, in milligrams.
func (c *Collector) RecordHarvest(mg float64) {
	c.pollenMg += mg
}

// EndDay flushes the daily counters into a stats row, folds the day's
// events into the running yearly summary, and resets for the next day.
func (c *Collector) EndDay(day int, ctx systems.DayContext, counts StageCounts) DayStats {
	stats := DayStats{
		Day:         day,
		Date:        ctx.Date.Format("2006-01-02"),
		MeanTemp:    ctx.MeanTemp,
		ForageHours: ctx.ForageHours,

		Eggs:          counts.Eggs,
		Larvae:        counts.Larvae,
		Prepupae:      counts.Prepupae,
		Pupae:         counts.Pupae,
		Overwintering: counts.Overwintering,
		Females:       counts.Females,
		Total:         counts.Total(),

		EggsLaid:       c.eggsLaid,
		EmergedFemales: len(c.emergenceMasses),
		MalesDiscarded: c.malesDiscarded,

		DeathsDevelopment: c.deaths[systems.CauseDevelopment],
		DeathsWinter:      c.deaths[systems.CauseWinter],
		DeathsEmergence:   c.deaths[systems.CauseEmergenceFail],
		DeathsParasitism:  c.deaths[systems.CauseParasitism],
		DeathsBackground:  c.deaths[systems.CauseBackground],
		DeathsLifespan:    c.deaths[systems.CauseLifespan],
		DeathsNestFailure: c.deaths[systems.CauseNestFailure],

		NestsStarted:      c.nestsStarted,
		NestsSealed:       c.nestsSealed,
		PollenHarvestedMg: c.pollenMg,
	}

	y := c.yearFor(ctx.Date.Year())
	for _, m := range c.emergenceMasses {
		y.emergenceDays = append(y.emergenceDays, float64(ctx.DayOfYear))
		y.emergenceMasses = append(y.emergenceMasses, m)
	}
	y.eggsLaid += c.eggsLaid
	y.femaleEggs += c.femaleEggs
	y.parasitisedEggs += c.parasitisedEggs
	for i := range c.deaths {
		y.deaths[i] += c.deaths[i]
	}
	if t := counts.Total(); t > y.peakPopulation {
		y.peakPopulation = t
	}

	c.eggsLaid = 0
	c.femaleEggs = 0
	c.parasitisedEggs = 0
	c.emergenceMasses = c.emergenceMasses[:0]
	c.malesDiscarded = 0
	c.deaths = [8]int{}
	c.nestsStarted = 0
	c.nestsSealed = 0
	c.pollenMg = 0

	return stats
}

func (c *Collector) yearFor(year int) *yearAccum {
	for _, y := range c.years {
		if y.year == year {
			return y
		}
	}
	y := &yearAccum{year: year}
	c.years = append(c.years, y)
	sort.Slice(c.years, func(i, j int) bool { return c.years[i].year < c.years[j].year })
	return y
}
