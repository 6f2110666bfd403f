// Package sim wires the bee population into an ECS world and drives it one
// simulated day at a time: publish the day context, step every individual in
// parallel, then apply structural changes serially.
package sim

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/osmia/components"
	"github.com/pthm-cable/osmia/config"
	"github.com/pthm-cable/osmia/landscape"
	"github.com/pthm-cable/osmia/nest"
	"github.com/pthm-cable/osmia/systems"
	"github.com/pthm-cable/osmia/telemetry"
)

// StageCounts is a per-stage population census.
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

// Simulation owns the world, the landscape stand-ins, and the daily
// scheduler.
type Simulation struct {
	cfg *config.Config
	rng *rand.Rand // master generator: seeding and serial-phase draws

	world     *ecs.World
	beeFilter *ecs.Filter1[components.Bee]
	beeMap    *ecs.Map1[components.Bee]
	owMap     *ecs.Map1[components.Overwinter]
	femMap    *ecs.Map1[components.Female]
	eggMapper *ecs.Map1[components.Bee]
	owMapper  *ecs.Map2[components.Bee, components.Overwinter]
	femMapper *ecs.Map2[components.Bee, components.Female]

	weather     landscape.WeatherProvider
	pollen      *landscape.PollenGrid
	density     *landscape.DensityGrid
	mask        *landscape.Mask
	polygons    *nest.Registry
	parasitoids landscape.ParasitoidDensitySource

	forageEnv systems.ForageEnv

	startDate time.Time
	dayIndex  int
	day       systems.DayContext
	lastMonth time.Month

	parallel  *parallelState
	collector *telemetry.Collector
	log       *slog.Logger
}

// Option adjusts simulation construction.
type Option func(*Simulation)

// WithWeather replaces the default synthetic weather generator.
func WithWeather(w landscape.WeatherProvider) Option {
	return func(s *Simulation) { s.weather = w }
}

// WithParasitoids plugs in a mechanistic parasitoid density source.
func WithParasitoids(p landscape.ParasitoidDensitySource) Option {
	return func(s *Simulation) { s.parasitoids = p }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.log = l }
}

// New builds a simulation from configuration, seeds the landscape, and
// starts the worker pool lazily on first use.
func New(cfg *config.Config, opts ...Option) (*Simulation, error) {
	start, err := time.Parse("2006-01-02", cfg.Sim.Start)
	if err != nil {
		return nil, err
	}

	world := ecs.NewWorld()
	rng := rand.New(rand.NewSource(cfg.Sim.Seed))

	s := &Simulation{
		cfg:       cfg,
		rng:       rng,
		world:     world,
		beeFilter: ecs.NewFilter1[components.Bee](world),
		beeMap:    ecs.NewMap1[components.Bee](world),
		owMap:     ecs.NewMap1[components.Overwinter](world),
		femMap:    ecs.NewMap1[components.Female](world),
		eggMapper: ecs.NewMap1[components.Bee](world),
		owMapper:  ecs.NewMap2[components.Bee, components.Overwinter](world),
		femMapper: ecs.NewMap2[components.Bee, components.Female](world),

		parasitoids: landscape.ZeroParasitoids{},
		startDate:   start,
		lastMonth:   0,
		collector:   telemetry.NewCollector(),
		log:         slog.Default(),
	}

	lc := cfg.Landscape
	s.pollen = landscape.NewPollenGrid(lc.Width, lc.Height, lc.CellSize,
		lc.PollenBaseScore, lc.PollenBaseQuality, lc.NectarBaseScore, lc.NectarBaseQuality, rng)
	s.density = landscape.NewDensityGrid(lc.Width, lc.Height, lc.DensityCellSize)
	s.mask = landscape.NewMask(cfg.Forage.Steps, cfg.Forage.StepLength, cfg.Forage.DetailHalfWidth)
	s.polygons = buildPolygons(&lc, rng)

	s.forageEnv = systems.ForageEnv{
		Pollen:  s.pollen,
		Density: s.density,
		Mask:    s.mask,
		Width:   lc.Width,
		Height:  lc.Height,
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.weather == nil {
		s.weather = landscape.NewSynthetic(cfg.Sim.Seed, start)
	}

	s.parallel = newParallelState(s)
	s.seedPopulation()
	return s, nil
}

// buildPolygons scatters nesting-habitat polygons over the landscape.
func buildPolygons(lc *config.LandscapeConfig, rng *rand.Rand) *nest.Registry {
	polys := make([]*nest.Polygon, lc.PolygonCount)
	for i := range polys {
		polys[i] = &nest.Polygon{
			ID:       i,
			X:        rng.Intn(lc.Width),
			Y:        rng.Intn(lc.Height),
			Radius:   lc.PolygonRadius,
			NestProb: lc.NestProbability,
			MaxNests: lc.MaxNestsPerBlock,
		}
	}
	return nest.NewRegistry(polys)
}

// Date returns the current simulation date.
func (s *Simulation) Date() time.Time {
	return s.startDate.AddDate(0, 0, s.dayIndex)
}

// Collector exposes the telemetry collector.
func (s *Simulation) Collector() *telemetry.Collector {
	return s.collector
}

// Counts censuses the live population by stage.
func (s *Simulation) Counts() StageCounts {
	var c StageCounts
	query := s.beeFilter.Query()
	for query.Next() {
		switch query.Get().Stage {
		case components.StageEgg:
			c.Eggs++
		case components.StageLarva:
			c.Larvae++
		case components.StagePrepupa:
			c.Prepupae++
		case components.StagePupa:
			c.Pupae++
		case components.StageOverwintering:
			c.Overwintering++
		case components.StageFemale:
			c.Females++
		}
	}
	return c
}

// AdvanceOneDay runs one full scheduler tick: publish day-level scalars,
// step all individuals, apply structural changes, record telemetry.
func (s *Simulation) AdvanceOneDay() telemetry.DayStats {
	w := s.weather.Day(s.dayIndex)
	month := w.Date.Month()

	lim := landscape.FlightLimits{
		MinTempC:      s.cfg.Forage.FlightMinTempC,
		MaxWind:       s.cfg.Forage.FlightMaxWind,
		MaxPrecip:     s.cfg.Forage.FlightMaxPrecip,
		DaylightStart: s.cfg.Forage.DaylightStart,
		DaylightEnd:   s.cfg.Forage.DaylightEnd,
	}

	oc := &s.cfg.Overwinter
	m := int(month)
	s.day = systems.DayContext{
		Date:            w.Date,
		DayOfYear:       w.Date.YearDay(),
		Month:           month,
		MeanTemp:        w.MeanTemp,
		ForageHours:     landscape.ForageHours(w, lim),
		PrepupalRate:    s.cfg.PrepupalRateAt(w.MeanTemp),
		PrewinterOver:   m >= oc.PrewinterEndMonth || m < oc.EmergenceStartMonth,
		EmergenceWindow: m >= oc.EmergenceStartMonth && m <= oc.EmergenceEndMonth,
	}

	if month != s.lastMonth {
		s.pollen.Refresh(month)
		s.lastMonth = month
	}

	s.stepAll()
	s.dayIndex++

	return s.collector.EndDay(s.dayIndex, s.day, s.countsForTelemetry())
}

func (s *Simulation) countsForTelemetry() telemetry.StageCounts {
	c := s.Counts()
	return telemetry.StageCounts{
		Eggs:          c.Eggs,
		Larvae:        c.Larvae,
		Prepupae:      c.Prepupae,
		Pupae:         c.Pupae,
		Overwintering: c.Overwintering,
		Females:       c.Females,
	}
}

// Run advances the simulation for the given number of days, writing daily
// stats through the output manager when one is set.
func (s *Simulation) Run(days int, out *telemetry.OutputManager) error {
	for i := 0; i < days; i++ {
		stats := s.AdvanceOneDay()
		if err := out.WriteDay(stats); err != nil {
			return err
		}
		if stats.Date != "" && s.Date().YearDay() == 1 {
			c := s.Counts()
			s.log.Info("year boundary",
				"date", stats.Date,
				"population", c.Total(),
				"overwintering", c.Overwintering,
			)
		}
	}
	return nil
}

// Close stops the worker pool.
func (s *Simulation) Close() {
	s.parallel.stopWorkers()
}
