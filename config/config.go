// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation parameters. Read-only after Init; the derived
// lookup surfaces are built once and read concurrently by all individuals.
type Config struct {
	Sim        SimConfig        `yaml:"sim"`
	Landscape  LandscapeConfig  `yaml:"landscape"`
	Egg        StageConfig      `yaml:"egg"`
	Larva      StageConfig      `yaml:"larva"`
	Pupa       StageConfig      `yaml:"pupa"`
	Prepupa    PrepupaConfig    `yaml:"prepupa"`
	Overwinter OverwinterConfig `yaml:"overwinter"`
	Female     FemaleConfig     `yaml:"female"`
	Allocation AllocationConfig `yaml:"allocation"`
	Forage     ForageConfig     `yaml:"forage"`
	Parasitism ParasitismConfig `yaml:"parasitism"`
	Seeding    SeedConfig       `yaml:"seeding"`
	Output     OutputConfig     `yaml:"output"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimConfig holds run-level settings.
type SimConfig struct {
	Years int    `yaml:"years"`
	Seed  int64  `yaml:"seed"`
	Start string `yaml:"start"` // run start date, YYYY-MM-DD; conventionally 1 January
}

// LandscapeConfig holds the in-memory landscape stand-in parameters.
type LandscapeConfig struct {
	Width             int     `yaml:"width"`  // metres
	Height            int     `yaml:"height"` // metres
	CellSize          int     `yaml:"cell_size"`
	DensityCellSize   int     `yaml:"density_cell_size"`
	PolygonCount      int     `yaml:"polygon_count"`
	PolygonRadius     int     `yaml:"polygon_radius"`
	NestProbability   float64 `yaml:"nest_probability"`
	MaxNestsPerBlock  int     `yaml:"max_nests_per_block"`
	PollenBaseScore   float64 `yaml:"pollen_base_score"`
	PollenBaseQuality float64 `yaml:"pollen_base_quality"`
	NectarBaseScore   float64 `yaml:"nectar_base_score"`
	NectarBaseQuality float64 `yaml:"nectar_base_quality"`
}

// StageConfig holds the degree-day parameters for egg, larva and pupa.
// Threshold and total are a coupled calibration unit: thresholds sit below
// laboratory values and totals above, so development does not stall under
// fluctuating field temperatures.
type StageConfig struct {
	ThresholdC     float64 `yaml:"threshold_c"`
	TotalDD        float64 `yaml:"total_dd"`
	DailyMortality float64 `yaml:"daily_mortality"`
}

// PrepupaConfig holds the time-based prepupal development parameters.
// The stage deliberately diverges from the degree-day model: there is no
// usable temperature-response curve for it, so elapsed days scale by a
// temperature-indexed rate table instead.
type PrepupaConfig struct {
	BaseDays       float64   `yaml:"base_days"`
	TargetSpread   float64   `yaml:"target_spread"` // ±fraction on the per-individual target
	DailyMortality float64   `yaml:"daily_mortality"`
	DevelRates     []float64 `yaml:"devel_rates"` // daily rate by whole °C, index 0..len-1
}

// OverwinterConfig holds the three-phase overwintering and emergence model.
type OverwinterConfig struct {
	PrewinterThresholdC float64 `yaml:"prewinter_threshold_c"`
	WinterThresholdC    float64 `yaml:"winter_threshold_c"`
	EmergenceThresholdC float64 `yaml:"emergence_threshold_c"`

	EmergenceConst float64 `yaml:"emergence_const"`
	EmergenceSlope float64 `yaml:"emergence_slope"` // negative: warm winters shorten the spring wait

	// Winter mortality at emergence readiness: p = slope*prewinterDD + const,
	// clamped to [0,1]. More autumn warmth depletes reserves, raising mortality.
	MortSlope float64 `yaml:"mort_slope"`
	MortConst float64 `yaml:"mort_const"`

	// Relative frequencies of individual emergence-date offsets, index = days.
	EmergenceSpread []float64 `yaml:"emergence_spread"`

	PrewinterEndMonth   int `yaml:"prewinter_end_month"`   // month deep winter begins
	EmergenceStartMonth int `yaml:"emergence_start_month"` // month the spring countdown starts
	EmergenceEndMonth   int `yaml:"emergence_end_month"`   // last month emergence is possible

	MicrositeDelayMax float64 `yaml:"microsite_delay_max"` // nest aspect delay, uniform 0..max days
}

// FemaleConfig holds the reproductive state machine parameters.
type FemaleConfig struct {
	PrenestingDays  int     `yaml:"prenesting_days"`
	MaxLifespanDays int     `yaml:"max_lifespan_days"`
	DailyMortality  float64 `yaml:"daily_mortality"`

	// Lifetime egg capacity: nests * (slope*mass + intercept) ± jitter.
	FecunditySlope     float64 `yaml:"fecundity_slope"`
	FecundityIntercept float64 `yaml:"fecundity_intercept"`
	FecundityJitter    float64 `yaml:"fecundity_jitter"`

	TotalNestsPossible int `yaml:"total_nests_possible"`
	MinEggsPerNest     int `yaml:"min_eggs_per_nest"`
	MaxEggsPerNest     int `yaml:"max_eggs_per_nest"`
	NestAttempts       int `yaml:"nest_attempts"`
	MaxDispersals      int `yaml:"max_dispersals"`

	HomingDistance   int     `yaml:"homing_distance"`   // metres, local search radius
	DispersalFactor  float64 `yaml:"dispersal_factor"`  // dispersal range as multiple of homing
	MaxCellOpenDays  int     `yaml:"max_cell_open_days"`

	AdultMassSlope float64 `yaml:"adult_mass_slope"` // adult mg per provision mg
	AdultMassConst float64 `yaml:"adult_mass_const"`

	CocoonMassMin      float64 `yaml:"cocoon_mass_min"` // female cocoon clamp, mg
	CocoonMassMax      float64 `yaml:"cocoon_mass_max"`
	MaleProvisionMin   float64 `yaml:"male_provision_min"` // mg
	MaleProvisionMax   float64 `yaml:"male_provision_max"`
	ProvisionPerCocoon float64 `yaml:"provision_per_cocoon"` // provision mg per cocoon mg
	LifetimeCocoonLoss float64 `yaml:"lifetime_cocoon_loss"` // mg decline first to last offspring
}

// AllocationConfig holds the sex-ratio and cocoon-mass allocation surfaces.
// Logistic parameters are {c, a, b, d} in b + (a-b)/(1+exp(-d*(age-c))).
type AllocationConfig struct {
	SexAgeLogistic         []float64 `yaml:"sex_age_logistic"`
	SexMassLinear          []float64 `yaml:"sex_mass_linear"` // {slope, intercept}
	CocoonAgeLogistic      []float64 `yaml:"cocoon_age_logistic"`
	CocoonMotherMassLinear []float64 `yaml:"cocoon_mother_mass_linear"`

	// Asymmetric multiplicative noise on female provision targets:
	// target -= Beta(alpha, beta) * target * scale.
	NoiseAlpha float64 `yaml:"noise_alpha"`
	NoiseBeta  float64 `yaml:"noise_beta"`
	NoiseScale float64 `yaml:"noise_scale"`

	MassClassWidth float64 `yaml:"mass_class_width"` // mg per surface mass class
	MaxMass        float64 `yaml:"max_mass"`         // mg, surface upper bound
	MaxAge         int     `yaml:"max_age"`          // days, surface upper bound
}

// MonthThresholds is the patch acceptance tuple for one calendar month.
type MonthThresholds struct {
	PollenQuantity float64 `yaml:"pollen_quantity"`
	PollenQuality  float64 `yaml:"pollen_quality"`
	NectarQuantity float64 `yaml:"nectar_quantity"`
	NectarQuality  float64 `yaml:"nectar_quality"`
}

// ForageConfig holds search-mask, patch give-up and flight-weather parameters.
type ForageConfig struct {
	Steps           int `yaml:"steps"`             // mask rings
	StepLength      int `yaml:"step_length"`       // metres per ring
	DetailHalfWidth int `yaml:"detail_half_width"` // metres, lateral mask bound

	GiveUpThreshold     float64 `yaml:"give_up_threshold"` // proportional, of initial patch pollen
	GiveUpReturn        float64 `yaml:"give_up_return"`    // mg, minimum acceptable daily yield
	ScoreToMg           float64 `yaml:"score_to_mg"`
	DensityRemovalConst float64 `yaml:"density_removal_const"` // competition per female per km²

	FlightMinTempC  float64 `yaml:"flight_min_temp_c"`
	FlightMaxWind   float64 `yaml:"flight_max_wind"`   // m/s
	FlightMaxPrecip float64 `yaml:"flight_max_precip"` // mm/h
	DaylightStart   int     `yaml:"daylight_start"`    // hour
	DaylightEnd     int     `yaml:"daylight_end"`      // hour, exclusive

	// Age-efficiency curve shape: ramp to full efficiency, plateau, senescent
	// decline to a floor at max age.
	EfficiencyRampDays    int     `yaml:"efficiency_ramp_days"`
	EfficiencyDeclineFrom int     `yaml:"efficiency_decline_from"`
	EfficiencyFloor       float64 `yaml:"efficiency_floor"`

	MonthThresholds []MonthThresholds `yaml:"month_thresholds"` // 12 entries, January first
}

// ParasitismConfig holds the probability-based parasitism model.
type ParasitismConfig struct {
	RiskPerOpenDay float64 `yaml:"risk_per_open_day"`
	BombylidProb   float64 `yaml:"bombylid_prob"`

	// Per-capita attack rates for callers plugging in a mechanistic
	// parasitoid density source; unused with the default zero source.
	PerCapitaAttack []float64 `yaml:"per_capita_attack"`
}

// SeedConfig holds the initial overwintering cohort parameters.
type SeedConfig struct {
	InitialCount       int     `yaml:"initial_count"`
	FemaleFraction     float64 `yaml:"female_fraction"`
	CocoonMassMin      float64 `yaml:"cocoon_mass_min"` // mg
	CocoonMassMax      float64 `yaml:"cocoon_mass_max"`
	InitialPrewinterDD float64 `yaml:"initial_prewinter_dd"`
}

// OutputConfig holds telemetry output settings.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// DerivedConfig holds lookup surfaces computed once after loading.
type DerivedConfig struct {
	MassClasses      int
	SexRatioSurface  [][]float64 // [massClass][age] probability next egg is female
	CocoonMassSurf   [][]float64 // [massClass][age] target female cocoon mass, mg
	AgeEfficiency    []float64   // [age] foraging efficiency 0..1
	EmergeSpreadCDF  []float64   // cumulative emergence-offset distribution
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Allocation.SexAgeLogistic) != 4 || len(c.Allocation.CocoonAgeLogistic) != 4 {
		return fmt.Errorf("allocation: logistic parameter sets need 4 values")
	}
	if len(c.Allocation.SexMassLinear) != 2 || len(c.Allocation.CocoonMotherMassLinear) != 2 {
		return fmt.Errorf("allocation: linear parameter sets need 2 values")
	}
	if len(c.Forage.MonthThresholds) != 12 {
		return fmt.Errorf("forage: month_thresholds needs 12 entries, got %d", len(c.Forage.MonthThresholds))
	}
	if len(c.Prepupa.DevelRates) == 0 {
		return fmt.Errorf("prepupa: devel_rates must not be empty")
	}
	if len(c.Overwinter.EmergenceSpread) == 0 {
		return fmt.Errorf("overwinter: emergence_spread must not be empty")
	}
	return nil
}

// computeDerived builds the allocation surfaces and lookup curves.
func (c *Config) computeDerived() {
	a := &c.Allocation
	classes := int(a.MaxMass/a.MassClassWidth) + 1
	ages := a.MaxAge + 1

	c.Derived.MassClasses = classes
	c.Derived.SexRatioSurface = make([][]float64, classes)
	c.Derived.CocoonMassSurf = make([][]float64, classes)

	for m := 0; m < classes; m++ {
		mass := (float64(m) + 0.5) * a.MassClassWidth
		sexRow := make([]float64, ages)
		cocoonRow := make([]float64, ages)
		for age := 0; age < ages; age++ {
			sexAge := logistic4(a.SexAgeLogistic, float64(age))
			sexMass := a.SexMassLinear[0]*mass + a.SexMassLinear[1]
			sexRow[age] = clamp01((sexAge + sexMass) / 2)

			cocoonAge := logistic4(a.CocoonAgeLogistic, float64(age))
			cocoonMass := a.CocoonMotherMassLinear[0]*mass + a.CocoonMotherMassLinear[1]
			cocoonRow[age] = (cocoonAge + cocoonMass) / 2
		}
		c.Derived.SexRatioSurface[m] = sexRow
		c.Derived.CocoonMassSurf[m] = cocoonRow
	}

	// Foraging efficiency by age since emergence.
	eff := make([]float64, c.Female.MaxLifespanDays+1)
	ramp := c.Forage.EfficiencyRampDays
	declineFrom := c.Forage.EfficiencyDeclineFrom
	floor := c.Forage.EfficiencyFloor
	for age := range eff {
		switch {
		case age < ramp:
			eff[age] = float64(age+1) / float64(ramp)
		case age < declineFrom:
			eff[age] = 1.0
		default:
			span := float64(c.Female.MaxLifespanDays - declineFrom + 1)
			frac := float64(age-declineFrom+1) / span
			eff[age] = 1.0 - frac*(1.0-floor)
		}
	}
	c.Derived.AgeEfficiency = eff

	// Cumulative emergence-offset distribution, normalized.
	spread := c.Overwinter.EmergenceSpread
	cdf := make([]float64, len(spread))
	total := 0.0
	for _, w := range spread {
		total += w
	}
	acc := 0.0
	for i, w := range spread {
		acc += w / total
		cdf[i] = acc
	}
	c.Derived.EmergeSpreadCDF = cdf
}

// SexRatioAt returns the probability the next egg is female for a mother of
// the given mass (mg) and age since emergence (days).
func (c *Config) SexRatioAt(mass float64, age int) float64 {
	return c.Derived.SexRatioSurface[c.massClass(mass)][c.ageIndex(age)]
}

// CocoonMassAt returns the target female cocoon mass (mg) for a mother of
// the given mass and age.
func (c *Config) CocoonMassAt(mass float64, age int) float64 {
	return c.Derived.CocoonMassSurf[c.massClass(mass)][c.ageIndex(age)]
}

// AgeEfficiencyAt returns the foraging efficiency for a female age.
func (c *Config) AgeEfficiencyAt(age int) float64 {
	if age < 0 {
		age = 0
	}
	if age >= len(c.Derived.AgeEfficiency) {
		age = len(c.Derived.AgeEfficiency) - 1
	}
	return c.Derived.AgeEfficiency[age]
}

// PrepupalRateAt returns the prepupal daily development rate for a mean
// temperature, clamping outside the table range.
func (c *Config) PrepupalRateAt(tempC float64) float64 {
	idx := int(tempC)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.Prepupa.DevelRates) {
		idx = len(c.Prepupa.DevelRates) - 1
	}
	return c.Prepupa.DevelRates[idx]
}

func (c *Config) massClass(mass float64) int {
	m := int(mass / c.Allocation.MassClassWidth)
	if m < 0 {
		m = 0
	}
	if m >= c.Derived.MassClasses {
		m = c.Derived.MassClasses - 1
	}
	return m
}

func (c *Config) ageIndex(age int) int {
	if age < 0 {
		age = 0
	}
	if age > c.Allocation.MaxAge {
		age = c.Allocation.MaxAge
	}
	return age
}

// logistic4 evaluates b + (a-b)/(1+exp(-d*(x-c))) with params {c, a, b, d}.
func logistic4(p []float64, x float64) float64 {
	return p[2] + (p[1]-p[2])/(1+math.Exp(-p[3]*(x-p[0])))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
