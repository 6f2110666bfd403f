package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/osmia/config"
	"github.com/pthm-cable/osmia/landscape"
	"github.com/pthm-cable/osmia/sim"
	"github.com/pthm-cable/osmia/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	years := flag.Int("years", 0, "Simulated years (0 = use config)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	weatherPath := flag.String("weather", "", "Daily weather CSV (empty = synthetic weather)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *seed != 0 {
		cfg.Sim.Seed = *seed
	} else if cfg.Sim.Seed == 0 {
		cfg.Sim.Seed = time.Now().UnixNano()
	}
	if *years > 0 {
		cfg.Sim.Years = *years
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var opts []sim.Option
	if *weatherPath != "" {
		f, err := os.Open(*weatherPath)
		if err != nil {
			slog.Error("failed to open weather file", "error", err)
			os.Exit(1)
		}
		days, err := landscape.ReadWeather(f)
		f.Close()
		if err != nil {
			slog.Error("failed to parse weather file", "error", err)
			os.Exit(1)
		}
		opts = append(opts, sim.WithWeather(landscape.NewSeries(days)))
	}

	s, err := sim.New(cfg, opts...)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := out.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	days := cfg.Sim.Years * 365
	slog.Info("starting simulation",
		"seed", cfg.Sim.Seed,
		"years", cfg.Sim.Years,
		"start", cfg.Sim.Start,
		"population", s.Counts().Total(),
	)

	startWall := time.Now()
	if err := s.Run(days, out); err != nil {
		slog.Error("simulation run failed", "error", err)
		os.Exit(1)
	}

	if err := out.WriteSeasons(s.Collector().YearStats()); err != nil {
		slog.Error("failed to write season summaries", "error", err)
		os.Exit(1)
	}

	c := s.Counts()
	slog.Info("simulation finished",
		"days", days,
		"elapsed", time.Since(startWall).String(),
		"population", c.Total(),
		"overwintering", c.Overwintering,
		"females", c.Females,
	)
}
