package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/osmia/config"
)

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir         string
	popFile     *os.File
	seasonsFile *os.File

	// Track if headers have been written
	popHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the output
// directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	popPath := filepath.Join(dir, "population.csv")
	f, err := os.Create(popPath)
	if err != nil {
		return nil, fmt.Errorf("creating population.csv: %w", err)
	}
	om.popFile = f

	seasonsPath := filepath.Join(dir, "seasons.csv")
	f, err = os.Create(seasonsPath)
	if err != nil {
		om.popFile.Close()
		return nil, fmt.Errorf("creating seasons.csv: %w", err)
	}
	om.seasonsFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteDay writes a daily stats record to population.csv.
func (om *OutputManager) WriteDay(stats DayStats) error {
	if om == nil {
		return nil
	}

	records := []DayStats{stats}

	if !om.popHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.popFile); err != nil {
			return fmt.Errorf("writing population stats: %w", err)
		}
		om.popHeaderWritten = true
	} else {
		// Subsequent writes skip headers
		if err := gocsv.MarshalWithoutHeaders(records, om.popFile); err != nil {
			return fmt.Errorf("writing population stats: %w", err)
		}
	}

	return nil
}

// WriteSeasons writes the per-year summaries to seasons.csv, replacing any
// previous contents. Meant to be called once at the end of a run.
func (om *OutputManager) WriteSeasons(years []YearStats) error {
	if om == nil {
		return nil
	}

	if _, err := om.seasonsFile.Seek(0, 0); err != nil {
		return fmt.Errorf("rewinding seasons.csv: %w", err)
	}
	if err := om.seasonsFile.Truncate(0); err != nil {
		return fmt.Errorf("truncating seasons.csv: %w", err)
	}
	if err := gocsv.Marshal(years, om.seasonsFile); err != nil {
		return fmt.Errorf("writing seasons: %w", err)
	}

	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.popFile != nil {
		if err := om.popFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.seasonsFile != nil {
		if err := om.seasonsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
