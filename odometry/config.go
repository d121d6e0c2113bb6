package odometry

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Config holds the constructor-scoped tuning constants for a LaserOdometry
// instance. None of these are mutable after construction.
type Config struct {
	// ScanPeriod is the duration, in seconds, of one full sensor sweep.
	ScanPeriod float64 `json:"scan_period"`
	// MaxIterations bounds the Gauss-Newton loop per sweep.
	MaxIterations int `json:"max_iterations"`
	// DeltaTAbort is the translation convergence threshold, in centimeters.
	DeltaTAbort float64 `json:"delta_t_abort_cm"`
	// DeltaRAbort is the rotation convergence threshold, in degrees.
	DeltaRAbort float64 `json:"delta_r_abort_deg"`
}

// DefaultConfig returns the reference tuning constants: a 0.1s sweep
// period, at most 25 Gauss-Newton iterations, and 0.1cm/0.1deg
// convergence thresholds.
func DefaultConfig() Config {
	return Config{
		ScanPeriod:    0.1,
		MaxIterations: 25,
		DeltaTAbort:   0.1,
		DeltaRAbort:   0.1,
	}
}

// withDefaults fills in zero-valued fields with DefaultConfig's values,
// so callers can supply a partial Config{} and still get sane behavior.
func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.ScanPeriod == 0 {
		c.ScanPeriod = defaults.ScanPeriod
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = defaults.MaxIterations
	}
	if c.DeltaTAbort == 0 {
		c.DeltaTAbort = defaults.DeltaTAbort
	}
	if c.DeltaRAbort == 0 {
		c.DeltaRAbort = defaults.DeltaRAbort
	}
	return c
}

// LoadConfig loads a Config from a JSON file, for integrators that keep
// odometry tuning constants alongside the rest of their pipeline's config.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "opening odometry config")
	}
	defer f.Close() //nolint:errcheck

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding odometry config")
	}
	cfg = cfg.withDefaults()
	return &cfg, nil
}
