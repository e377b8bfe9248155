package suppressor

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Metric selects the similarity measure used by the lag search.
type Metric string

const (
	// MetricNCC scores candidate lags by normalized cross-correlation.
	MetricNCC Metric = "ncc"

	// MetricAMDF scores candidate lags by an absolute-difference measure.
	// Cheaper than NCC (no multiplies in the inner loop) and less sensitive
	// to clipped peaks.
	MetricAMDF Metric = "amdf"
)

// IsValid reports whether m is a recognised metric.
func (m Metric) IsValid() bool {
	return m == MetricNCC || m == MetricAMDF
}

// Config holds the tuning parameters of the echo suppressor. It is immutable
// for the lifetime of a Suppressor; build a new instance to retune.
type Config struct {
	// SimilarityThreshold is the score above which a candidate lag counts as
	// an echo match.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// PowerRatioCeiling guards against muting genuine near-end speech: echo
	// is only declared while micPower < PowerRatioCeiling * referencePower
	// at the winning lag.
	PowerRatioCeiling float64 `yaml:"power_ratio_ceiling"`

	// AttenuationDB is the gain applied while suppressing, in dB.
	AttenuationDB float64 `yaml:"attenuation_db"`

	// HangoverBlocks extends suppression after the last positive detection
	// to bridge momentary drop-outs in detectability.
	HangoverBlocks int `yaml:"hangover_blocks"`

	// Attack is the smoothing coefficient while the gate closes (muting).
	// Release is used while it opens. Attack should be the faster of the two:
	// muting must engage quickly, recovery must not pump audibly.
	Attack  float64 `yaml:"attack"`
	Release float64 `yaml:"release"`

	// Metric selects the lag search similarity measure.
	Metric Metric `yaml:"metric"`

	// MaxLagMS bounds the lag search window, in milliseconds.
	MaxLagMS int `yaml:"max_lag_ms"`

	// LagStepMS is the spacing between candidate lags, in milliseconds.
	LagStepMS int `yaml:"lag_step_ms"`
}

// DefaultConfig returns the reference tuning: 10 ms blocks gated at -80 dB,
// 200 ms hangover, 80 ms lag search at 1 ms steps.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.6,
		PowerRatioCeiling:   1.3,
		AttenuationDB:       -80.0,
		HangoverBlocks:      20,
		Attack:              0.1,
		Release:             0.01,
		Metric:              MetricNCC,
		MaxLagMS:            80,
		LagStepMS:           1,
	}
}

// LoadConfig reads a YAML tuning file at path, layered over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("tuning: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadConfigFromReader(f)
	if err != nil {
		return Config{}, fmt.Errorf("tuning: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFromReader decodes a YAML tuning document from r. Fields absent
// from the document keep their DefaultConfig values; unknown fields are an
// error.
func LoadConfigFromReader(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("tuning: decode yaml: %w", err)
	}
	if !cfg.Metric.IsValid() {
		return Config{}, fmt.Errorf("tuning: metric %q is invalid; valid values: ncc, amdf", cfg.Metric)
	}
	return cfg, nil
}
