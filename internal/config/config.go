// Package config loads the engine's tunable parameters from a config.yaml
// file covering §6's parameter set plus store selection.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Spectrogram holds the spectrogram stage's parameters.
type Spectrogram struct {
	SampleRate int `yaml:"sample_rate"`
	WindowSize int `yaml:"window_size"`
	HopSize    int `yaml:"hop_size"`
}

// Peaks holds peak-picker tuning.
type Peaks struct {
	TimeRadius   int     `yaml:"time_radius"`
	FreqRadius   int     `yaml:"freq_radius"`
	MinMagnitude float64 `yaml:"min_magnitude"`
}

// Hashing holds the landmark hasher's tuning.
type Hashing struct {
	DeltaTMin         int `yaml:"delta_t_min"`
	DeltaTMax         int `yaml:"delta_t_max"`
	DeltaFMax         int `yaml:"delta_f_max"`
	MaxPairsPerAnchor int `yaml:"max_pairs_per_anchor"`
	FreqBits          int `yaml:"freq_bits"`
	DeltaTimeBits     int `yaml:"delta_time_bits"`
}

// Store selects and configures the index backend.
type Store struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// Matching holds matcher tuning.
type Matching struct {
	MinScore int `yaml:"min_score"`
}

// Config is the top-level document loaded from config.yaml.
type Config struct {
	Spectrogram Spectrogram `yaml:"spectrogram"`
	Peaks       Peaks       `yaml:"peaks"`
	Hashing     Hashing     `yaml:"hashing"`
	Store       Store       `yaml:"store"`
	Matching    Matching    `yaml:"matching"`
	LogLevel    string      `yaml:"log_level"`
}

// Default returns the engine's built-in parameter set: R=22050, W=2048,
// H=1024, Tr=2, Fr=5, m_min=2.0, Δt_min=1, Δt_max=50, |Δf|_max=200,
// P_max=5, Bf=10, Bt=8, S_min=100.
func Default() Config {
	return Config{
		Spectrogram: Spectrogram{SampleRate: 22050, WindowSize: 2048, HopSize: 1024},
		Peaks:       Peaks{TimeRadius: 2, FreqRadius: 5, MinMagnitude: 2.0},
		Hashing: Hashing{
			DeltaTMin: 1, DeltaTMax: 50, DeltaFMax: 200,
			MaxPairsPerAnchor: 5, FreqBits: 10, DeltaTimeBits: 8,
		},
		Store:    Store{Driver: "sqlite", DSN: "landmarkid.db"},
		Matching: Matching{MinScore: 100},
		LogLevel: "info",
	}
}

// Load reads path and overlays it onto Default(). A missing file is not an
// error: callers get the defaults, since every field has a sensible one.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
