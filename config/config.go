// Package config loads and validates the solver-wide tuning knobs used
// across the mesh, partitioning, and refinement packages.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MaxNumLevels is the compile-time cap on PartVec length (spec.md §3).
const MaxNumLevels = 4

// Config holds every tunable the mesh needs at construction time.
type Config struct {
	NumThreads          int     `yaml:"num_threads" validate:"required,gt=0"`
	NumLevels           int     `yaml:"num_levels" validate:"required,gt=0,lte=4"`
	BalanceEpsilon      float64 `yaml:"balance_epsilon" validate:"gte=0,lt=1"`
	TargetPartitionSize int     `yaml:"target_partition_size" validate:"gte=0"`
	Coarsener           string  `yaml:"coarsener" validate:"oneof=gem hem"`
	Domain              Domain  `yaml:"domain" validate:"required"`
}

// Domain bounds describe the solver's axis-aligned working box; see
// mesh.Domain for the runtime value this is converted into.
type Domain struct {
	Min []float64 `yaml:"min" validate:"required,min=1"`
	Max []float64 `yaml:"max" validate:"required,min=1"`
}

// Default returns the spec's documented defaults, minus Domain (which has
// no sane default and must always be supplied).
func Default() Config {
	return Config{
		NumThreads:     8,
		NumLevels:      2,
		BalanceEpsilon: 0.03,
		Coarsener:      "gem",
	}
}

var validate = validator.New()

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate runs struct-tag validation plus the cross-field checks tags
// alone can't express (Min/Max dimensional agreement, Min <= Max).
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	if len(cfg.Domain.Min) != len(cfg.Domain.Max) {
		return fmt.Errorf("config: domain min/max dimension mismatch: %d vs %d",
			len(cfg.Domain.Min), len(cfg.Domain.Max))
	}
	for i := range cfg.Domain.Min {
		if cfg.Domain.Min[i] > cfg.Domain.Max[i] {
			return fmt.Errorf("config: domain axis %d has min %v > max %v",
				i, cfg.Domain.Min[i], cfg.Domain.Max[i])
		}
	}
	return nil
}
