package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/latticeworks/lgfrelax/internal/lgf"
	"github.com/latticeworks/lgfrelax/internal/relax"
)

const (
	DefaultFtol         = 1e-6
	DefaultMaxOuterIter = 51
	DefaultMaxDisp      = 1e2
	DefaultSpringK      = 10.0
	DefaultCoreSteps    = 5
	DefaultCoreGamma    = 0.1
)

type Config struct {
	Geometry   string      `yaml:"geometry"`
	LGF        string      `yaml:"lgf"`
	Mode       *int        `yaml:"mode"` // 0/1/2; unset means derive from LGF presence
	Ftol       float64     `yaml:"ftol"`
	MaxIter    int         `yaml:"max_iter"`
	MaxDisp    float64     `yaml:"max_disp"`
	ForceTable string      `yaml:"force_table"` // when set, forces come from this file
	DataDir    string      `yaml:"data_dir"`
	Model      ModelConfig `yaml:"model"`
}

type ModelConfig struct {
	SpringK   float64 `yaml:"spring_k"`
	CoreSteps int     `yaml:"core_steps"`
	CoreGamma float64 `yaml:"core_gamma"`
}

func DefaultConfig() *Config {
	return &Config{
		Ftol:    DefaultFtol,
		MaxIter: DefaultMaxOuterIter,
		MaxDisp: DefaultMaxDisp,
		DataDir: ".lgfrelax",
		Model: ModelConfig{
			SpringK:   DefaultSpringK,
			CoreSteps: DefaultCoreSteps,
			CoreGamma: DefaultCoreGamma,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", lgf.ErrConfig, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolveMode turns the optional mode flag into a relax.Mode. When the
// flag is unset the mode follows LGF resource presence: post-step if the
// file exists, disabled otherwise. An explicit flag outside 0..2 is a
// configuration error.
func (c *Config) ResolveMode() (relax.Mode, error) {
	if c.Mode == nil {
		return relax.DefaultMode(c.lgfPresent()), nil
	}
	return relax.ParseMode(*c.Mode)
}

func (c *Config) lgfPresent() bool {
	if c.LGF == "" {
		return false
	}
	_, err := os.Stat(c.LGF)
	return err == nil
}
