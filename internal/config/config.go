// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Blocks     []BlockConfig    `yaml:"blocks"`
	Poll       PollConfig       `yaml:"poll"`
	Log        LogConfig        `yaml:"log"`
}

// ---- CONTROLLER ----

type ControllerConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- DATA BLOCK ----

type BlockConfig struct {
	Number       int    `yaml:"number"`
	Declarations string `yaml:"declarations"` // path; relative to the config file
	RegisterBase uint16 `yaml:"register_base"`
	Alignment    string `yaml:"alignment"` // even | byte
	StrictTypes  bool   `yaml:"strict_types"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- LOG ----

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads a YAML config file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}
