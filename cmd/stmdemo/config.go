package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// demoConfig is the subset of stm.Config a user might reasonably want to
// override from a file instead of flags.
type demoConfig struct {
	Variant      string `yaml:"variant"`
	TableLogSize int    `yaml:"table_log_size"`
	MaxThreads   int    `yaml:"max_threads"`
	Verbose      bool   `yaml:"verbose"`
}

func loadDemoConfig(path string) (demoConfig, error) {
	cfg := demoConfig{Variant: "ctl", TableLogSize: 16, MaxThreads: 64}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
