// Package config loads the YAML configuration files consumed by the master
// and worker subcommands, using gopkg.in/yaml.v3 — already an indirect
// dependency of the teacher, promoted to direct use here for its own
// config files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Master holds master-subcommand configuration.
type Master struct {
	WeightsPath string `yaml:"weights_path"`
	Port        int    `yaml:"port"`
}

// Worker holds worker-subcommand configuration.
type Worker struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Model   string `yaml:"model"`
	Threads int    `yaml:"threads"`
}

// LoadMaster reads and parses a master.yaml-shaped file at path.
func LoadMaster(path string) (*Master, error) {
	var cfg Master
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWorker reads and parses a worker.yaml-shaped file at path.
func LoadWorker(path string) (*Worker, error) {
	var cfg Worker
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}
