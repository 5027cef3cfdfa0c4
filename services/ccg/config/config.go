// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads analyzer configuration from ccg.config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the config file looked up in the project root.
const ConfigFileName = "ccg.config.yaml"

// Config holds user-provided analyzer settings.
//
// Description:
//
//	Loaded from <projectRoot>/ccg.config.yaml. All fields are optional; a
//	missing config file is not an error (zero-config works out of the box).
//	Zero values fall back to defaults during Normalize.
//
// Thread Safety: Safe for concurrent reads after construction.
type Config struct {
	// Languages restricts analysis to the named languages. Empty means all
	// built-in languages (python, javascript, typescript, go).
	Languages []string `yaml:"languages"`

	// MaxFileSizeBytes is the per-file size limit. Default: 10MB.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`

	// Workers is the extraction worker count. Default: runtime.NumCPU().
	Workers int `yaml:"workers"`

	// MinConfidence is the default confidence threshold for dependency
	// queries. Default: 0 (no filtering).
	MinConfidence float64 `yaml:"min_confidence"`

	// MediumComplexity and HighComplexity set the complexity band
	// boundaries. Defaults: 7 and 10.
	MediumComplexity float64 `yaml:"medium_complexity"`
	HighComplexity   float64 `yaml:"high_complexity"`

	// EntryPatterns are glob patterns naming dead-code entry points.
	// Default: ["main", "Test*", "test_*", "init"].
	EntryPatterns []string `yaml:"entry_patterns"`

	// MaxElements caps the element index and graph arena. Default: 1M.
	MaxElements int `yaml:"max_elements"`
}

// Default returns the fully-populated default configuration.
func Default() Config {
	c := Config{}
	c.Normalize()
	return c
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	if c.MaxFileSizeBytes <= 0 {
		c.MaxFileSizeBytes = 10 * 1024 * 1024
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MediumComplexity <= 0 {
		c.MediumComplexity = 7
	}
	if c.HighComplexity <= 0 {
		c.HighComplexity = 10
	}
	if len(c.EntryPatterns) == 0 {
		c.EntryPatterns = []string{"main", "Test*", "test_*", "init"}
	}
	if c.MaxElements <= 0 {
		c.MaxElements = 1_000_000
	}
}

// Validate checks cross-field constraints after normalization.
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence %f out of range [0,1]", c.MinConfidence)
	}
	if c.HighComplexity < c.MediumComplexity {
		return fmt.Errorf("high_complexity %f below medium_complexity %f",
			c.HighComplexity, c.MediumComplexity)
	}
	return nil
}

// Load reads ccg.config.yaml from the project root.
//
// Description:
//
//	A missing file returns the defaults with no error. A present but
//	malformed file is an error: silently ignoring a typo'd config is worse
//	than failing.
func Load(projectRoot string) (Config, error) {
	if projectRoot == "" {
		return Default(), nil
	}

	configPath := filepath.Join(projectRoot, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", ConfigFileName, err)
	}
	return c, nil
}
