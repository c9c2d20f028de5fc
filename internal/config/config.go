// Package config loads noesis configuration from YAML with sensible
// defaults for every field, so a missing or partial config file still
// yields a runnable system.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all noesis configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Engine    EngineConfig    `yaml:"engine"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// EngineConfig configures the reasoning engine.
type EngineConfig struct {
	MaxSteps            int           `yaml:"max_steps"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	CacheSize           int           `yaml:"cache_size"`
	MinVerifyConfidence float64       `yaml:"min_verify_confidence"`
}

// RetrievalConfig configures the multi-topic retriever.
type RetrievalConfig struct {
	MaxTopics       int           `yaml:"max_topics"`
	MaxPerTopic     int           `yaml:"max_per_topic"`
	PerTopicTimeout time.Duration `yaml:"per_topic_timeout"`
	MinConfidence   float64       `yaml:"min_confidence"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Name:    "noesis",
		Version: "0.1.0",
		Engine: EngineConfig{
			MaxSteps:            10,
			CacheTTL:            time.Hour,
			CacheSize:           1000,
			MinVerifyConfidence: 0.6,
		},
		Retrieval: RetrievalConfig{
			MaxTopics:       5,
			MaxPerTopic:     5,
			PerTopicTimeout: 10 * time.Second,
			MinConfidence:   0.0,
		},
		Store: StoreConfig{
			Path: ".noesis/knowledge.db",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; it returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
