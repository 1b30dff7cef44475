package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		InitialBatch int `yaml:"initial_batch"` // questions per initial load, default 10
		ExtendCount  int `yaml:"extend_count"`  // default batch size for extensions
	} `yaml:"quiz"`
	// Timers overrides the play-loop per-level countdown, seconds per level name.
	Timers map[string]int `yaml:"timers"`
	// RiddleTimers is the budget table for the legacy riddle engine. It is
	// an independent collaborator's table; do not fold it into Timers.
	RiddleTimers map[string]int `yaml:"riddle_timers"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty
// or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

var defaultRiddleBudgets = map[string]int{
	"easy":    60,
	"medium":  90,
	"hard":    120,
	"expert":  150,
	"extreme": 180,
}

// TimerOverride returns the configured play-loop budget for a level, if any.
func (c Config) TimerOverride(level string) (int, bool) {
	seconds, ok := c.Timers[level]
	if !ok || seconds <= 0 {
		return 0, false
	}
	return seconds, true
}

// RiddleBudget returns the riddle-engine countdown for a level, falling
// back to that engine's own default table.
func (c Config) RiddleBudget(level string) int {
	if seconds, ok := c.RiddleTimers[level]; ok && seconds > 0 {
		return seconds
	}
	if seconds, ok := defaultRiddleBudgets[level]; ok {
		return seconds
	}
	return defaultRiddleBudgets["extreme"]
}
