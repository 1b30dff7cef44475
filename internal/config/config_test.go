package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
quiz:
  initial_batch: 8
timers:
  easy: 20
riddle_timers:
  easy: 45
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" || cfg.Quiz.InitialBatch != 8 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if override, ok := cfg.TimerOverride("easy"); !ok || override != 20 {
		t.Fatalf("expected easy override 20, got %d (%v)", override, ok)
	}
	if _, ok := cfg.TimerOverride("hard"); ok {
		t.Fatalf("unset level must not report an override")
	}
}

func TestTTLDuration(t *testing.T) {
	if d := TTLDuration("", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback, got %v", d)
	}
	if d := TTLDuration("90s", time.Minute); d != 90*time.Second {
		t.Fatalf("expected 90s, got %v", d)
	}
	if d := TTLDuration("bogus", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback on bad input, got %v", d)
	}
}

func TestRiddleTableStaysIndependent(t *testing.T) {
	cfg := Config{
		Timers:       map[string]int{"easy": 20},
		RiddleTimers: map[string]int{"easy": 45},
	}
	if got := cfg.RiddleBudget("easy"); got != 45 {
		t.Fatalf("expected riddle override 45, got %d", got)
	}
	// The riddle engine keeps its own defaults, unrelated to the play-loop table.
	if got := cfg.RiddleBudget("medium"); got != 90 {
		t.Fatalf("expected riddle default 90, got %d", got)
	}
	if got := cfg.RiddleBudget("extreme"); got != 180 {
		t.Fatalf("expected riddle default 180, got %d", got)
	}
}
