package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/inamate/composer/internal/engine"
)

func TestLoadDefaultsMatchEngine(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine != engine.DefaultOptions() {
		t.Errorf("engine defaults drifted:\n env  %+v\n code %+v", cfg.Engine, engine.DefaultOptions())
	}
}

func TestLoadEngineOverrides(t *testing.T) {
	t.Setenv("ENGINE_GRID_SIZE", "25")
	t.Setenv("ENGINE_INERTIA_MAX_DURATION", "1s")
	t.Setenv("ENGINE_REDUCED_MOTION", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine.GridSize != 25 {
		t.Errorf("GridSize = %v, want 25", cfg.Engine.GridSize)
	}
	if cfg.Engine.InertiaMaxDuration != time.Second {
		t.Errorf("InertiaMaxDuration = %v, want 1s", cfg.Engine.InertiaMaxDuration)
	}
	if !cfg.Engine.ReducedMotion {
		t.Error("ReducedMotion should be true")
	}
}

func TestLoadRejectsOvershootingEasing(t *testing.T) {
	tests := []struct {
		easing string
		ok     bool
	}{
		{"cubicOut", true},
		{"smoothStep", true},
		{"backOut", false},
		{"elasticOut", false},
		{"bounceOut", false},
		{"wobble", false},
	}
	for _, tt := range tests {
		t.Run(tt.easing, func(t *testing.T) {
			t.Setenv("ENGINE_INERTIA_EASING", tt.easing)
			cfg, err := Load()
			if tt.ok {
				if err != nil || cfg.Engine.InertiaEasing != engine.EasingType(tt.easing) {
					t.Errorf("Load() = %+v, %v", cfg, err)
				}
				return
			}
			if !errors.Is(err, engine.ErrInvalidEasing) {
				t.Errorf("Load() error = %v, want ErrInvalidEasing", err)
			}
		})
	}
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: " http://a.test , ,http://b.test"}
	got := cfg.Origins()
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("Origins() = %q", got)
	}
}

func TestOriginPatterns(t *testing.T) {
	cfg := &Config{AllowedOrigins: "http://localhost:5173,https://edit.example.com,*"}
	got := cfg.OriginPatterns()
	want := []string{"localhost:5173", "edit.example.com", "*"}
	if len(got) != len(want) {
		t.Fatalf("OriginPatterns() = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("OriginPatterns()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.in}
			if got := cfg.SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
