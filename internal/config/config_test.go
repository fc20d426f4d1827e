package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadTuning(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"zero sub-steps", func(c *AppConfig) { c.Physics.SubSteps = 0 }, "sub_steps"},
		{"drag above one", func(c *AppConfig) { c.Physics.Drag = 1.5 }, "drag"},
		{"lossless walls", func(c *AppConfig) { c.Physics.WallDamping = 1 }, "wall_damping"},
		{"goal touches ceiling", func(c *AppConfig) { c.Arena.GoalCenterMin = 0 }, "goal centre"},
		{"goal touches floor", func(c *AppConfig) { c.Arena.GoalCenterMax = c.Arena.Height }, "goal centre"},
		{"inverted respawn speed", func(c *AppConfig) { c.Arena.RespawnSpeedMin = 10 }, "respawn speed"},
		{"negative restitution", func(c *AppConfig) { c.Physics.Restitution = -0.5 }, "restitution"},
		{"runaway restitution", func(c *AppConfig) { c.Physics.Restitution = 3 }, "restitution"},
		{"negative nudge", func(c *AppConfig) { c.Physics.Nudge = -1 }, "nudge"},
		{"negative margin", func(c *AppConfig) { c.Physics.CollisionMargin = -1 }, "collision_margin"},
		{"negative push buffer", func(c *AppConfig) { c.Physics.PushBuffer = -1 }, "push_buffer"},
		{"inverted respawn angle", func(c *AppConfig) { c.Arena.RespawnAngleMin = 0 }, "respawn angle"},
		{"no decay threshold", func(c *AppConfig) { c.Arena.ComboDecayFloorHits = 0 }, "combo_decay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	data := []byte("physics:\n  restitution: 1.2\n  drag: 1\narena:\n  width_per_player: 150\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Physics.Restitution != 1.2 {
		t.Errorf("restitution = %v, want 1.2", cfg.Physics.Restitution)
	}
	if cfg.Physics.Drag != 1 {
		t.Errorf("drag = %v, want 1", cfg.Physics.Drag)
	}
	if cfg.Arena.WidthPerPlayer != 150 {
		t.Errorf("width_per_player = %v, want 150", cfg.Arena.WidthPerPlayer)
	}
	// Untouched keys keep defaults
	if cfg.Physics.SubSteps != DefaultPhysics().SubSteps {
		t.Errorf("sub_steps = %d, want default %d", cfg.Physics.SubSteps, DefaultPhysics().SubSteps)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "4100")
	t.Setenv("RESTITUTION", "0.95")
	t.Setenv("TICK_RATE", "30")
	t.Setenv("ALLOWED_ORIGINS", "https://play.example.com, ,https://a.example.com")

	cfg := Load()
	if cfg.Server.Port != 4100 {
		t.Errorf("port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Physics.Restitution != 0.95 {
		t.Errorf("restitution = %v, want 0.95", cfg.Physics.Restitution)
	}
	if cfg.Physics.TickRate != 30 {
		t.Errorf("tick rate = %d, want 30", cfg.Physics.TickRate)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://a.example.com" {
		t.Errorf("allowed origins = %v", cfg.Server.AllowedOrigins)
	}
}
