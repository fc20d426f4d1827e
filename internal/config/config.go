// Package config provides centralized configuration management.
// Every tunable of the simulation, the arena and the server lives here.
//
// Values are resolved in three layers: compiled defaults, an optional YAML
// tuning file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// PHYSICS CONFIGURATION
// =============================================================================

// PhysicsConfig holds the ball integrator and paddle collision constants.
// Velocities are expressed in arena units per frame.
type PhysicsConfig struct {
	TickRate    int     `yaml:"tick_rate"`    // Simulation frames per second
	SubSteps    int     `yaml:"sub_steps"`    // Integration sub-steps per frame
	Gravity     float64 `yaml:"gravity"`      // Added to vy once per frame (split across sub-steps)
	Drag        float64 `yaml:"drag"`         // Per sub-step velocity decay, 1 disables it
	WallDamping float64 `yaml:"wall_damping"` // Energy kept on a wall bounce (<1)
	MaxSpeed    float64 `yaml:"max_speed"`    // Speed cap enforced every sub-step
	BallRadius  float64 `yaml:"ball_radius"`

	Restitution     float64 `yaml:"restitution"`      // Normal-velocity multiplier on paddle contact (>1 injects energy)
	Nudge           float64 `yaml:"nudge"`            // Push applied when overlapping but already separating
	CollisionMargin float64 `yaml:"collision_margin"` // Expands the ball box in the overlap test
	PushBuffer      float64 `yaml:"push_buffer"`      // Extra separation after positional correction

	PaddleWidth  float64 `yaml:"paddle_width"`
	PaddleHeight float64 `yaml:"paddle_height"`
	PaddleOffset float64 `yaml:"paddle_offset"` // Paddle centre sits this far above the reported anchor
}

// DefaultPhysics returns the default physics tuning.
func DefaultPhysics() PhysicsConfig {
	return PhysicsConfig{
		TickRate:    60,
		SubSteps:    6,
		Gravity:     0.3,
		Drag:        0.999,
		WallDamping: 0.9,
		MaxSpeed:    18,
		BallRadius:  10,

		Restitution:     1.05,
		Nudge:           0.5,
		CollisionMargin: 2,
		PushBuffer:      1,

		PaddleWidth:  90,
		PaddleHeight: 15,
		PaddleOffset: 30,
	}
}

// =============================================================================
// ARENA CONFIGURATION
// =============================================================================

// ArenaConfig holds arena geometry, spawn points and scoring rules.
type ArenaConfig struct {
	MinWidth       float64 `yaml:"min_width"`
	WidthPerPlayer float64 `yaml:"width_per_player"`
	Height         float64 `yaml:"height"`

	GoalInset      float64 `yaml:"goal_inset"`       // Goal x = right edge - inset
	GoalDepth      float64 `yaml:"goal_depth"`       // Width of the scoring band left of the goal x
	GoalHalfHeight float64 `yaml:"goal_half_height"` // Half of the vertical goal band
	GoalCenterMin  float64 `yaml:"goal_center_min"`
	GoalCenterMax  float64 `yaml:"goal_center_max"`

	BallSpawnX  float64 `yaml:"ball_spawn_x"`
	BallSpawnY  float64 `yaml:"ball_spawn_y"`
	BallStartVX float64 `yaml:"ball_start_vx"` // Velocity at server start and after a floor reset
	BallStartVY float64 `yaml:"ball_start_vy"`

	RespawnSpeedMin float64 `yaml:"respawn_speed_min"` // Random velocity after a goal
	RespawnSpeedMax float64 `yaml:"respawn_speed_max"`
	RespawnAngleMin float64 `yaml:"respawn_angle_min"` // Radians, screen coordinates (negative = upward)
	RespawnAngleMax float64 `yaml:"respawn_angle_max"`

	PlayerSpawnXMin float64 `yaml:"player_spawn_x_min"`
	PlayerSpawnXMax float64 `yaml:"player_spawn_x_max"`
	PlayerGroundY   float64 `yaml:"player_ground_y"`

	ComboDecayFloorHits int `yaml:"combo_decay_floor_hits"` // Consecutive floor resets that zero every combo
	MaxNameLength       int `yaml:"max_name_length"`
}

// DefaultArena returns the default arena configuration.
// One player yields an 800 wide arena.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		MinWidth:       600,
		WidthPerPlayer: 200,
		Height:         600,

		GoalInset:      20,
		GoalDepth:      30,
		GoalHalfHeight: 50,
		GoalCenterMin:  150,
		GoalCenterMax:  450,

		BallSpawnX:  400,
		BallSpawnY:  300,
		BallStartVX: 3,
		BallStartVY: 0,

		RespawnSpeedMin: 3,
		RespawnSpeedMax: 6,
		RespawnAngleMin: -2.4,
		RespawnAngleMax: -0.7,

		PlayerSpawnXMin: 50,
		PlayerSpawnXMax: 750,
		PlayerGroundY:   465,

		ComboDecayFloorHits: 5,
		MaxNameLength:       20,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP and connection settings.
type ServerConfig struct {
	Port         int     `yaml:"port"`
	MaxPlayers   int     `yaml:"max_players"`
	StaticDir    string  `yaml:"static_dir"`
	EventLogPath string  `yaml:"event_log_path"`
	SendBuffer   int     `yaml:"send_buffer"`   // Outbound messages queued per connection
	InboundRate  float64 `yaml:"inbound_rate"`  // Inbound messages per second per connection
	InboundBurst int     `yaml:"inbound_burst"` // Inbound burst per connection

	// AllowedOrigins extends the WebSocket and CORS allow list. Same-host
	// and localhost origins are always accepted.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:         3000,
		MaxPlayers:   16,
		StaticDir:    "./public",
		EventLogPath: "events.jsonl",
		SendBuffer:   512,
		InboundRate:  120,
		InboundBurst: 60,
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Physics PhysicsConfig `yaml:"physics"`
	Arena   ArenaConfig   `yaml:"arena"`
	Server  ServerConfig  `yaml:"server"`
}

// Default returns the compiled defaults without any overrides.
func Default() AppConfig {
	return AppConfig{
		Physics: DefaultPhysics(),
		Arena:   DefaultArena(),
		Server:  DefaultServer(),
	}
}

// Load returns the defaults with environment overrides applied.
func Load() AppConfig {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

// applyEnv overlays environment variables on cfg.
func applyEnv(cfg *AppConfig) {
	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Server.Port = p
	}
	if mp := getEnvInt("MAX_PLAYERS", 0); mp > 0 {
		cfg.Server.MaxPlayers = mp
	}
	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		cfg.Server.StaticDir = dir
	}
	if path, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.Server.EventLogPath = path
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, o)
			}
		}
	}

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.Physics.TickRate = tr
	}
	if g := getEnvFloat("GRAVITY", -1); g >= 0 {
		cfg.Physics.Gravity = g
	}
	if d := getEnvFloat("DRAG", -1); d > 0 {
		cfg.Physics.Drag = d
	}
	if r := getEnvFloat("RESTITUTION", -1); r > 0 {
		cfg.Physics.Restitution = r
	}
	if ms := getEnvFloat("MAX_SPEED", -1); ms > 0 {
		cfg.Physics.MaxSpeed = ms
	}
}

// Validate reports the first inconsistency that would break the simulation.
func (c AppConfig) Validate() error {
	p, a := c.Physics, c.Arena
	switch {
	case p.TickRate <= 0:
		return errors.New("physics.tick_rate must be positive")
	case p.SubSteps <= 0:
		return errors.New("physics.sub_steps must be positive")
	case p.Drag <= 0 || p.Drag > 1:
		return fmt.Errorf("physics.drag must be in (0, 1], got %v", p.Drag)
	case p.WallDamping <= 0 || p.WallDamping >= 1:
		return fmt.Errorf("physics.wall_damping must be in (0, 1), got %v", p.WallDamping)
	case p.MaxSpeed <= 0:
		return errors.New("physics.max_speed must be positive")
	case p.BallRadius <= 0:
		return errors.New("physics.ball_radius must be positive")
	case p.Restitution < 0 || p.Restitution > 2:
		return fmt.Errorf("physics.restitution must be in [0, 2], got %v", p.Restitution)
	case p.Nudge < 0:
		return errors.New("physics.nudge must not be negative")
	case p.CollisionMargin < 0:
		return errors.New("physics.collision_margin must not be negative")
	case p.PushBuffer < 0:
		return errors.New("physics.push_buffer must not be negative")
	case a.Height <= 0 || a.MinWidth <= 0:
		return errors.New("arena dimensions must be positive")
	case a.GoalCenterMin <= 0 || a.GoalCenterMax >= a.Height || a.GoalCenterMin > a.GoalCenterMax:
		return fmt.Errorf("arena goal centre range [%v, %v] must lie strictly inside (0, %v)",
			a.GoalCenterMin, a.GoalCenterMax, a.Height)
	case a.RespawnSpeedMin < 0 || a.RespawnSpeedMin > a.RespawnSpeedMax:
		return fmt.Errorf("arena respawn speed range [%v, %v] is invalid", a.RespawnSpeedMin, a.RespawnSpeedMax)
	case a.RespawnAngleMin > a.RespawnAngleMax:
		return fmt.Errorf("arena respawn angle range [%v, %v] is inverted", a.RespawnAngleMin, a.RespawnAngleMax)
	case a.PlayerSpawnXMin > a.PlayerSpawnXMax:
		return errors.New("arena player spawn range is inverted")
	case a.ComboDecayFloorHits <= 0:
		return errors.New("arena.combo_decay_floor_hits must be positive")
	case a.MaxNameLength <= 0:
		return errors.New("arena.max_name_length must be positive")
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
