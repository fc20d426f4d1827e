// server runs the authoritative rally game server.
//
// Usage:
//
//	server                  - Run the game server
//	server config           - Print the resolved configuration
//
// Global flags:
//
//	--config <path>   - YAML tuning file layered over the defaults
//	--port <n>        - Override the listen port
//	--log-level <l>   - debug, info, warn or error
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jafish/Networked-Games-Testbed/internal/api"
	"github.com/jafish/Networked-Games-Testbed/internal/config"
	"github.com/jafish/Networked-Games-Testbed/internal/game"
)

var (
	flagConfig    string
	flagPort      int
	flagStatic    string
	flagLogLevel  string
	flagDebug     bool
	flagDebugAddr string
	flagSeed      int64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Authoritative server for the networked paddle-and-ball game",
	Long: `Runs the fixed-tick rally simulation and streams it to browser clients
over WebSocket.

Configuration is resolved from compiled defaults, then the --config file,
then environment variables (a .env file is loaded if present), then flags.

Examples:
  server
  server --config tuning.yaml --port 4000
  server config --config tuning.yaml`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runServer,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML tuning file")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 0, "Listen port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagStatic, "static", "", "Directory holding the browser client (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", true, "Run the pprof/metrics debug server")
	rootCmd.Flags().StringVar(&flagDebugAddr, "debug-addr", "127.0.0.1:6060", "Debug server address (localhost only)")
	rootCmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")

	rootCmd.AddCommand(configCmd)
}

func setup(_ *cobra.Command, _ []string) error {
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	log.SetLevel(level)
	log.SetReportTimestamp(true)

	if err := godotenv.Load(".env"); err != nil {
		log.Debug("💡 No .env file found, using environment variables only")
	} else {
		log.Info("✅ Loaded environment from .env")
	}
	return nil
}

func loadConfig() (config.AppConfig, error) {
	cfg, err := config.LoadFile(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagPort > 0 {
		cfg.Server.Port = flagPort
	}
	if flagStatic != "" {
		cfg.Server.StaticDir = flagStatic
	}
	return cfg, nil
}

func runServer(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info("🎮 ================================")
	log.Info("🎮  RALLY - AUTHORITATIVE SERVER")
	log.Info("🎮 ================================")
	log.Info("🎮 Config",
		"tps", cfg.Physics.TickRate,
		"substeps", cfg.Physics.SubSteps,
		"maxPlayers", cfg.Server.MaxPlayers,
		"restitution", cfg.Physics.Restitution)

	engine := game.NewEngine(game.EngineConfig{
		Physics:    cfg.Physics,
		Arena:      cfg.Arena,
		MaxPlayers: cfg.Server.MaxPlayers,
		Seed:       flagSeed,
	})

	if err := engine.StartEventLog(cfg.Server.EventLogPath); err != nil {
		log.Warn("⚠️ Event log disabled", "err", err)
	} else if cfg.Server.EventLogPath != "" {
		log.Info("📝 Event log", "path", cfg.Server.EventLogPath)
	}

	engine.OnTick(func(stats game.TickStats) {
		api.RecordTick(stats)
		// The event log counters move slowly, once a second is plenty
		if stats.Tick%uint64(cfg.Physics.TickRate) == 0 {
			api.UpdateEventLogStats(engine.GetEventLogStats())
		}
	})

	var debugSrv *http.Server
	if flagDebug && os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		debugCfg := api.DefaultObservabilityConfig()
		debugCfg.ListenAddr = flagDebugAddr
		debugSrv = api.StartDebugServer(debugCfg)
	}

	server := api.NewServer(engine, cfg.Server)
	engine.Start()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(":" + strconv.Itoa(cfg.Server.Port))
	}()
	log.Info("🌐 Open the game", "url", fmt.Sprintf("http://localhost:%d/", cfg.Server.Port))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		log.Info("🛑 Shutting down...", "signal", sig.String())
	case runErr = <-errChan:
		if runErr != nil {
			log.Error("❌ API server failed", "err", runErr)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("⚠️ API server shutdown", "err", err)
	}
	engine.Stop()
	engine.StopEventLog()
	if debugSrv != nil {
		debugSrv.Shutdown(ctx)
	}

	log.Info("👋 Goodbye!", "ticks", engine.TickCount())
	return runErr
}
