package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/horde/internal/config"
	"github.com/l1jgo/horde/internal/core/event"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/scripting"
	"github.com/l1jgo/horde/internal/system"
	"github.com/l1jgo/horde/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/horde.toml"
	if p := os.Getenv("HORDE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Session.Name, cfg.Wave.TotalWaves)

	// 3. Load data tables
	printSection("data")
	tbl, err := loadTables(cfg)
	if err != nil {
		return err
	}
	printStat("enemy templates", tbl.enemies.Count())
	printStat("scaling categories", len(tbl.scaling))
	printStat("upgrades", tbl.upgrades.Count())

	// 4. Scripts
	printSection("scripts")
	lua, err := scripting.NewEngine(cfg.Reward.ScriptsDir, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("init lua: %w", err)
	}
	defer lua.Close()
	printOK(fmt.Sprintf("lua engine ready (%s)", cfg.Reward.ScriptsDir))

	var (
		changes   <-chan string
		watchErrs <-chan error
	)
	if cfg.Data.Watch {
		w, err := data.NewWatcher(dataDirs(cfg.Data)...)
		if err != nil {
			return fmt.Errorf("watch data: %w", err)
		}
		defer w.Close()
		changes, watchErrs = w.Events, w.Errors
		printOK("watching data files")
	}

	// 5. World, systems, session host
	seed := cfg.Session.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	bus := event.NewBus()
	ws := world.NewState(tbl.enemies, newPlayer(cfg.Combat), log.Named("world"))

	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewCombatSystem(ws, cfg.Combat.ContactRange, log.Named("combat")))
	runner.Register(system.NewRegenSystem(ws, cfg.Combat.RegenPerSecond))
	runner.Register(system.NewCleanupSystem(ws))

	h := newHost(cfg, tbl, ws, bus, lua, rng, log)

	// 6. Start the loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	tick := cfg.Wave.TickRate
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	printSection("running")
	printReady(fmt.Sprintf("tick %s, seed %d", tick, seed))
	fmt.Println()

	h.startSession()
	reload := false

	for {
		select {
		case <-ticker.C:
			runner.Tick(tick)
			if !h.done {
				continue
			}
			h.printSummary()
			h.shutdown()
			if !cfg.Session.Loop {
				log.Info("all sessions finished", zap.Uint64("ticks", runner.Ticks()))
				return nil
			}
			if reload {
				h.reload()
				reload = false
			}
			h.startSession()
		case path, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			log.Info("data file changed, reloading at next session", zap.String("file", path))
			reload = true
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			log.Warn("data watcher error", zap.Error(err))
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			h.shutdown()
			h.printSummary()
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
