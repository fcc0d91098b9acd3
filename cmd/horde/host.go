package main

import (
	"fmt"
	"math/rand"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/horde/internal/config"
	"github.com/l1jgo/horde/internal/core/event"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/reward"
	"github.com/l1jgo/horde/internal/scripting"
	"github.com/l1jgo/horde/internal/spawn"
	"github.com/l1jgo/horde/internal/wave"
	"github.com/l1jgo/horde/internal/world"
)

type tables struct {
	enemies  *data.EnemyTable
	scaling  data.ScalingTable
	upgrades *data.UpgradeTable
}

// loadTables reads the data tables in parallel and cross-checks the template
// references the scheduler will spawn. The first load error wins.
func loadTables(cfg *config.Config) (*tables, error) {
	var t tables
	var g errgroup.Group
	g.Go(func() (err error) {
		if t.enemies, err = data.LoadEnemyTable(cfg.Data.EnemyList); err != nil {
			return fmt.Errorf("load enemies: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if t.scaling, err = data.LoadScalingTable(cfg.Data.ScalingList); err != nil {
			return fmt.Errorf("load scaling: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if t.upgrades, err = data.LoadUpgradeTable(cfg.Data.UpgradeList); err != nil {
			return fmt.Errorf("load upgrades: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := data.CheckReferences(t.enemies, t.scaling, cfg.Wave.BossTemplate, cfg.Wave.FallbackTemplate); err != nil {
		return nil, fmt.Errorf("check references: %w", err)
	}
	return &t, nil
}

// dataDirs returns the distinct directories holding the data tables.
func dataDirs(cfg config.DataConfig) []string {
	seen := make(map[string]bool, 3)
	var dirs []string
	for _, p := range []string{cfg.EnemyList, cfg.ScalingList, cfg.UpgradeList} {
		d := filepath.Dir(p)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func resolveArea(a config.AreaConfig) spawn.Area {
	var lo, hi *spawn.Position
	if len(a.Min) == 2 {
		lo = &spawn.Position{X: a.Min[0], Y: a.Min[1]}
	}
	if len(a.Max) == 2 {
		hi = &spawn.Position{X: a.Max[0], Y: a.Max[1]}
	}
	return spawn.ResolveArea(lo, hi)
}

func newPlayer(c config.CombatConfig) world.Player {
	return world.Player{
		HP:             c.PlayerMaxHP,
		MaxHP:          c.PlayerMaxHP,
		Damage:         c.Damage,
		AttackRange:    c.AttackRange,
		AttackCooldown: c.AttackCooldown,
	}
}

type sessionStats struct {
	waves     int
	spawned   int
	survivors int
}

// host owns one world and runs sessions against it back to back. Its event
// handlers run on the tick loop goroutine.
type host struct {
	cfg    *config.Config
	log    *zap.Logger
	bus    *event.Bus
	world  *world.State
	lua    *scripting.Engine
	rng    *rand.Rand
	tables *tables

	orch    *wave.Orchestrator
	flow    *reward.Flow
	session int
	stats   sessionStats
	done    bool
}

func newHost(cfg *config.Config, t *tables, ws *world.State, bus *event.Bus, lua *scripting.Engine, rng *rand.Rand, log *zap.Logger) *host {
	h := &host{
		cfg:    cfg,
		log:    log,
		bus:    bus,
		world:  ws,
		lua:    lua,
		rng:    rng,
		tables: t,
	}
	event.Subscribe(bus, h.onWaveStarted)
	event.Subscribe(bus, h.onCountdown)
	event.Subscribe(bus, h.onWaveCompleted)
	event.Subscribe(bus, h.onNextWaveReady)
	event.Subscribe(bus, h.onRewardOffered)
	event.Subscribe(bus, h.onAllWavesCompleted)
	return h
}

// startSession resets the world and launches wave 1 of a new session.
func (h *host) startSession() {
	h.session++
	h.stats = sessionStats{}
	h.done = false

	h.world.SetTemplates(h.tables.enemies)
	h.world.Reset(newPlayer(h.cfg.Combat))

	deps := wave.Deps{
		Factory: h.world,
		Healer:  h.world,
		Bus:     h.bus,
		Log:     h.log.Named("wave"),
	}
	h.flow = nil
	if h.tables.upgrades.Count() > 0 {
		picker := reward.NewPicker(h.tables.upgrades, h.lua, rand.New(rand.NewSource(h.rng.Int63())))
		h.flow = reward.NewFlow(picker, h.world, h.bus, h.cfg.Reward.Offers, h.cfg.Reward.AutoPick, h.log.Named("reward"))
		deps.Reward = h.flow
	}

	h.orch = wave.New(wave.Config{
		TotalWaves:        h.cfg.Wave.TotalWaves,
		Duration:          h.cfg.Wave.Duration,
		TickRate:          h.cfg.Wave.TickRate,
		FullHealOnNewWave: h.cfg.Wave.FullHealOnNewWave,
		BossTemplate:      h.cfg.Wave.BossTemplate,
		FallbackTemplate:  h.cfg.Wave.FallbackTemplate,
		Budget: spawn.Budget{
			MaxConcurrent: h.cfg.Budget.MaxConcurrent,
			MaxPerWave:    h.cfg.Budget.MaxPerWave,
		},
		Area:    resolveArea(h.cfg.Area),
		Scaling: h.tables.scaling,
		Seed:    h.rng.Int63(),
	}, deps)

	h.log.Info("session started", zap.Int("session", h.session))
	h.orch.RequestStartNextWave()
}

// reload swaps in freshly loaded tables. A broken edit keeps the current ones.
func (h *host) reload() {
	t, err := loadTables(h.cfg)
	if err != nil {
		h.log.Warn("data reload failed, keeping current tables", zap.Error(err))
		return
	}
	h.tables = t
	h.log.Info("data reloaded",
		zap.Int("enemies", t.enemies.Count()),
		zap.Int("categories", len(t.scaling)),
		zap.Int("upgrades", t.upgrades.Count()))
}

func (h *host) shutdown() {
	if h.orch != nil {
		h.orch.Shutdown()
	}
}

func (h *host) onWaveStarted(e event.WaveStarted) {
	if e.Boss {
		printReady(fmt.Sprintf("wave %d: boss", e.Wave))
		return
	}
	printReady(fmt.Sprintf("wave %d: %s", e.Wave, e.Duration))
}

func (h *host) onCountdown(e event.CountdownChanged) {
	h.log.Debug("countdown", zap.Int("wave", e.Wave), zap.Int("remaining", e.Remaining))
}

func (h *host) onWaveCompleted(e event.WaveCompleted) {
	h.stats.waves++
	h.stats.spawned += e.Spawned
	h.stats.survivors += e.Survivors
	printOK(numbers.Sprintf("wave %d cleared: %d spawned, %d survivors removed", e.Wave, e.Spawned, e.Survivors))
}

func (h *host) onNextWaveReady(event.NextWaveReady) {
	if h.orch != nil {
		h.orch.RequestStartNextWave()
	}
}

// onRewardOffered stands in for the player when offers are not auto-picked.
func (h *host) onRewardOffered(e event.RewardOffered) {
	if h.cfg.Reward.AutoPick || h.flow == nil {
		return
	}
	w, ids, ok := h.flow.Pending()
	if !ok || w != e.Wave {
		return
	}
	if err := h.flow.Choose(h.rng.Intn(len(ids))); err != nil {
		h.log.Warn("reward choice failed", zap.Int("wave", w), zap.Error(err))
	}
}

func (h *host) onAllWavesCompleted(event.AllWavesCompleted) {
	h.done = true
}

func (h *host) printSummary() {
	p := h.world.Player()
	fmt.Println()
	printSection(fmt.Sprintf("session %d", h.session))
	printStat("waves cleared", h.stats.waves)
	printStat("enemies spawned", h.stats.spawned)
	printStat("enemies slain", h.world.Kills())
	printStat("survivors removed", h.stats.survivors)
	printStat("upgrades taken", len(p.Upgrades))
	printStat("player hp", p.HP)
	fmt.Println()
}
