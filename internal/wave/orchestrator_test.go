package wave

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/l1jgo/horde/internal/core/event"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/spawn"
)

func TestNormalWaveEndToEnd(t *testing.T) {
	cfg := baseConfig()
	cfg.Scaling = grunts(2, 3)
	h := newHarness(t, cfg, nil, nil)

	var (
		started   []event.WaveStarted
		completed []event.WaveCompleted
		ready     []event.NextWaveReady
		countdown []int
		spawned   int
	)
	event.Subscribe(h.bus, func(e event.WaveStarted) { started = append(started, e) })
	event.Subscribe(h.bus, func(e event.WaveCompleted) { completed = append(completed, e) })
	event.Subscribe(h.bus, func(e event.NextWaveReady) { ready = append(ready, e) })
	event.Subscribe(h.bus, func(e event.CountdownChanged) { countdown = append(countdown, e.Remaining) })
	event.Subscribe(h.bus, func(event.EnemySpawned) { spawned++ })

	if !h.o.RequestStartNextWave() {
		t.Fatalf("expected first wave to start")
	}
	if st := h.o.State(); st != WaveInProgress {
		t.Fatalf("expected WaveInProgress, got %s", st)
	}

	// countdown ticker plus the category's spawn timer
	h.clock.BlockUntil(2)
	if n := h.factory.spawnCount(); n != 2 {
		t.Fatalf("expected first batch of 2 at t=0, got %d", n)
	}
	for sec := 1; sec < 10; sec++ {
		h.clock.Advance(time.Second)
		h.clock.BlockUntil(2)
		want := 2 * (1 + sec/3)
		if n := h.factory.spawnCount(); n != want {
			t.Fatalf("t=%ds: expected %d spawns, got %d", sec, want, n)
		}
	}
	if rem := h.o.Snapshot().Remaining; rem != time.Second {
		t.Fatalf("expected 1s remaining, got %s", rem)
	}

	h.clock.Advance(time.Second)
	waitFor(t, "wave to complete", func() bool { return h.o.State() == BetweenWaves })

	if n := h.factory.spawnCount(); n != 8 {
		t.Fatalf("expected 8 spawns, got %d", n)
	}
	if n := h.factory.destroyedCount(); n != 8 {
		t.Fatalf("expected 8 survivors force-destroyed, got %d", n)
	}
	snap := h.o.Snapshot()
	if snap.Wave != 1 || snap.Spawned != 8 || snap.Alive != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.Ready {
		t.Fatalf("expected next wave ready without a reward flow")
	}

	// no further spawns once the wave is over
	h.clock.Advance(10 * time.Second)
	time.Sleep(5 * time.Millisecond)
	if n := h.factory.spawnCount(); n != 8 {
		t.Fatalf("expected no spawns after completion, got %d", n)
	}

	h.flush()
	if len(started) != 1 || started[0].Wave != 1 || started[0].Boss || started[0].Duration != 10*time.Second {
		t.Fatalf("unexpected WaveStarted events %+v", started)
	}
	if len(completed) != 1 || completed[0].Spawned != 8 || completed[0].Survivors != 8 {
		t.Fatalf("unexpected WaveCompleted events %+v", completed)
	}
	if len(ready) != 1 || ready[0].Wave != 2 {
		t.Fatalf("unexpected NextWaveReady events %+v", ready)
	}
	if spawned != 8 {
		t.Fatalf("expected 8 EnemySpawned events, got %d", spawned)
	}
	if len(countdown) < 2 || countdown[0] != 10 || countdown[len(countdown)-1] != 0 {
		t.Fatalf("unexpected countdown %v", countdown)
	}
	for i := 1; i < len(countdown); i++ {
		if countdown[i] >= countdown[i-1] {
			t.Fatalf("countdown not strictly decreasing: %v", countdown)
		}
	}
}

func TestBossWaveWaitsForKill(t *testing.T) {
	cfg := baseConfig()
	cfg.TotalWaves = 5
	cfg.Duration = time.Second
	cfg.Scaling = grunts(1, 5)
	h := newHarness(t, cfg, nil, nil)

	var all []event.AllWavesCompleted
	event.Subscribe(h.bus, func(e event.AllWavesCompleted) { all = append(all, e) })

	for w := 1; w <= 4; w++ {
		h.runShortWave(t, 2)
	}
	if n := h.factory.spawnCount(); n != 4 {
		t.Fatalf("expected one grunt per normal wave, got %d", n)
	}

	if !h.o.RequestStartNextWave() {
		t.Fatalf("expected boss wave to start")
	}
	snap := h.o.Snapshot()
	if !snap.Boss || snap.Wave != 5 || snap.Remaining != 0 {
		t.Fatalf("unexpected boss snapshot %+v", snap)
	}
	// boss check ticker only; no category timers run on a boss wave
	h.clock.BlockUntil(1)

	recs := h.factory.records()
	if len(recs) != 5 {
		t.Fatalf("expected exactly one boss spawn, got %d records", len(recs))
	}
	boss := recs[4]
	if boss.template != "warlord" {
		t.Fatalf("expected warlord, got %q", boss.template)
	}
	if boss.pos != cfg.Area.Center() {
		t.Fatalf("expected boss at area center, got %+v", boss.pos)
	}

	// no timeout: the wave runs on while the boss lives
	for i := 0; i < 3; i++ {
		h.clock.Advance(time.Minute)
		h.clock.BlockUntil(1)
	}
	time.Sleep(5 * time.Millisecond)
	if st := h.o.State(); st != WaveInProgress {
		t.Fatalf("expected boss wave still running, got %s", st)
	}
	if n := h.factory.spawnCount(); n != 5 {
		t.Fatalf("expected no spawns during boss wave, got %d", n)
	}

	h.factory.kill(boss.id)
	if alive := h.o.Snapshot().Alive; alive != 0 {
		t.Fatalf("expected registry empty after kill, got %d", alive)
	}
	h.clock.Advance(time.Second)
	waitFor(t, "session to clear", func() bool { return h.o.Snapshot().Cleared })

	if h.o.RequestStartNextWave() {
		t.Fatalf("expected no wave after the boss")
	}
	if h.o.Snapshot().Ready {
		t.Fatalf("cleared session must not report ready")
	}
	h.flush()
	if len(all) != 1 || all[0].Waves != 5 {
		t.Fatalf("unexpected AllWavesCompleted events %+v", all)
	}
}

func TestSingleWaveSessionIsBossOnly(t *testing.T) {
	cfg := baseConfig()
	cfg.TotalWaves = 1
	cfg.Scaling = grunts(3, 1)
	h := newHarness(t, cfg, nil, nil)

	if !h.o.RequestStartNextWave() {
		t.Fatalf("expected wave to start")
	}
	h.clock.BlockUntil(1)
	recs := h.factory.records()
	if len(recs) != 1 || recs[0].template != "warlord" {
		t.Fatalf("expected lone boss spawn, got %+v", recs)
	}
}

func TestRequestStartIgnoredWhileRunning(t *testing.T) {
	cfg := baseConfig()
	cfg.Scaling = grunts(1, 5)
	h := newHarness(t, cfg, nil, nil)

	if !h.o.RequestStartNextWave() {
		t.Fatalf("expected first request to start a wave")
	}
	if h.o.RequestStartNextWave() {
		t.Fatalf("expected second request to be ignored")
	}
	if w := h.o.Wave(); w != 1 {
		t.Fatalf("expected wave 1, got %d", w)
	}
	h.clock.BlockUntil(2)
	if n := h.factory.spawnCount(); n != 1 {
		t.Fatalf("expected one spawn stream, got %d spawns", n)
	}
}

func TestConcurrentStartRequestsStartOneWave(t *testing.T) {
	cfg := baseConfig()
	cfg.Scaling = grunts(1, 5)
	h := newHarness(t, cfg, nil, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.o.RequestStartNextWave() {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if started != 1 {
		t.Fatalf("expected exactly one start, got %d", started)
	}
	if w := h.o.Wave(); w != 1 {
		t.Fatalf("expected wave 1, got %d", w)
	}
}

func TestBudgetSharedAcrossCategories(t *testing.T) {
	tests := []struct {
		name    string
		budget  spawn.Budget
		cats    int
		batch   int
		advance int
		want    int
	}{
		{name: "concurrent ceiling", budget: spawn.Budget{MaxConcurrent: 7, MaxPerWave: 100}, cats: 5, batch: 10, want: 7},
		{name: "per-wave ceiling", budget: spawn.Budget{MaxConcurrent: 100, MaxPerWave: 12}, cats: 3, batch: 5, advance: 4, want: 12},
		{name: "zero budget", budget: spawn.Budget{}, cats: 2, batch: 3, advance: 2, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Budget = tt.budget
			for i := 0; i < tt.cats; i++ {
				e := grunts(tt.batch, 1)[0]
				cfg.Scaling = append(cfg.Scaling, e)
			}
			h := newHarness(t, cfg, nil, nil)
			h.o.RequestStartNextWave()
			h.clock.BlockUntil(tt.cats + 1)
			for i := 0; i < tt.advance; i++ {
				h.clock.Advance(time.Second)
				h.clock.BlockUntil(tt.cats + 1)
			}
			if n := h.factory.spawnCount(); n != tt.want {
				t.Fatalf("expected %d spawns, got %d", tt.want, n)
			}
			snap := h.o.Snapshot()
			if snap.Spawned != tt.want || snap.Alive != tt.want {
				t.Fatalf("unexpected counters %+v", snap)
			}
		})
	}
}

func TestSpawnBatchAdmissionIsExact(t *testing.T) {
	tests := []struct {
		name   string
		budget spawn.Budget
		want   int
	}{
		{name: "concurrent", budget: spawn.Budget{MaxConcurrent: 5, MaxPerWave: 1000}, want: 5},
		{name: "per wave", budget: spawn.Budget{MaxConcurrent: 1000, MaxPerWave: 9}, want: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Budget = tt.budget
			h := newHarness(t, cfg, nil, nil)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			s := &session{
				wave:     1,
				ctx:      ctx,
				cancel:   cancel,
				deadline: h.clock.Now().Add(time.Hour),
				registry: spawn.NewRegistry(),
			}
			entry := grunts(3, 1)[0]

			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				total int
			)
			for i := 0; i < 64; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					n := h.o.spawnBatch(s, entry, 3)
					mu.Lock()
					total += n
					mu.Unlock()
				}()
			}
			wg.Wait()

			if total != tt.want {
				t.Fatalf("expected %d admitted, got %d", tt.want, total)
			}
			if s.spawned != tt.want || s.registry.Count() != tt.want {
				t.Fatalf("expected counters at %d, got spawned=%d active=%d",
					tt.want, s.spawned, s.registry.Count())
			}
		})
	}
}

func TestDeathFreesConcurrentSlot(t *testing.T) {
	cfg := baseConfig()
	cfg.Budget = spawn.Budget{MaxConcurrent: 2, MaxPerWave: 100}
	cfg.Scaling = grunts(2, 1)
	h := newHarness(t, cfg, nil, nil)

	h.o.RequestStartNextWave()
	h.clock.BlockUntil(2)
	if n := h.factory.spawnCount(); n != 2 {
		t.Fatalf("expected 2 spawns, got %d", n)
	}

	h.clock.Advance(time.Second)
	h.clock.BlockUntil(2)
	if n := h.factory.spawnCount(); n != 2 {
		t.Fatalf("expected full budget to suppress spawns, got %d", n)
	}

	h.factory.kill(h.factory.records()[0].id)
	h.clock.Advance(time.Second)
	h.clock.BlockUntil(2)
	if n := h.factory.spawnCount(); n != 3 {
		t.Fatalf("expected freed slot to admit one spawn, got %d", n)
	}
	if alive := h.o.Snapshot().Alive; alive != 2 {
		t.Fatalf("expected 2 alive, got %d", alive)
	}
}

func TestStaleDeathIsIgnored(t *testing.T) {
	cfg := baseConfig()
	cfg.Duration = time.Second
	cfg.Scaling = grunts(1, 5)
	h := newHarness(t, cfg, nil, nil)

	var died []event.EnemyDied
	event.Subscribe(h.bus, func(e event.EnemyDied) { died = append(died, e) })

	h.runShortWave(t, 2)
	first := h.factory.records()[0].id

	h.o.RequestStartNextWave()
	h.clock.BlockUntil(2)
	if alive := h.o.Snapshot().Alive; alive != 1 {
		t.Fatalf("expected 1 alive in wave 2, got %d", alive)
	}

	h.factory.kill(first)
	if alive := h.o.Snapshot().Alive; alive != 1 {
		t.Fatalf("death from wave 1 changed wave 2 registry: alive=%d", alive)
	}

	second := h.factory.records()[1].id
	h.factory.kill(second)
	h.factory.kill(second)
	if alive := h.o.Snapshot().Alive; alive != 0 {
		t.Fatalf("expected 0 alive, got %d", alive)
	}

	h.flush()
	if len(died) != 1 || died[0].Entity != second {
		t.Fatalf("expected one EnemyDied for %s, got %+v", second, died)
	}
}

func TestFallbackCategoryWhenTableEmpty(t *testing.T) {
	cfg := baseConfig()
	cfg.Scaling = nil
	h := newHarness(t, cfg, nil, nil)

	h.o.RequestStartNextWave()
	h.clock.BlockUntil(2)
	for i := 0; i < 2; i++ {
		h.clock.Advance(time.Second)
		h.clock.BlockUntil(2)
	}
	recs := h.factory.records()
	if len(recs) != 2 {
		t.Fatalf("expected fallback to spawn once every 2s, got %d spawns", len(recs))
	}
	for _, r := range recs {
		if r.template != "grunt" {
			t.Fatalf("expected fallback template, got %q", r.template)
		}
		if !cfg.Area.Contains(r.pos) {
			t.Fatalf("spawn %+v outside area", r.pos)
		}
	}
}

func TestNoEligibleCategorySpawnsNothing(t *testing.T) {
	cfg := baseConfig()
	cfg.Scaling = data.ScalingTable{{
		Template:      "brute",
		StartWave:     2,
		EndWave:       data.Unbounded,
		BaseBatchSize: 4,
		BaseInterval:  1,
		MinInterval:   1,
	}}
	h := newHarness(t, cfg, nil, nil)

	h.o.RequestStartNextWave()
	// countdown only
	h.clock.BlockUntil(1)
	h.clock.Advance(3 * time.Second)
	h.clock.BlockUntil(1)
	if n := h.factory.spawnCount(); n != 0 {
		t.Fatalf("expected no spawns, got %d", n)
	}
}

func TestClusterSpawnsShareAnchor(t *testing.T) {
	cfg := baseConfig()
	e := grunts(6, 5)[0]
	e.ClusterRadius = 10
	cfg.Scaling = data.ScalingTable{e}
	h := newHarness(t, cfg, nil, nil)

	h.o.RequestStartNextWave()
	h.clock.BlockUntil(2)
	recs := h.factory.records()
	if len(recs) != 6 {
		t.Fatalf("expected 6 spawns, got %d", len(recs))
	}
	for i := range recs {
		for j := i + 1; j < len(recs); j++ {
			d := math.Hypot(recs[i].pos.X-recs[j].pos.X, recs[i].pos.Y-recs[j].pos.Y)
			if d > 20+1e-9 {
				t.Fatalf("spawns %d and %d are %.2f apart", i, j, d)
			}
		}
	}
}

func TestFailedSpawnIsNotCounted(t *testing.T) {
	cfg := baseConfig()
	cfg.Scaling = grunts(3, 5)
	h := newHarness(t, cfg, nil, nil)
	h.factory.fail = "grunt"

	h.o.RequestStartNextWave()
	h.clock.BlockUntil(2)
	snap := h.o.Snapshot()
	if snap.Spawned != 0 || snap.Alive != 0 {
		t.Fatalf("expected failed spawns to be dropped, got %+v", snap)
	}
}

func TestRewardFlowGatesNextWave(t *testing.T) {
	cfg := baseConfig()
	cfg.Duration = time.Second
	cfg.Scaling = grunts(1, 5)
	reward := &fakeReward{}
	h := newHarness(t, cfg, reward, nil)

	var ready []event.NextWaveReady
	event.Subscribe(h.bus, func(e event.NextWaveReady) { ready = append(ready, e) })

	h.runShortWave(t, 2)
	waitFor(t, "reward flow call", func() bool { return len(reward.calls()) == 1 })
	if got := reward.calls(); got[0] != 1 {
		t.Fatalf("expected reward for wave 1, got %v", got)
	}
	snap := h.o.Snapshot()
	if !snap.RewardPending || snap.Ready {
		t.Fatalf("expected reward pending, got %+v", snap)
	}
	if h.o.RequestStartNextWave() {
		t.Fatalf("expected start to be refused before PrepareNextWave")
	}

	h.o.PrepareNextWave()
	snap = h.o.Snapshot()
	if snap.RewardPending || !snap.Ready {
		t.Fatalf("expected ready after PrepareNextWave, got %+v", snap)
	}
	h.flush()
	if len(ready) != 1 || ready[0].Wave != 2 {
		t.Fatalf("unexpected NextWaveReady events %+v", ready)
	}

	if !h.o.RequestStartNextWave() {
		t.Fatalf("expected wave 2 to start")
	}
	// a stray call mid-wave must not pre-arm wave 3
	h.o.PrepareNextWave()
	h.clock.BlockUntil(2)
	h.clock.Advance(time.Second)
	waitFor(t, "wave 2 reward", func() bool { return len(reward.calls()) == 2 })
	if h.o.Snapshot().Ready {
		t.Fatalf("expected wave 3 to wait for its own reward")
	}
}

func TestNoRewardAfterFinalWave(t *testing.T) {
	cfg := baseConfig()
	cfg.TotalWaves = 2
	cfg.Duration = time.Second
	cfg.Scaling = grunts(1, 5)
	reward := &fakeReward{auto: true}
	h := newHarness(t, cfg, reward, nil)

	h.runShortWave(t, 2)
	waitFor(t, "auto reward to ready wave 2", func() bool { return h.o.Snapshot().Ready })

	h.o.RequestStartNextWave()
	h.clock.BlockUntil(1)
	boss := h.factory.records()[1]
	h.factory.kill(boss.id)
	h.clock.Advance(time.Second)
	waitFor(t, "session to clear", func() bool { return h.o.Snapshot().Cleared })

	if got := reward.calls(); len(got) != 1 {
		t.Fatalf("expected reward only after wave 1, got %v", got)
	}
}

func TestFullHealOnNewWave(t *testing.T) {
	for _, heal := range []bool{true, false} {
		cfg := baseConfig()
		cfg.Duration = time.Second
		cfg.FullHealOnNewWave = heal
		cfg.Scaling = grunts(1, 5)
		healer := &fakeHealer{}
		h := newHarness(t, cfg, nil, healer)

		h.runShortWave(t, 2)
		h.runShortWave(t, 2)

		want := 0
		if heal {
			want = 2
		}
		if got := healer.count(); got != want {
			t.Fatalf("heal=%v: expected %d heals, got %d", heal, want, got)
		}
	}
}

func TestShutdownMidWave(t *testing.T) {
	cfg := baseConfig()
	cfg.Scaling = grunts(2, 3)
	reward := &fakeReward{}
	h := newHarness(t, cfg, reward, nil)

	h.o.RequestStartNextWave()
	h.clock.BlockUntil(2)

	h.o.Shutdown()

	if st := h.o.State(); st != BetweenWaves {
		t.Fatalf("expected BetweenWaves after shutdown, got %s", st)
	}
	if n := h.factory.destroyedCount(); n != 2 {
		t.Fatalf("expected live enemies destroyed, got %d", n)
	}
	if got := reward.calls(); len(got) != 0 {
		t.Fatalf("expected no reward flow on shutdown, got %v", got)
	}
	if h.o.RequestStartNextWave() {
		t.Fatalf("expected closed session to refuse new waves")
	}
	if h.o.Snapshot().Ready {
		t.Fatalf("closed session must not report ready")
	}
}

func TestBossDyingDuringSpawnEndsWave(t *testing.T) {
	cfg := baseConfig()
	cfg.TotalWaves = 1
	h := newHarness(t, cfg, nil, nil)
	h.factory.dieOnSpawn = true

	var died, cleared int
	event.Subscribe(h.bus, func(event.EnemyDied) { died++ })
	event.Subscribe(h.bus, func(event.AllWavesCompleted) { cleared++ })

	if !h.o.RequestStartNextWave() {
		t.Fatalf("expected boss wave to start")
	}
	h.clock.BlockUntil(1)
	if alive := h.o.Snapshot().Alive; alive != 0 {
		t.Fatalf("expected dead boss to stay unregistered, got %d alive", alive)
	}

	h.clock.Advance(cfg.TickRate)
	waitFor(t, "boss wave to end", func() bool { return h.o.State() == BetweenWaves })
	if !h.o.Snapshot().Cleared {
		t.Fatalf("expected session cleared after boss death")
	}

	h.flush()
	if died != 1 || cleared != 1 {
		t.Fatalf("expected 1 EnemyDied and 1 AllWavesCompleted, got %d and %d", died, cleared)
	}
}

func TestDeathDuringSpawnFreesSlot(t *testing.T) {
	cfg := baseConfig()
	cfg.Scaling = grunts(3, 5)
	cfg.Budget = spawn.Budget{MaxConcurrent: 1, MaxPerWave: 100}
	h := newHarness(t, cfg, nil, nil)
	h.factory.dieOnSpawn = true

	h.o.RequestStartNextWave()
	h.clock.BlockUntil(2)

	snap := h.o.Snapshot()
	if snap.Alive != 0 || snap.Spawned != 3 {
		t.Fatalf("expected 3 spawned and none alive, got spawned=%d alive=%d", snap.Spawned, snap.Alive)
	}
	if n := h.factory.spawnCount(); n != 3 {
		t.Fatalf("expected the whole batch admitted, got %d", n)
	}
}

func TestShutdownDuringBossWaveIsNotCleared(t *testing.T) {
	cfg := baseConfig()
	cfg.TotalWaves = 1
	h := newHarness(t, cfg, nil, nil)

	var cleared int
	event.Subscribe(h.bus, func(event.AllWavesCompleted) { cleared++ })

	h.o.RequestStartNextWave()
	h.clock.BlockUntil(1)
	h.o.Shutdown()

	if h.o.Snapshot().Cleared {
		t.Fatalf("expected interrupted boss wave not to count as cleared")
	}
	if n := h.factory.destroyedCount(); n != 1 {
		t.Fatalf("expected boss destroyed at shutdown, got %d", n)
	}
	h.flush()
	if cleared != 0 {
		t.Fatalf("expected no AllWavesCompleted, got %d", cleared)
	}
}
