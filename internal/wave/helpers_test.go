package wave

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/core/event"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/spawn"
)

type spawnRecord struct {
	id       ecs.EntityID
	template string
	pos      spawn.Position
}

// fakeFactory hands out sequential handles and remembers each death callback
// so tests can kill entities on demand.
type fakeFactory struct {
	mu        sync.Mutex
	next      uint32
	spawns    []spawnRecord
	deaths    map[ecs.EntityID]DeathFunc
	destroyed []ecs.EntityID
	fail      string

	// dieOnSpawn fires the death callback before Spawn returns.
	dieOnSpawn bool
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{deaths: make(map[ecs.EntityID]DeathFunc)}
}

func (f *fakeFactory) Spawn(template string, pos spawn.Position, onDeath DeathFunc) (ecs.EntityID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if template == f.fail {
		return 0, fmt.Errorf("template %q unavailable", template)
	}
	f.next++
	id := ecs.NewEntityID(f.next, 0)
	f.spawns = append(f.spawns, spawnRecord{id: id, template: template, pos: pos})
	f.deaths[id] = onDeath
	if f.dieOnSpawn {
		onDeath(id)
	}
	return id, nil
}

func (f *fakeFactory) Destroy(id ecs.EntityID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, id)
}

func (f *fakeFactory) kill(id ecs.EntityID) {
	f.mu.Lock()
	fn := f.deaths[id]
	f.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

func (f *fakeFactory) spawnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spawns)
}

func (f *fakeFactory) records() []spawnRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]spawnRecord(nil), f.spawns...)
}

func (f *fakeFactory) destroyedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.destroyed)
}

type fakeReward struct {
	mu       sync.Mutex
	waves    []int
	resumers []Resumer
	auto     bool
}

func (r *fakeReward) WaveCompleted(wave int, res Resumer) {
	r.mu.Lock()
	r.waves = append(r.waves, wave)
	r.resumers = append(r.resumers, res)
	auto := r.auto
	r.mu.Unlock()
	if auto {
		res.PrepareNextWave()
	}
}

func (r *fakeReward) calls() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.waves...)
}

type fakeHealer struct {
	mu    sync.Mutex
	heals int
}

func (h *fakeHealer) RestoreFullHealth() {
	h.mu.Lock()
	h.heals++
	h.mu.Unlock()
}

func (h *fakeHealer) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.heals
}

func grunts(batch int, interval float64) data.ScalingTable {
	return data.ScalingTable{{
		Template:      "grunt",
		StartWave:     1,
		EndWave:       data.Unbounded,
		BaseBatchSize: batch,
		BaseInterval:  interval,
		MinInterval:   interval,
	}}
}

func baseConfig() Config {
	return Config{
		TotalWaves:       3,
		Duration:         10 * time.Second,
		TickRate:         time.Second,
		BossTemplate:     "warlord",
		FallbackTemplate: "grunt",
		Budget:           spawn.Budget{MaxConcurrent: 100, MaxPerWave: 100},
		Area:             spawn.DefaultArea(),
		Seed:             42,
	}
}

type harness struct {
	o       *Orchestrator
	clock   clockwork.FakeClock
	factory *fakeFactory
	bus     *event.Bus
}

func newHarness(t *testing.T, cfg Config, reward RewardFlow, healer Healer) *harness {
	t.Helper()
	h := &harness{
		clock:   clockwork.NewFakeClock(),
		factory: newFakeFactory(),
		bus:     event.NewBus(),
	}
	deps := Deps{
		Factory: h.factory,
		Bus:     h.bus,
		Clock:   h.clock,
	}
	// keep interface values nil when no collaborator is given
	if reward != nil {
		deps.Reward = reward
	}
	if healer != nil {
		deps.Healer = healer
	}
	h.o = New(cfg, deps)
	t.Cleanup(h.o.Shutdown)
	return h
}

// waitFor polls cond in real time; the scheduler's goroutines react to the
// fake clock asynchronously.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// runShortWave starts a wave whose duration is one tick and lets it finish.
// waiters is the number of timers the wave holds while running.
func (h *harness) runShortWave(t *testing.T, waiters int) {
	t.Helper()
	want := h.o.Wave() + 1
	if !h.o.RequestStartNextWave() {
		t.Fatalf("expected wave %d to start", want)
	}
	h.clock.BlockUntil(waiters)
	h.clock.Advance(h.o.cfg.Duration)
	waitFor(t, fmt.Sprintf("wave %d to finish", want), func() bool {
		s := h.o.Snapshot()
		return s.Wave == want && s.State == BetweenWaves
	})
}

// flush delivers everything emitted so far to the test's subscribers.
func (h *harness) flush() {
	h.bus.SwapBuffers()
	h.bus.DispatchAll()
}
