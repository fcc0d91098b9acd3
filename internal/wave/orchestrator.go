package wave

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/l1jgo/horde/internal/core/event"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/spawn"
)

// Config is the load-time configuration of one session. It is not changed
// while the session runs.
type Config struct {
	TotalWaves        int
	Duration          time.Duration
	TickRate          time.Duration
	FullHealOnNewWave bool
	BossTemplate      string
	FallbackTemplate  string
	Budget            spawn.Budget
	Area              spawn.Area
	Scaling           data.ScalingTable
	Seed              int64
}

// Deps are the collaborators of a session. Factory is required; the rest
// may be nil.
type Deps struct {
	Factory Factory
	Healer  Healer
	Reward  RewardFlow
	Bus     *event.Bus
	Clock   clockwork.Clock
	Log     *zap.Logger
}

// session is the per-wave state. Fields other than ctx, cancel and registry
// are guarded by Orchestrator.mu.
type session struct {
	wave     int
	boss     bool
	ctx      context.Context
	cancel   context.CancelFunc
	deadline time.Time
	spawned  int
	ended    bool
	registry *spawn.Registry
}

// Orchestrator runs the wave state machine of one game session. Create one
// per session with New and end it with Shutdown.
//
// All admission decisions and state transitions happen under mu, which is
// the single serialization point shared by the per-category spawn goroutines.
type Orchestrator struct {
	cfg     Config
	factory Factory
	healer  Healer
	reward  RewardFlow
	bus     *event.Bus
	clock   clockwork.Clock
	log     *zap.Logger

	root     context.Context
	stopRoot context.CancelFunc
	wg       sync.WaitGroup

	mu            sync.Mutex
	rng           *rand.Rand
	state         State
	wave          int
	ready         bool
	rewardPending bool
	cleared       bool
	closed        bool
	sess          *session
}

func New(cfg Config, deps Deps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 100 * time.Millisecond
	}
	root, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:      cfg,
		factory:  deps.Factory,
		healer:   deps.Healer,
		reward:   deps.Reward,
		bus:      deps.Bus,
		clock:    deps.Clock,
		log:      deps.Log,
		root:     root,
		stopRoot: stop,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		state:    BetweenWaves,
		ready:    true,
	}
}

// RequestStartNextWave starts the next wave. It only acts between waves,
// once the previous wave's reward flow has called PrepareNextWave and while
// waves remain; every other call is ignored and returns false.
func (o *Orchestrator) RequestStartNextWave() bool {
	o.mu.Lock()
	if o.state != BetweenWaves || !o.ready || o.cleared || o.closed {
		st, ready := o.state, o.ready
		o.mu.Unlock()
		o.log.Debug("start request ignored",
			zap.Stringer("state", st), zap.Bool("ready", ready))
		return false
	}

	o.wave++
	ctx, cancel := context.WithCancel(o.root)
	s := &session{
		wave:     o.wave,
		boss:     o.wave >= o.cfg.TotalWaves,
		ctx:      ctx,
		cancel:   cancel,
		registry: spawn.NewRegistry(),
	}
	if !s.boss {
		s.deadline = o.clock.Now().Add(o.cfg.Duration)
	}
	o.sess = s
	o.state = WaveInProgress
	o.ready = false
	o.wg.Add(1)
	o.mu.Unlock()

	if o.cfg.FullHealOnNewWave && o.healer != nil {
		o.healer.RestoreFullHealth()
	}

	started := event.WaveStarted{Wave: s.wave, Boss: s.boss}
	if !s.boss {
		started.Duration = o.cfg.Duration
	}
	event.Emit(o.bus, started)
	o.log.Info("wave started", zap.Int("wave", s.wave), zap.Bool("boss", s.boss))

	go o.runWave(s)
	return true
}

// PrepareNextWave marks the next wave ready. The reward flow calls it once
// the player has finished choosing; without a pending reward it does nothing.
func (o *Orchestrator) PrepareNextWave() {
	o.mu.Lock()
	if !o.rewardPending || o.state != BetweenWaves || o.closed {
		o.mu.Unlock()
		return
	}
	o.rewardPending = false
	o.ready = true
	next := o.wave + 1
	o.mu.Unlock()

	event.Emit(o.bus, event.NextWaveReady{Wave: next})
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Wave() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.wave
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		State:         o.state,
		Wave:          o.wave,
		Ready:         o.state == BetweenWaves && o.ready && !o.cleared && !o.closed,
		RewardPending: o.rewardPending,
		Cleared:       o.cleared,
	}
	if s := o.sess; s != nil {
		snap.Boss = s.boss
		snap.Spawned = s.spawned
		snap.Alive = s.registry.Count()
		if o.state == WaveInProgress && !s.boss {
			if rem := s.deadline.Sub(o.clock.Now()); rem > 0 {
				snap.Remaining = rem
			}
		}
	}
	return snap
}

// Shutdown ends the session: a running wave is cancelled and torn down
// without invoking the reward flow. It blocks until the wave goroutines exit.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.stopRoot()
	o.wg.Wait()
}

// complete tears the wave down and moves the machine back between waves.
func (o *Orchestrator) complete(s *session) {
	o.mu.Lock()
	s.ended = true
	stragglers := s.registry.Clear()
	spawned := s.spawned
	o.mu.Unlock()

	for _, h := range stragglers {
		o.factory.Destroy(h)
	}

	o.mu.Lock()
	o.state = BetweenWaves
	last := s.wave >= o.cfg.TotalWaves
	closed := o.closed
	switch {
	case closed:
	case last:
		o.cleared = true
	case o.reward != nil:
		o.rewardPending = true
	default:
		o.ready = true
	}
	o.mu.Unlock()

	s.cancel()

	event.Emit(o.bus, event.WaveCompleted{
		Wave:      s.wave,
		Boss:      s.boss,
		Spawned:   spawned,
		Survivors: len(stragglers),
	})
	o.log.Info("wave completed",
		zap.Int("wave", s.wave),
		zap.Int("spawned", spawned),
		zap.Int("survivors", len(stragglers)))

	switch {
	case closed:
		return
	case last:
		event.Emit(o.bus, event.AllWavesCompleted{Waves: s.wave})
		o.log.Info("all waves cleared", zap.Int("waves", s.wave))
	case o.reward != nil:
		o.reward.WaveCompleted(s.wave, o)
	default:
		event.Emit(o.bus, event.NextWaveReady{Wave: s.wave + 1})
	}
}
