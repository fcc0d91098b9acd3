package wave

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/core/event"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/spawn"
)

func (o *Orchestrator) runWave(s *session) {
	defer o.wg.Done()
	if s.boss {
		o.runBoss(s)
	} else {
		o.runNormal(s)
	}
	o.complete(s)
}

// runNormal runs one spawn goroutine per eligible category next to the
// countdown. The wave ends when the countdown reaches zero; spawn goroutines
// are cancelled mid-wait, not drained.
func (o *Orchestrator) runNormal(s *session) {
	entries := o.cfg.Scaling.EligibleAt(s.wave)
	if len(o.cfg.Scaling) == 0 {
		entries = []data.ScalingEntry{data.DefaultScalingEntry(o.cfg.FallbackTemplate)}
	}

	var wg sync.WaitGroup
	for _, e := range entries {
		e := e
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.spawnLoop(s.ctx, s, e)
		}()
	}
	o.log.Debug("spawn tasks launched", zap.Int("wave", s.wave), zap.Int("categories", len(entries)))

	o.countdown(s)

	o.mu.Lock()
	s.ended = true
	o.mu.Unlock()
	s.cancel()
	wg.Wait()
}

// spawnLoop issues batches for one category: the first immediately, then one
// every Interval until the wave is cancelled. Batches never overlap.
func (o *Orchestrator) spawnLoop(ctx context.Context, s *session, e data.ScalingEntry) {
	interval := data.Interval(e, s.wave)
	batch := data.Batch(e, s.wave)
	for {
		o.spawnBatch(s, e, batch)

		t := o.clock.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.Chan():
		}
	}
}

// countdown ticks until the wave deadline, emitting the whole seconds left
// whenever that value changes. It returns early if the session is cancelled.
func (o *Orchestrator) countdown(s *session) {
	ticker := o.clock.NewTicker(o.cfg.TickRate)
	defer ticker.Stop()

	last := -1
	for {
		remaining := s.deadline.Sub(o.clock.Now())
		if secs := ceilSeconds(remaining); secs != last {
			last = secs
			event.Emit(o.bus, event.CountdownChanged{Wave: s.wave, Remaining: secs})
		}
		if remaining <= 0 {
			return
		}
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}

// runBoss spawns the boss at the area center and polls once per tick until
// the registry is empty. There is no timeout.
func (o *Orchestrator) runBoss(s *session) {
	o.mu.Lock()
	if !s.ended {
		o.spawnLocked(s, o.cfg.BossTemplate, o.cfg.Area.Center())
	}
	o.mu.Unlock()

	ticker := o.clock.NewTicker(o.cfg.TickRate)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.Chan():
		}
		if s.registry.Count() == 0 {
			return
		}
	}
}

// spawnBatch admits up to n spawns for e. Admission and registration happen
// under mu so concurrent categories never overshoot the budget. A rejected
// attempt is dropped; the caller simply waits for its next cycle.
func (o *Orchestrator) spawnBatch(s *session, e data.ScalingEntry, n int) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s.ended || !o.clock.Now().Before(s.deadline) {
		return 0
	}

	var anchor spawn.Position
	if e.ClusterRadius > 0 {
		anchor = o.cfg.Area.RandomPointInArea(o.rng)
	}

	admitted := 0
	for i := 0; i < n; i++ {
		if !o.cfg.Budget.Admits(s.registry.Count(), s.spawned) {
			o.log.Debug("spawn suppressed by budget",
				zap.Int("wave", s.wave),
				zap.String("template", e.Template),
				zap.Int("dropped", n-i))
			break
		}
		var pos spawn.Position
		if e.ClusterRadius > 0 {
			pos = spawn.RandomPointNearCenter(o.rng, anchor, e.ClusterRadius)
		} else {
			pos = o.cfg.Area.RandomPointInArea(o.rng)
		}
		if o.spawnLocked(s, e.Template, pos) {
			admitted++
		}
	}
	return admitted
}

// spawnLocked instantiates one entity and registers it. Caller holds mu.
func (o *Orchestrator) spawnLocked(s *session, template string, pos spawn.Position) bool {
	reg := s.registry
	h, err := o.factory.Spawn(template, pos, func(id ecs.EntityID) {
		o.handleDeath(reg, id)
	})
	if err != nil {
		o.log.Warn("spawn failed",
			zap.Int("wave", s.wave),
			zap.String("template", template),
			zap.Error(err))
		return false
	}
	s.spawned++
	event.Emit(o.bus, event.EnemySpawned{
		Wave:     s.wave,
		Entity:   h,
		Template: template,
		X:        pos.X,
		Y:        pos.Y,
	})
	if !reg.Register(h) {
		// died before the factory returned; the registry already saw the death
		o.log.Debug("entity died during spawn",
			zap.Int("wave", s.wave),
			zap.String("template", template))
		event.Emit(o.bus, event.EnemyDied{Entity: h})
	}
	return true
}

// handleDeath is the death notification path. Repeats and notifications for
// entities of an earlier wave fall through as no-ops.
func (o *Orchestrator) handleDeath(reg *spawn.Registry, id ecs.EntityID) {
	if reg.Deregister(id) {
		event.Emit(o.bus, event.EnemyDied{Entity: id})
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
