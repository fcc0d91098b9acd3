package world

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/spawn"
	"github.com/l1jgo/horde/internal/wave"
)

// State is the headless game world: the enemies the scheduler spawned and the
// player they chase. It implements wave.Factory and wave.Healer.
//
// The scheduler calls Spawn from its own goroutines while the host tick loop
// runs the systems, so every method takes mu. Death callbacks are always
// invoked after mu is released.
type State struct {
	mu sync.Mutex

	ents    *ecs.World
	pos     *ecs.Store[spawn.Position]
	enemies *ecs.Store[Enemy]
	grid    *AOIGrid

	templates *data.EnemyTable
	player    Player
	contact   float64 // fractional contact damage carried between steps
	kills     int
	log       *zap.Logger
}

var (
	_ wave.Factory = (*State)(nil)
	_ wave.Healer  = (*State)(nil)
)

func NewState(templates *data.EnemyTable, player Player, log *zap.Logger) *State {
	if log == nil {
		log = zap.NewNop()
	}
	s := &State{
		ents:      ecs.NewWorld(),
		pos:       ecs.NewStore[spawn.Position](),
		enemies:   ecs.NewStore[Enemy](),
		grid:      NewAOIGrid(),
		templates: templates,
		player:    player,
		log:       log,
	}
	s.ents.Track(s.pos)
	s.ents.Track(s.enemies)
	return s
}

// Spawn creates an enemy from its template at pos.
func (s *State) Spawn(template string, pos spawn.Position, onDeath wave.DeathFunc) (ecs.EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tpl := s.templates.Get(template)
	if tpl == nil {
		return 0, fmt.Errorf("unknown enemy template %q", template)
	}
	id := s.ents.CreateEntity()
	p := pos
	s.pos.Set(id, &p)
	s.enemies.Set(id, newEnemy(tpl, onDeath))
	s.grid.Add(id, p)
	return id, nil
}

// Destroy force-removes an enemy without running its death callback. The
// entity is dropped at the next FlushDestroyed.
func (s *State) Destroy(id ecs.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enemies.Get(id)
	if !ok || e.Dead {
		return
	}
	s.retireLocked(id, e)
}

// Hit deals damage to an enemy and reports whether it died. The death
// callback runs once, outside the lock.
func (s *State) Hit(id ecs.EntityID, damage int) bool {
	s.mu.Lock()
	e, ok := s.enemies.Get(id)
	if !ok || e.Dead {
		s.mu.Unlock()
		return false
	}
	e.HP -= damage
	if e.HP > 0 {
		s.mu.Unlock()
		return false
	}
	e.HP = 0
	s.retireLocked(id, e)
	s.kills++
	onDeath, tpl := e.onDeath, e.Template
	s.mu.Unlock()

	s.log.Debug("enemy killed", zap.Stringer("entity", id), zap.String("template", tpl))
	if onDeath != nil {
		onDeath(id)
	}
	return true
}

// Kill removes an enemy as if its HP ran out.
func (s *State) Kill(id ecs.EntityID) bool {
	return s.Hit(id, math.MaxInt32)
}

func (s *State) retireLocked(id ecs.EntityID, e *Enemy) {
	e.Dead = true
	if p, ok := s.pos.Get(id); ok {
		s.grid.Remove(id, *p)
	}
	s.ents.MarkForDestruction(id)
}

// FlushDestroyed drops every dead or removed enemy from the stores.
func (s *State) FlushDestroyed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ents.FlushDestroyQueue()
}

// Advance moves every living enemy toward the player by speed*dt and applies
// contact damage from those within contactRange. Returns the whole HP lost.
func (s *State) Advance(dt time.Duration, contactRange float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.player.Pos
	secs := dt.Seconds()
	ecs.Each2(s.pos, s.enemies, func(id ecs.EntityID, p *spawn.Position, e *Enemy) {
		if e.Dead {
			return
		}
		dx, dy := target.X-p.X, target.Y-p.Y
		dist := math.Hypot(dx, dy)
		if dist <= contactRange {
			s.contact += float64(e.Damage) * secs
			return
		}
		step := e.Speed * secs
		if step <= 0 {
			return
		}
		if step > dist-contactRange {
			step = dist - contactRange
		}
		from := *p
		p.X += dx / dist * step
		p.Y += dy / dist * step
		s.grid.Move(id, from, *p)
	})

	lost := int(s.contact)
	s.contact -= float64(lost)
	if lost > s.player.HP {
		lost = s.player.HP
	}
	s.player.HP -= lost
	return lost
}

// Nearest returns the closest living enemy within radius of the player.
func (s *State) Nearest(radius float64) (ecs.EntityID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	center := s.player.Pos
	var (
		best  ecs.EntityID
		bestD = math.Inf(1)
	)
	for _, id := range s.grid.Nearby(center, radius) {
		p, ok := s.pos.Get(id)
		if !ok {
			continue
		}
		d := math.Hypot(p.X-center.X, p.Y-center.Y)
		if d <= radius && (d < bestD || d == bestD && id < best) {
			best, bestD = id, d
		}
	}
	return best, !best.IsZero()
}

// RestoreFullHealth refills the player's HP.
func (s *State) RestoreFullHealth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.HP = s.player.MaxHP
	s.contact = 0
}

// Heal restores up to n HP without exceeding the maximum.
func (s *State) Heal(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.HP += n
	if s.player.HP > s.player.MaxHP {
		s.player.HP = s.player.MaxHP
	}
}

// ApplyUpgrade applies a reward upgrade to the player.
func (s *State) ApplyUpgrade(u *data.UpgradeTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.apply(u)
}

// Player returns a copy of the player.
func (s *State) Player() Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.player
	p.Upgrades = append([]string(nil), s.player.Upgrades...)
	return p
}

// EnemyCount returns the number of living enemies.
func (s *State) EnemyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	s.enemies.Each(func(_ ecs.EntityID, e *Enemy) {
		if !e.Dead {
			n++
		}
	})
	return n
}

// Enemy returns a copy of a living or not-yet-flushed enemy.
func (s *State) Enemy(id ecs.EntityID) (Enemy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enemies.Get(id)
	if !ok {
		return Enemy{}, false
	}
	return *e, true
}

// Position returns where an enemy currently stands.
func (s *State) Position(id ecs.EntityID) (spawn.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pos.Get(id)
	if !ok {
		return spawn.Position{}, false
	}
	return *p, true
}

// Kills returns how many enemies died to damage so far.
func (s *State) Kills() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kills
}

// SetTemplates swaps the enemy table, used when data is reloaded between
// sessions.
func (s *State) SetTemplates(t *data.EnemyTable) {
	s.mu.Lock()
	s.templates = t
	s.mu.Unlock()
}

// Reset drops every enemy and restores the player for a fresh session.
func (s *State) Reset(player Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enemies.Each(func(id ecs.EntityID, e *Enemy) {
		if !e.Dead {
			s.retireLocked(id, e)
		}
	})
	s.ents.FlushDestroyQueue()
	s.player = player
	s.contact = 0
	s.kills = 0
}
