package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/world"
)

// CombatSystem simulates the fight each tick: enemies close in on the player
// and hurt it on contact, and the player strikes the nearest enemy in range
// whenever its attack cooldown is up. Kills go through world.State.Hit, which
// reports the death back to the wave scheduler. Phase 1 (Update).
type CombatSystem struct {
	world        *world.State
	contactRange float64
	cooldown     time.Duration // left until the next player attack
	log          *zap.Logger
}

func NewCombatSystem(ws *world.State, contactRange float64, log *zap.Logger) *CombatSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &CombatSystem{world: ws, contactRange: contactRange, log: log}
}

func (s *CombatSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *CombatSystem) Update(dt time.Duration) {
	if lost := s.world.Advance(dt, s.contactRange); lost > 0 {
		if p := s.world.Player(); p.HP == 0 {
			s.log.Debug("player overwhelmed", zap.Int("max_hp", p.MaxHP))
		}
	}

	s.cooldown -= dt
	if s.cooldown > 0 {
		return
	}
	p := s.world.Player()
	if p.HP == 0 {
		return
	}
	target, ok := s.world.Nearest(p.AttackRange)
	if !ok {
		s.cooldown = 0
		return
	}
	s.world.Hit(target, p.Damage)
	s.cooldown = p.AttackCooldown
}
