package system

import (
	"time"

	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/world"
)

// RegenSystem restores player HP once per elapsed second.
// Phase 2 (PostUpdate); runs every tick, the accumulator gates actual regen.
type RegenSystem struct {
	world     *world.State
	perSecond int
	acc       time.Duration
}

func NewRegenSystem(ws *world.State, perSecond int) *RegenSystem {
	return &RegenSystem{world: ws, perSecond: perSecond}
}

func (s *RegenSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *RegenSystem) Update(dt time.Duration) {
	if s.perSecond <= 0 {
		return
	}
	s.acc += dt
	for s.acc >= time.Second {
		s.acc -= time.Second
		s.world.Heal(s.perSecond)
	}
}
