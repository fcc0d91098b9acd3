package wave

import (
	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/spawn"
)

// DeathFunc is handed to every spawned entity. The entity calls it when it
// dies; extra calls are tolerated.
type DeathFunc func(ecs.EntityID)

// Factory instantiates and force-destroys entities. The scheduler knows
// nothing about what an entity does once spawned.
type Factory interface {
	Spawn(template string, pos spawn.Position, onDeath DeathFunc) (ecs.EntityID, error)
	Destroy(id ecs.EntityID)
}

// Healer restores the player at wave start when full heal is enabled.
type Healer interface {
	RestoreFullHealth()
}

// Resumer is the re-entry point the reward flow calls when the player is
// ready to continue.
type Resumer interface {
	PrepareNextWave()
}

// RewardFlow runs the post-wave upgrade or shop selection. It is called after
// teardown, outside any scheduler lock, and may call PrepareNextWave before
// returning or at any later time.
type RewardFlow interface {
	WaveCompleted(wave int, r Resumer)
}
