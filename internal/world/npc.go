package world

import (
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/wave"
)

// Enemy holds runtime data for a creature the scheduler spawned.
// Guarded by the owning State's mutex.
type Enemy struct {
	Template string
	Name     string
	HP       int
	MaxHP    int
	Speed    float64 // world units per second
	Damage   int     // contact damage per second
	Boss     bool

	// Dead is set on kill or forced removal; the entity stays in the stores
	// until the cleanup system flushes the destroy queue.
	Dead bool

	onDeath wave.DeathFunc
}

func newEnemy(tpl *data.EnemyTemplate, onDeath wave.DeathFunc) *Enemy {
	return &Enemy{
		Template: tpl.ID,
		Name:     tpl.Name,
		HP:       tpl.HP,
		MaxHP:    tpl.HP,
		Speed:    tpl.Speed,
		Damage:   tpl.Damage,
		Boss:     tpl.Boss,
		onDeath:  onDeath,
	}
}
