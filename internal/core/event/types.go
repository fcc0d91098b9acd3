package event

import (
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
)

// WaveStarted fires when a wave enters the in-progress state.
type WaveStarted struct {
	Wave     int
	Boss     bool
	Duration time.Duration // zero for the boss wave
}

// CountdownChanged carries the whole seconds left in a normal wave.
type CountdownChanged struct {
	Wave      int
	Remaining int
}

// WaveCompleted fires after teardown. Survivors counts force-destroyed stragglers.
type WaveCompleted struct {
	Wave      int
	Boss      bool
	Spawned   int
	Survivors int
}

type AllWavesCompleted struct {
	Waves int
}

// NextWaveReady fires once the reward flow hands control back.
type NextWaveReady struct {
	Wave int // number the next accepted start will run
}

type EnemySpawned struct {
	Wave     int
	Entity   ecs.EntityID
	Template string
	X, Y     float64
}

type EnemyDied struct {
	Entity ecs.EntityID
}

type RewardOffered struct {
	Wave   int
	Offers []string
}

type RewardApplied struct {
	Wave    int
	Upgrade string
}
