package wave

import "time"

// State is the scheduler's top-level state. Only the orchestrator moves it.
type State int

const (
	BetweenWaves State = iota
	WaveInProgress
)

func (s State) String() string {
	switch s {
	case BetweenWaves:
		return "between-waves"
	case WaveInProgress:
		return "wave-in-progress"
	}
	return "unknown"
}

// Snapshot is a consistent read of the scheduler for UI surfaces.
type Snapshot struct {
	State         State
	Wave          int           // current or last finished wave, 0 before the first
	Boss          bool          // current or last wave was the boss wave
	Remaining     time.Duration // countdown of a running normal wave, else 0
	Spawned       int           // total spawned this wave, never decremented
	Alive         int
	Ready         bool // a start request would be accepted
	RewardPending bool
	Cleared       bool // every wave is done; no further starts
}
