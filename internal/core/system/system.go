package system

import "time"

// Phase orders systems inside one host tick.
type Phase int

const (
	PhaseDispatch   Phase = iota // 0: deliver last tick's events
	PhaseUpdate                  // 1: pursuit and combat
	PhasePostUpdate              // 2: stats, bookkeeping
	PhaseCleanup                 // 3: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseDispatch:
		return "dispatch"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is implemented by everything the host loop ticks.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
