package system

import (
	"testing"
	"time"
)

type recorder struct {
	phase Phase
	name  string
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }

func (r recorder) Update(time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerOrdersByPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{PhaseCleanup, "cleanup", &log})
	r.Register(recorder{PhaseUpdate, "combat", &log})
	r.Register(recorder{PhaseDispatch, "dispatch", &log})
	r.Register(recorder{PhaseUpdate, "pursuit", &log})

	r.Tick(100 * time.Millisecond)

	want := []string{"dispatch", "combat", "pursuit", "cleanup"}
	if len(log) != len(want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, log)
		}
	}
	if r.Ticks() != 1 {
		t.Fatalf("expected 1 tick, got %d", r.Ticks())
	}
}
