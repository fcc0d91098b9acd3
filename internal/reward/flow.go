package reward

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/l1jgo/horde/internal/core/event"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/wave"
)

// ErrNoPendingOffer is returned by Choose and Skip when nothing is on offer.
var ErrNoPendingOffer = errors.New("no pending reward offer")

// Applier applies a chosen upgrade to the player. *world.State implements it.
type Applier interface {
	ApplyUpgrade(u *data.UpgradeTemplate) error
}

// Flow is the post-wave upgrade selection. After every completed wave it rolls
// offers and either applies the first at once (auto-pick) or holds them until
// Choose or Skip. Either way the scheduler is resumed through PrepareNextWave.
type Flow struct {
	mu       sync.Mutex
	picker   *Picker
	applier  Applier
	bus      *event.Bus
	offers   int
	autoPick bool
	log      *zap.Logger

	pending *offer
}

type offer struct {
	wave    int
	choices []*data.UpgradeTemplate
	resumer wave.Resumer
}

var _ wave.RewardFlow = (*Flow)(nil)

func NewFlow(picker *Picker, applier Applier, bus *event.Bus, offers int, autoPick bool, log *zap.Logger) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{
		picker:   picker,
		applier:  applier,
		bus:      bus,
		offers:   offers,
		autoPick: autoPick,
		log:      log,
	}
}

// WaveCompleted rolls the offers for a finished wave.
func (f *Flow) WaveCompleted(w int, r wave.Resumer) {
	f.mu.Lock()
	choices := f.picker.Pick(w, f.picker.Count(w, f.offers))
	ids := make([]string, len(choices))
	for i, u := range choices {
		ids[i] = u.ID
	}
	event.Emit(f.bus, event.RewardOffered{Wave: w, Offers: ids})
	f.log.Info("reward offered", zap.Int("wave", w), zap.Strings("offers", ids))

	if len(choices) == 0 {
		f.mu.Unlock()
		r.PrepareNextWave()
		return
	}
	if f.autoPick {
		f.applyLocked(w, choices[0])
		f.mu.Unlock()
		r.PrepareNextWave()
		return
	}
	f.pending = &offer{wave: w, choices: choices, resumer: r}
	f.mu.Unlock()
}

// Pending returns the upgrade IDs currently on offer.
func (f *Flow) Pending() (w int, ids []string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return 0, nil, false
	}
	ids = make([]string, len(f.pending.choices))
	for i, u := range f.pending.choices {
		ids[i] = u.ID
	}
	return f.pending.wave, ids, true
}

// Choose applies the i-th pending offer and resumes the scheduler.
func (f *Flow) Choose(i int) error {
	f.mu.Lock()
	p := f.pending
	if p == nil {
		f.mu.Unlock()
		return ErrNoPendingOffer
	}
	if i < 0 || i >= len(p.choices) {
		f.mu.Unlock()
		return fmt.Errorf("choice %d out of range [0, %d)", i, len(p.choices))
	}
	f.applyLocked(p.wave, p.choices[i])
	f.pending = nil
	f.mu.Unlock()

	p.resumer.PrepareNextWave()
	return nil
}

// Skip declines the pending offers and resumes the scheduler.
func (f *Flow) Skip() error {
	f.mu.Lock()
	p := f.pending
	f.pending = nil
	f.mu.Unlock()
	if p == nil {
		return ErrNoPendingOffer
	}
	f.log.Info("reward skipped", zap.Int("wave", p.wave))
	p.resumer.PrepareNextWave()
	return nil
}

func (f *Flow) applyLocked(w int, u *data.UpgradeTemplate) {
	if err := f.applier.ApplyUpgrade(u); err != nil {
		f.log.Warn("upgrade not applied", zap.Int("wave", w), zap.String("upgrade", u.ID), zap.Error(err))
		return
	}
	event.Emit(f.bus, event.RewardApplied{Wave: w, Upgrade: u.ID})
	f.log.Info("upgrade applied", zap.Int("wave", w), zap.String("upgrade", u.ID))
}
