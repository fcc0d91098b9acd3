package reward

import (
	"math/rand"

	"github.com/l1jgo/horde/internal/data"
)

// Weigher tunes offer rolls. *scripting.Engine implements it.
type Weigher interface {
	UpgradeWeight(rarity string, base, wave int) int
	OfferCount(wave, def int) int
}

// Picker rolls upgrade offers. Not safe for concurrent use.
type Picker struct {
	table   *data.UpgradeTable
	weigher Weigher
	rng     *rand.Rand
}

// NewPicker builds a picker over table. weigher may be nil, in which case the
// table's base weights are used as-is.
func NewPicker(table *data.UpgradeTable, weigher Weigher, rng *rand.Rand) *Picker {
	return &Picker{table: table, weigher: weigher, rng: rng}
}

type candidate struct {
	u      *data.UpgradeTemplate
	weight int
}

// Pick draws up to n distinct upgrades, weighted per wave. Upgrades whose
// weight is zero are never offered.
func (p *Picker) Pick(wave, n int) []*data.UpgradeTemplate {
	pool := make([]candidate, 0, p.table.Count())
	total := 0
	for _, u := range p.table.All() {
		w := u.Weight
		if p.weigher != nil {
			w = p.weigher.UpgradeWeight(u.Rarity, u.Weight, wave)
		}
		if w <= 0 {
			continue
		}
		pool = append(pool, candidate{u: u, weight: w})
		total += w
	}

	var out []*data.UpgradeTemplate
	for len(out) < n && len(pool) > 0 {
		r := p.rng.Intn(total)
		i := 0
		for ; i < len(pool)-1; i++ {
			if r < pool[i].weight {
				break
			}
			r -= pool[i].weight
		}
		out = append(out, pool[i].u)
		total -= pool[i].weight
		pool = append(pool[:i], pool[i+1:]...)
	}
	return out
}

// Count returns how many offers to roll after wave.
func (p *Picker) Count(wave, def int) int {
	if p.weigher == nil {
		return def
	}
	return p.weigher.OfferCount(wave, def)
}
