package world

import (
	"fmt"
	"time"

	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/spawn"
)

// Upgrade stats understood by ApplyUpgrade.
const (
	StatMaxHP       = "max_hp"
	StatDamage      = "damage"
	StatAttackRange = "attack_range"
	StatAttackSpeed = "attack_speed" // amount is a cooldown cut in percent
)

// minAttackCooldown keeps attack-speed stacking from reaching zero.
const minAttackCooldown = 50 * time.Millisecond

// Player is the simulated hero the horde chases.
type Player struct {
	Pos            spawn.Position
	HP             int
	MaxHP          int
	Damage         int
	AttackRange    float64
	AttackCooldown time.Duration
	Upgrades       []string // applied upgrade IDs, in order
}

func (p *Player) apply(u *data.UpgradeTemplate) error {
	switch u.Stat {
	case StatMaxHP:
		p.MaxHP += u.Amount
		p.HP += u.Amount
		if p.HP > p.MaxHP {
			p.HP = p.MaxHP
		}
	case StatDamage:
		p.Damage += u.Amount
	case StatAttackRange:
		p.AttackRange += float64(u.Amount)
	case StatAttackSpeed:
		cut := p.AttackCooldown * time.Duration(u.Amount) / 100
		p.AttackCooldown -= cut
		if p.AttackCooldown < minAttackCooldown {
			p.AttackCooldown = minAttackCooldown
		}
	default:
		return fmt.Errorf("upgrade %q: unknown stat %q", u.ID, u.Stat)
	}
	p.Upgrades = append(p.Upgrades, u.ID)
	return nil
}
