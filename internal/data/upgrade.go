package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rarity tiers understood by the reward scripts.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// UpgradeTemplate is one upgrade the post-wave reward flow can offer.
type UpgradeTemplate struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Rarity string `yaml:"rarity"`
	Weight int    `yaml:"weight"` // base weight before rarity scaling
	Stat   string `yaml:"stat"`   // max_hp, damage, attack_range, attack_speed
	Amount int    `yaml:"amount"`
}

type upgradeListFile struct {
	Upgrades []UpgradeTemplate `yaml:"upgrades"`
}

// UpgradeTable keeps upgrades in file order so weighted rolls are reproducible.
type UpgradeTable struct {
	list []*UpgradeTemplate
	byID map[string]*UpgradeTemplate
}

func LoadUpgradeTable(path string) (*UpgradeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upgrade_list: %w", err)
	}
	var f upgradeListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse upgrade_list: %w", err)
	}
	return NewUpgradeTable(f.Upgrades)
}

func NewUpgradeTable(list []UpgradeTemplate) (*UpgradeTable, error) {
	t := &UpgradeTable{byID: make(map[string]*UpgradeTemplate, len(list))}
	for i := range list {
		u := &list[i]
		if u.ID == "" {
			return nil, fmt.Errorf("upgrade #%d: empty id", i)
		}
		if _, dup := t.byID[u.ID]; dup {
			return nil, fmt.Errorf("upgrade %q: duplicate id", u.ID)
		}
		switch u.Rarity {
		case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		case "":
			u.Rarity = RarityCommon
		default:
			return nil, fmt.Errorf("upgrade %q: unknown rarity %q", u.ID, u.Rarity)
		}
		if u.Weight < 0 {
			return nil, fmt.Errorf("upgrade %q: weight must be >= 0, got %d", u.ID, u.Weight)
		}
		t.byID[u.ID] = u
		t.list = append(t.list, u)
	}
	return t, nil
}

func (t *UpgradeTable) Get(id string) *UpgradeTemplate { return t.byID[id] }

func (t *UpgradeTable) Count() int { return len(t.list) }

// All returns the upgrades in file order. Callers must not modify them.
func (t *UpgradeTable) All() []*UpgradeTemplate { return t.list }
