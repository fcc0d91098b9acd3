package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnemyTemplate holds static data for one enemy category loaded from YAML.
type EnemyTemplate struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	HP     int     `yaml:"hp"`
	Speed  float64 `yaml:"speed"`  // world units per second
	Damage int     `yaml:"damage"` // contact damage per second
	Boss   bool    `yaml:"boss"`
}

type enemyListFile struct {
	Enemies []EnemyTemplate `yaml:"enemies"`
}

// EnemyTable holds all enemy templates indexed by ID.
type EnemyTable struct {
	templates map[string]*EnemyTemplate
	order     []string
}

// LoadEnemyTable loads enemy templates from a YAML file.
func LoadEnemyTable(path string) (*EnemyTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read enemy_list: %w", err)
	}
	var f enemyListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse enemy_list: %w", err)
	}
	return NewEnemyTable(f.Enemies)
}

// NewEnemyTable indexes templates. IDs must be unique and non-empty.
func NewEnemyTable(list []EnemyTemplate) (*EnemyTable, error) {
	t := &EnemyTable{
		templates: make(map[string]*EnemyTemplate, len(list)),
		order:     make([]string, 0, len(list)),
	}
	for i := range list {
		e := &list[i]
		if e.ID == "" {
			return nil, fmt.Errorf("enemy #%d: empty id", i)
		}
		if _, dup := t.templates[e.ID]; dup {
			return nil, fmt.Errorf("enemy %q: duplicate id", e.ID)
		}
		if e.HP <= 0 {
			e.HP = 1
		}
		t.templates[e.ID] = e
		t.order = append(t.order, e.ID)
	}
	return t, nil
}

// Get returns a template by ID, or nil if not found.
func (t *EnemyTable) Get(id string) *EnemyTemplate {
	if t == nil {
		return nil
	}
	return t.templates[id]
}

// Count returns the number of loaded templates.
func (t *EnemyTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.templates)
}

// Bosses returns the templates flagged as bosses, in file order.
func (t *EnemyTable) Bosses() []*EnemyTemplate {
	var out []*EnemyTemplate
	for _, id := range t.order {
		if e := t.templates[id]; e.Boss {
			out = append(out, e)
		}
	}
	return out
}

// CheckReferences verifies that every template the scheduler may spawn exists.
// fallback is only checked when the scaling table is empty.
func CheckReferences(enemies *EnemyTable, scaling ScalingTable, boss, fallback string) error {
	for i, e := range scaling {
		if enemies.Get(e.Template) == nil {
			return fmt.Errorf("scaling entry #%d: unknown template %q", i, e.Template)
		}
	}
	b := enemies.Get(boss)
	if b == nil {
		return fmt.Errorf("boss template %q not found", boss)
	}
	if !b.Boss {
		return fmt.Errorf("boss template %q is not flagged boss", boss)
	}
	if len(scaling) == 0 && enemies.Get(fallback) == nil {
		return fmt.Errorf("fallback template %q not found", fallback)
	}
	return nil
}
