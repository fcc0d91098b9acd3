package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Session SessionConfig `toml:"session"`
	Wave    WaveConfig    `toml:"wave"`
	Budget  BudgetConfig  `toml:"budget"`
	Area    AreaConfig    `toml:"area"`
	Data    DataConfig    `toml:"data"`
	Reward  RewardConfig  `toml:"reward"`
	Combat  CombatConfig  `toml:"combat"`
	Logging LoggingConfig `toml:"logging"`
}

type SessionConfig struct {
	Name string `toml:"name"`
	Seed int64  `toml:"seed"` // 0 = seed from clock at boot
	Loop bool   `toml:"loop"` // start a fresh session after all waves clear
}

type WaveConfig struct {
	TotalWaves        int           `toml:"total_waves"`
	Duration          time.Duration `toml:"duration"`  // normal wave countdown
	TickRate          time.Duration `toml:"tick_rate"` // countdown and boss-check cadence
	FullHealOnNewWave bool          `toml:"full_heal_on_new_wave"`
	BossTemplate      string        `toml:"boss_template"`
	FallbackTemplate  string        `toml:"fallback_template"` // used when the scaling table is empty
}

type BudgetConfig struct {
	MaxConcurrent int `toml:"max_concurrent"`
	MaxPerWave    int `toml:"max_per_wave"`
}

// AreaConfig holds the two optional spawn-area corner markers as [x, y].
// Either one missing selects the default rectangle.
type AreaConfig struct {
	Min []float64 `toml:"min"`
	Max []float64 `toml:"max"`
}

type DataConfig struct {
	EnemyList   string `toml:"enemy_list"`
	ScalingList string `toml:"scaling_list"`
	UpgradeList string `toml:"upgrade_list"`
	Watch       bool   `toml:"watch"` // reload tables between sessions on change
}

type RewardConfig struct {
	Offers     int    `toml:"offers"`
	AutoPick   bool   `toml:"auto_pick"`
	ScriptsDir string `toml:"scripts_dir"`
}

// MaxCombatRange caps attack and contact ranges.
const MaxCombatRange = 2048.0

// CombatConfig drives the simulated player of the headless host.
type CombatConfig struct {
	AttackRange    float64       `toml:"attack_range"`
	AttackCooldown time.Duration `toml:"attack_cooldown"`
	Damage         int           `toml:"damage"`
	PlayerMaxHP    int           `toml:"player_max_hp"`
	ContactRange   float64       `toml:"contact_range"`
	RegenPerSecond int           `toml:"regen_per_second"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the scheduler cannot run with. Everything else
// (missing area markers, empty tables) is handled by runtime fallbacks.
func (c *Config) Validate() error {
	var errs []error
	if c.Wave.TotalWaves < 1 {
		errs = append(errs, fmt.Errorf("wave.total_waves must be >= 1, got %d", c.Wave.TotalWaves))
	}
	if c.Wave.Duration <= 0 {
		errs = append(errs, fmt.Errorf("wave.duration must be > 0, got %s", c.Wave.Duration))
	}
	if c.Wave.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("wave.tick_rate must be > 0, got %s", c.Wave.TickRate))
	}
	if c.Budget.MaxConcurrent < 0 || c.Budget.MaxPerWave < 0 {
		errs = append(errs, fmt.Errorf("budget ceilings must be >= 0, got %d/%d",
			c.Budget.MaxConcurrent, c.Budget.MaxPerWave))
	}
	if n := len(c.Area.Min); n != 0 && n != 2 {
		errs = append(errs, fmt.Errorf("area.min must be [x, y], got %d values", n))
	}
	if n := len(c.Area.Max); n != 0 && n != 2 {
		errs = append(errs, fmt.Errorf("area.max must be [x, y], got %d values", n))
	}
	if r := c.Combat.AttackRange; r <= 0 || r > MaxCombatRange {
		errs = append(errs, fmt.Errorf("combat.attack_range must be in (0, %g], got %g", MaxCombatRange, r))
	}
	if r := c.Combat.ContactRange; r <= 0 || r > MaxCombatRange {
		errs = append(errs, fmt.Errorf("combat.contact_range must be in (0, %g], got %g", MaxCombatRange, r))
	}
	return errors.Join(errs...)
}

func Defaults() *Config {
	return &Config{
		Session: SessionConfig{
			Name: "horde",
		},
		Wave: WaveConfig{
			TotalWaves:        10,
			Duration:          60 * time.Second,
			TickRate:          100 * time.Millisecond,
			FullHealOnNewWave: true,
			BossTemplate:      "warlord",
			FallbackTemplate:  "grunt",
		},
		Budget: BudgetConfig{
			MaxConcurrent: 120,
			MaxPerWave:    400,
		},
		Data: DataConfig{
			EnemyList:   "data/yaml/enemy_list.yaml",
			ScalingList: "data/yaml/scaling_list.yaml",
			UpgradeList: "data/yaml/upgrade_list.yaml",
		},
		Reward: RewardConfig{
			Offers:     3,
			AutoPick:   true,
			ScriptsDir: "scripts",
		},
		Combat: CombatConfig{
			AttackRange:    220,
			AttackCooldown: 250 * time.Millisecond,
			Damage:         12,
			PlayerMaxHP:    100,
			ContactRange:   18,
			RegenPerSecond: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
