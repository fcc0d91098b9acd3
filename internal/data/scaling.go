package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ScalingEntry is one row of the per-category scaling table. Interval fields
// are seconds. EndWave -1 means the category never retires.
type ScalingEntry struct {
	Template       string  `yaml:"template"`
	StartWave      int     `yaml:"start_wave"`
	EndWave        int     `yaml:"end_wave"`
	BaseBatchSize  int     `yaml:"base_batch_size"`
	BatchGrowth    int     `yaml:"batch_growth"`
	BaseInterval   float64 `yaml:"base_interval"`
	IntervalShrink float64 `yaml:"interval_shrink"`
	MinInterval    float64 `yaml:"min_interval"`
	ClusterRadius  float64 `yaml:"cluster_radius"` // 0 scatters each spawn across the area
}

// Unbounded marks an entry with no last wave.
const Unbounded = -1

// Fallback cadence for an unconfigured table.
const (
	fallbackBatch    = 1
	fallbackInterval = 2.0
)

// DefaultScalingEntry is the single category run when no table is configured.
func DefaultScalingEntry(template string) ScalingEntry {
	return ScalingEntry{
		Template:      template,
		StartWave:     1,
		EndWave:       Unbounded,
		BaseBatchSize: fallbackBatch,
		BaseInterval:  fallbackInterval,
		MinInterval:   fallbackInterval,
	}
}

// Eligible reports whether the entry spawns during wave.
func Eligible(e ScalingEntry, wave int) bool {
	return wave >= e.StartWave && (e.EndWave < 0 || wave <= e.EndWave)
}

// Batch is the number of spawns per batch at wave. Growth is not capped;
// the budget ceilings bound it. A negative result means no spawns.
func Batch(e ScalingEntry, wave int) int {
	n := e.BaseBatchSize + e.BatchGrowth*(wave-e.StartWave)
	if n < 0 {
		return 0
	}
	return n
}

// Interval is the wait between batches at wave, floored at MinInterval.
func Interval(e ScalingEntry, wave int) time.Duration {
	secs := e.BaseInterval - e.IntervalShrink*float64(wave-e.StartWave)
	if secs < e.MinInterval {
		secs = e.MinInterval
	}
	return time.Duration(secs * float64(time.Second))
}

// ScalingTable keeps file order; spawn tasks start in that order.
type ScalingTable []ScalingEntry

// EligibleAt returns the entries active during wave.
func (t ScalingTable) EligibleAt(wave int) []ScalingEntry {
	var out []ScalingEntry
	for _, e := range t {
		if Eligible(e, wave) {
			out = append(out, e)
		}
	}
	return out
}

type scalingListFile struct {
	Categories []ScalingEntry `yaml:"categories"`
}

// LoadScalingTable loads and validates the scaling table.
func LoadScalingTable(path string) (ScalingTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaling_list: %w", err)
	}
	var f scalingListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scaling_list: %w", err)
	}
	for i := range f.Categories {
		if err := validateScaling(&f.Categories[i]); err != nil {
			return nil, fmt.Errorf("scaling entry #%d: %w", i, err)
		}
	}
	return ScalingTable(f.Categories), nil
}

func validateScaling(e *ScalingEntry) error {
	if e.Template == "" {
		return fmt.Errorf("template cannot be empty")
	}
	if e.StartWave < 1 {
		return fmt.Errorf("start_wave must be >= 1, got %d", e.StartWave)
	}
	if e.EndWave != Unbounded && e.EndWave < e.StartWave {
		return fmt.Errorf("end_wave must be -1 or >= start_wave (%d), got %d", e.StartWave, e.EndWave)
	}
	if e.BaseBatchSize < 0 {
		return fmt.Errorf("base_batch_size must be >= 0, got %d", e.BaseBatchSize)
	}
	if e.BaseInterval <= 0 {
		return fmt.Errorf("base_interval must be > 0, got %g", e.BaseInterval)
	}
	if e.MinInterval <= 0 {
		return fmt.Errorf("min_interval must be > 0, got %g", e.MinInterval)
	}
	if e.ClusterRadius < 0 {
		return fmt.Errorf("cluster_radius must be >= 0, got %g", e.ClusterRadius)
	}
	return nil
}
