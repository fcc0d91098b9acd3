// wavepreview expands scaling_list.yaml into the per-wave spawn schedule the
// scheduler will run, before budget ceilings apply.
//
// Usage:
//
//	go run ./cmd/wavepreview <scaling_list.yaml> <total_waves> <duration> [output.yaml]
package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/horde/internal/data"
)

// fallbackTemplate matches the default wave.fallback_template.
const fallbackTemplate = "grunt"

type CategoryPlan struct {
	Template string  `yaml:"template"`
	Batch    int     `yaml:"batch"`
	Interval float64 `yaml:"interval"` // seconds
	Batches  int     `yaml:"batches"`
	Spawns   int     `yaml:"spawns"`
	Cluster  float64 `yaml:"cluster_radius,omitempty"`
}

type WavePlan struct {
	Wave       int            `yaml:"wave"`
	Boss       bool           `yaml:"boss,omitempty"`
	Categories []CategoryPlan `yaml:"categories,omitempty"`
	Spawns     int            `yaml:"spawns"`
}

type PlanFile struct {
	Duration string     `yaml:"duration"`
	Waves    []WavePlan `yaml:"waves"`
}

// batchesIn counts batches issued at t = 0, i, 2i, ... strictly before d.
func batchesIn(d, i time.Duration) int {
	if d <= 0 || i <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(i)))
}

func planWave(table data.ScalingTable, wave, totalWaves int, d time.Duration) WavePlan {
	if wave >= totalWaves {
		return WavePlan{Wave: wave, Boss: true, Spawns: 1}
	}
	entries := table.EligibleAt(wave)
	if len(table) == 0 {
		entries = []data.ScalingEntry{data.DefaultScalingEntry(fallbackTemplate)}
	}
	plan := WavePlan{Wave: wave}
	for _, e := range entries {
		interval := data.Interval(e, wave)
		c := CategoryPlan{
			Template: e.Template,
			Batch:    data.Batch(e, wave),
			Interval: interval.Seconds(),
			Batches:  batchesIn(d, interval),
			Cluster:  e.ClusterRadius,
		}
		c.Spawns = c.Batch * c.Batches
		plan.Spawns += c.Spawns
		plan.Categories = append(plan.Categories, c)
	}
	return plan
}

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Usage: wavepreview <scaling_list.yaml> <total_waves> <duration> [output.yaml]")
		os.Exit(1)
	}

	table, err := data.LoadScalingTable(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	total, err := strconv.Atoi(os.Args[2])
	if err != nil || total < 1 {
		fmt.Fprintf(os.Stderr, "total_waves must be a positive integer, got %q\n", os.Args[2])
		os.Exit(1)
	}
	d, err := time.ParseDuration(os.Args[3])
	if err != nil || d <= 0 {
		fmt.Fprintf(os.Stderr, "duration must be positive (e.g. 60s), got %q\n", os.Args[3])
		os.Exit(1)
	}

	out := PlanFile{Duration: d.String()}
	for w := 1; w <= total; w++ {
		out.Waves = append(out.Waves, planWave(table, w, total, d))
	}

	raw, err := yaml.Marshal(&out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(os.Args) < 5 {
		os.Stdout.Write(raw)
		return
	}
	header := fmt.Sprintf("# Wave plan, generated from %s (%d waves)\n", os.Args[1], total)
	if err := os.WriteFile(os.Args[4], append([]byte(header), raw...), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d wave plans to %s\n", total, os.Args[4])
}
