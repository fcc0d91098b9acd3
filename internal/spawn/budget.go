package spawn

// Budget holds the two admission ceilings shared by every spawn stream of a
// wave. Both are soft: a full budget suppresses spawns, it is never an error.
type Budget struct {
	MaxConcurrent int
	MaxPerWave    int
}

// Admits reports whether one more spawn fits. It has no side effects; the
// caller must make the check and the counter update one atomic step.
func (b Budget) Admits(active, spawned int) bool {
	return active < b.MaxConcurrent && spawned < b.MaxPerWave
}

// Remaining is how many more spawns the budget admits right now.
func (b Budget) Remaining(active, spawned int) int {
	n := b.MaxConcurrent - active
	if m := b.MaxPerWave - spawned; m < n {
		n = m
	}
	if n < 0 {
		return 0
	}
	return n
}
