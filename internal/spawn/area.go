package spawn

import (
	"math"
	"math/rand"
)

// Position is a point in world units.
type Position struct {
	X, Y float64
}

// Default rectangle used when a corner marker is missing.
const (
	DefaultAreaHalfWidth  = 480.0
	DefaultAreaHalfHeight = 270.0
)

// Area is an axis-aligned spawn rectangle with Min <= Max on both axes.
type Area struct {
	Min, Max Position
}

// DefaultArea is centered on the origin.
func DefaultArea() Area {
	return Area{
		Min: Position{X: -DefaultAreaHalfWidth, Y: -DefaultAreaHalfHeight},
		Max: Position{X: DefaultAreaHalfWidth, Y: DefaultAreaHalfHeight},
	}
}

// ResolveArea builds the spawn rectangle from two corner markers in any order.
// If either marker is nil the default rectangle is returned.
func ResolveArea(a, b *Position) Area {
	if a == nil || b == nil {
		return DefaultArea()
	}
	return Area{
		Min: Position{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Position{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// Center is the boss spawn point.
func (a Area) Center() Position {
	return Position{X: (a.Min.X + a.Max.X) / 2, Y: (a.Min.Y + a.Max.Y) / 2}
}

func (a Area) Contains(p Position) bool {
	return p.X >= a.Min.X && p.X <= a.Max.X && p.Y >= a.Min.Y && p.Y <= a.Max.Y
}

// RandomPointInArea draws uniformly over the rectangle. A zero-size area
// always yields its single point.
func (a Area) RandomPointInArea(rng *rand.Rand) Position {
	return Position{
		X: a.Min.X + rng.Float64()*(a.Max.X-a.Min.X),
		Y: a.Min.Y + rng.Float64()*(a.Max.Y-a.Min.Y),
	}
}

// RandomPointNearCenter draws uniformly over the disk of radius around center.
func RandomPointNearCenter(rng *rand.Rand, center Position, radius float64) Position {
	if radius <= 0 {
		return center
	}
	// sqrt keeps the density uniform over the disk instead of piling up at the center
	r := radius * math.Sqrt(rng.Float64())
	theta := rng.Float64() * 2 * math.Pi
	return Position{X: center.X + r*math.Cos(theta), Y: center.Y + r*math.Sin(theta)}
}
