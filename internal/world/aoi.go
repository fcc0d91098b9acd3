package world

import (
	"math"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/spawn"
)

// AOIGrid buckets enemies into square cells so range queries only visit the
// cells overlapping the query circle. Guarded by the owning State's mutex.

const cellSize = 64.0

type cellKey struct {
	cx int32
	cy int32
}

func toCellCoord(v float64) int32 {
	return int32(math.Floor(v / cellSize))
}

func keyOf(p spawn.Position) cellKey {
	return cellKey{cx: toCellCoord(p.X), cy: toCellCoord(p.Y)}
}

// AOIGrid tracks which entities are in which cells.
type AOIGrid struct {
	cells map[cellKey]map[ecs.EntityID]struct{}
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{
		cells: make(map[cellKey]map[ecs.EntityID]struct{}),
	}
}

func (g *AOIGrid) Add(id ecs.EntityID, p spawn.Position) {
	k := keyOf(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

func (g *AOIGrid) Remove(id ecs.EntityID, p spawn.Position) {
	k := keyOf(p)
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an entity's cell when its position changes.
func (g *AOIGrid) Move(id ecs.EntityID, from, to spawn.Position) {
	if keyOf(from) == keyOf(to) {
		return
	}
	g.Remove(id, from)
	g.Add(id, to)
}

// Nearby returns the entities in every cell the circle touches. Caller does
// the exact distance filtering. When the circle spans more cells than are
// occupied, the occupied cells are scanned instead.
func (g *AOIGrid) Nearby(center spawn.Position, radius float64) []ecs.EntityID {
	minX := math.Floor((center.X - radius) / cellSize)
	maxX := math.Floor((center.X + radius) / cellSize)
	minY := math.Floor((center.Y - radius) / cellSize)
	maxY := math.Floor((center.Y + radius) / cellSize)

	var result []ecs.EntityID
	if (maxX-minX+1)*(maxY-minY+1) > float64(len(g.cells)) {
		for k, cell := range g.cells {
			cx, cy := float64(k.cx), float64(k.cy)
			if cx < minX || cx > maxX || cy < minY || cy > maxY {
				continue
			}
			for id := range cell {
				result = append(result, id)
			}
		}
		return result
	}

	lo := cellKey{cx: int32(minX), cy: int32(minY)}
	hi := cellKey{cx: int32(maxX), cy: int32(maxY)}
	for cx := lo.cx; cx <= hi.cx; cx++ {
		for cy := lo.cy; cy <= hi.cy; cy++ {
			for id := range g.cells[cellKey{cx: cx, cy: cy}] {
				result = append(result, id)
			}
		}
	}
	return result
}

// Len returns the number of tracked entities.
func (g *AOIGrid) Len() int {
	n := 0
	for _, cell := range g.cells {
		n += len(cell)
	}
	return n
}
