// Package nest provides the nest cell container and the per-polygon nesting
// capacity tracker. Both are internally synchronized: sibling individuals in
// one nest, and females claiming cavities in one polygon, may act on the same
// day under parallel stepping.
package nest

import (
	"sync"

	"github.com/mlange-42/ark/ecs"
)

// Nest is a linear sequence of cells, one per offspring, created by a
// provisioning female and outliving her. Cell slots are never reused: a slot
// whose occupant died stays inactive, so CellCount always equals the number
// of eggs ever laid in the nest.
type Nest struct {
	X, Y int // location in landscape metres

	// MicrositeDelay is a fixed aspect/microclimate emergence delay in days,
	// drawn once at creation.
	MicrositeDelay float64

	poly *Polygon

	mu    sync.Mutex
	cells []ecs.Entity
	live  int
	open  bool
}

// AddCell appends a new occupant while the nest is open.
// Returns false once the nest has been sealed.
func (n *Nest) AddCell(occupant ecs.Entity) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.open {
		return false
	}
	n.cells = append(n.cells, occupant)
	n.live++
	return true
}

// ReplaceOccupant swaps a cell's occupant at a metamorphosis boundary.
// The slot keeps its position; no cell is added or removed.
func (n *Nest) ReplaceOccupant(old, new ecs.Entity) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, e := range n.cells {
		if e == old {
			n.cells[i] = new
			return true
		}
	}
	return false
}

// RemoveOccupant clears a cell slot on death or emergence. The slot itself
// remains, permanently inactive. Returns the number of live occupants left.
func (n *Nest) RemoveOccupant(occupant ecs.Entity) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	var zero ecs.Entity
	for i, e := range n.cells {
		if e == occupant && e != zero {
			n.cells[i] = zero
			n.live--
			break
		}
	}
	return n.live
}

// Seal irreversibly closes the nest to new cells.
func (n *Nest) Seal() {
	n.mu.Lock()
	n.open = false
	n.mu.Unlock()
}

// IsOpen reports whether the nest still accepts cells.
func (n *Nest) IsOpen() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.open
}

// CellCount returns the number of eggs ever laid in the nest.
func (n *Nest) CellCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.cells)
}

// LiveCount returns the number of cells with a living occupant.
func (n *Nest) LiveCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.live
}

// Polygon returns the habitat polygon holding this nest's capacity slot.
func (n *Nest) Polygon() *Polygon {
	return n.poly
}
