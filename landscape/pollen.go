package landscape

import (
	"math/rand"
	"sync"
	"time"
)

// ResourceCell is the pollen/nectar state of one landscape cell.
// Quantities are in unitless landscape score; the forage component converts
// harvested score to mg.
type ResourceCell struct {
	Pollen        float64
	PollenQuality float64
	Nectar        float64
	NectarQuality float64
}

// bloomFactor scales resource capacity by calendar month, January first.
// Spring and early summer carry the Osmia flight-season bloom.
var bloomFactor = [12]float64{
	0.05, 0.1, 0.4, 0.9, 1.0, 0.9, 0.6, 0.4, 0.2, 0.1, 0.05, 0.05,
}

// PollenGrid is the shared floral resource layer. Depletion is applied
// serially by the scheduler after the parallel step phase, so reads during
// stepping see a consistent start-of-day snapshot; the mutex guards the
// monthly refresh against stray concurrent reads.
type PollenGrid struct {
	cellSize int
	w, h     int // cells

	mu        sync.RWMutex
	cells     []ResourceCell
	fertility []float64 // per-cell capacity multiplier, fixed at construction

	pollenBase  float64
	qualityBase float64
	nectarBase  float64
	nectarQual  float64
}

// NewPollenGrid builds a grid over a width×height metre landscape with
// per-cell fertility drawn once, creating persistent good and poor patches.
func NewPollenGrid(widthM, heightM, cellSize int, pollenBase, pollenQuality, nectarBase, nectarQuality float64, rng *rand.Rand) *PollenGrid {
	w := (widthM + cellSize - 1) / cellSize
	h := (heightM + cellSize - 1) / cellSize
	g := &PollenGrid{
		cellSize:    cellSize,
		w:           w,
		h:           h,
		cells:       make([]ResourceCell, w*h),
		fertility:   make([]float64, w*h),
		pollenBase:  pollenBase,
		qualityBase: pollenQuality,
		nectarBase:  nectarBase,
		nectarQual:  nectarQuality,
	}
	for i := range g.fertility {
		g.fertility[i] = 0.25 + 1.5*rng.Float64()
	}
	return g
}

// Refresh resets resource quantities to the month's bloom capacity.
// Called by the scheduler on month boundaries.
func (g *PollenGrid) Refresh(month time.Month) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := bloomFactor[int(month)-1]
	for i := range g.cells {
		g.cells[i] = ResourceCell{
			Pollen:        g.pollenBase * f * g.fertility[i],
			PollenQuality: g.qualityBase,
			Nectar:        g.nectarBase * f * g.fertility[i],
			NectarQuality: g.nectarQual,
		}
	}
}

// At returns the resource state at a landscape point in metres.
func (g *PollenGrid) At(xM, yM int) ResourceCell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cells[g.index(xM, yM)]
}

// Deplete removes harvested pollen score at a point, clamping at zero.
func (g *PollenGrid) Deplete(xM, yM int, amount float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := &g.cells[g.index(xM, yM)]
	c.Pollen -= amount
	if c.Pollen < 0 {
		c.Pollen = 0
	}
}

func (g *PollenGrid) index(xM, yM int) int {
	x := xM / g.cellSize
	y := yM / g.cellSize
	if x < 0 {
		x = 0
	}
	if x >= g.w {
		x = g.w - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= g.h {
		y = g.h - 1
	}
	return y*g.w + x
}
