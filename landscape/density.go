package landscape

import "sync/atomic"

// DensityGrid tracks concurrently active provisioning females per coarse
// cell (1 km by default). Counters are atomic: females start and stop
// provisioning during the parallel step phase.
type DensityGrid struct {
	cellSize int
	w, h     int
	counts   []int32
}

// NewDensityGrid builds a grid over a width×height metre landscape.
func NewDensityGrid(widthM, heightM, cellSize int) *DensityGrid {
	w := (widthM + cellSize - 1) / cellSize
	h := (heightM + cellSize - 1) / cellSize
	return &DensityGrid{cellSize: cellSize, w: w, h: h, counts: make([]int32, w*h)}
}

// Inc registers an active female at a point.
func (g *DensityGrid) Inc(xM, yM int) {
	atomic.AddInt32(&g.counts[g.index(xM, yM)], 1)
}

// Dec removes an active female at a point.
func (g *DensityGrid) Dec(xM, yM int) {
	atomic.AddInt32(&g.counts[g.index(xM, yM)], -1)
}

// Density returns the active female count in the cell containing the point.
func (g *DensityGrid) Density(xM, yM int) float64 {
	return float64(atomic.LoadInt32(&g.counts[g.index(xM, yM)]))
}

func (g *DensityGrid) index(xM, yM int) int {
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
