package landscape

import "sort"

// Offset is one candidate forage displacement from the nest, in metres.
type Offset struct {
	DX, DY int
}

// Mask is the precomputed spatial search pattern for patch finding:
// all step-length multiples within the flight radius, nearest first.
// Precomputing the offsets avoids per-search trigonometry; nearest-first
// ordering is the designed tie-break when several patches qualify.
type Mask struct {
	offsets []Offset
}

// NewMask builds a mask of steps rings at stepLen metre spacing. Offsets
// beyond halfWidth laterally are kept only on the near rings, trimming the
// far corners of the disc the way a homing-bounded flight pattern does.
func NewMask(steps, stepLen, halfWidth int) *Mask {
	maxDist := steps * stepLen
	var offsets []Offset
	for dy := -maxDist; dy <= maxDist; dy += stepLen {
		for dx := -maxDist; dx <= maxDist; dx += stepLen {
			d2 := dx*dx + dy*dy
			if d2 > maxDist*maxDist {
				continue
			}
			if d2 > halfWidth*halfWidth && abs(dx) > halfWidth && abs(dy) > halfWidth {
				continue
			}
			offsets = append(offsets, Offset{DX: dx, DY: dy})
		}
	}
	sort.Slice(offsets, func(i, j int) bool {
		di := offsets[i].DX*offsets[i].DX + offsets[i].DY*offsets[i].DY
		dj := offsets[j].DX*offsets[j].DX + offsets[j].DY*offsets[j].DY
		return di < dj
	})
	return &Mask{offsets: offsets}
}

// Offsets returns the search offsets, nearest first.
func (m *Mask) Offsets() []Offset {
	return m.offsets
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
