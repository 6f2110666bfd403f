package nest

import (
	"math"
	"math/rand"
	"sync"
)

// Polygon tracks nesting capacity for one habitat polygon.
// Mutation goes through the polygon's own lock; the invariant
// len(nests) <= MaxNests holds at all times.
type Polygon struct {
	ID       int
	X, Y     int // representative point, landscape metres
	Radius   int // rough extent used to scatter nest locations
	NestProb float64
	MaxNests int

	mu    sync.Mutex
	nests []*Nest
}

// TryCreateNest claims a capacity slot and creates a nest at a random point
// inside the polygon. The caller has already passed the habitat's
// nest-probability draw. Returns nil when the polygon is full.
func (p *Polygon) TryCreateNest(micrositeDelay float64, rng *rand.Rand) *Nest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.nests) >= p.MaxNests {
		return nil
	}
	ang := rng.Float64() * 2 * math.Pi
	r := rng.Float64() * float64(p.Radius)
	n := &Nest{
		X:              p.X + int(r*math.Cos(ang)),
		Y:              p.Y + int(r*math.Sin(ang)),
		MicrositeDelay: micrositeDelay,
		poly:           p,
		open:           true,
	}
	p.nests = append(p.nests, n)
	return n
}

// Release returns a nest's capacity slot once the nest is empty.
func (p *Polygon) Release(n *Nest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, held := range p.nests {
		if held == n {
			p.nests[i] = p.nests[len(p.nests)-1]
			p.nests = p.nests[:len(p.nests)-1]
			return
		}
	}
}

// NestCount returns the number of active nests in the polygon.
func (p *Polygon) NestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.nests)
}

// Registry holds all habitat polygons with nesting capacity.
// The polygon list is fixed after construction; only the per-polygon
// state behind each polygon's lock changes during a run.
type Registry struct {
	polys []*Polygon
}

// NewRegistry builds a registry over a fixed polygon set.
func NewRegistry(polys []*Polygon) *Registry {
	return &Registry{polys: polys}
}

// Polygons returns the full polygon list.
func (r *Registry) Polygons() []*Polygon {
	return r.polys
}

// Nearest returns polygons within dist of (x, y), nearest first.
// Linear scan; polygon counts are small.
func (r *Registry) Nearest(x, y, dist int) []*Polygon {
	var out []*Polygon
	d2 := float64(dist) * float64(dist)
	for _, p := range r.polys {
		dx := float64(p.X - x)
		dy := float64(p.Y - y)
		if dx*dx+dy*dy <= d2 {
			out = append(out, p)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && sqDist(out[j-1], x, y) > sqDist(out[j], x, y); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func sqDist(p *Polygon, x, y int) float64 {
	dx := float64(p.X - x)
	dy := float64(p.Y - y)
	return dx*dx + dy*dy
}
