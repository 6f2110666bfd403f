package systems

import (
	"math/rand"

	"github.com/pthm-cable/osmia/nest"
)

// openTestNest creates a single open nest in a throwaway polygon.
func openTestNest() *nest.Nest {
	p := &nest.Polygon{X: 100, Y: 100, Radius: 10, NestProb: 1, MaxNests: 10}
	return p.TryCreateNest(0, rand.New(rand.NewSource(1)))
}
