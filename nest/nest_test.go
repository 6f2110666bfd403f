package nest

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/mlange-42/ark/ecs"
)

func newTestPolygon(maxNests int) *Polygon {
	return &Polygon{X: 1000, Y: 1000, Radius: 100, NestProb: 1.0, MaxNests: maxNests}
}

// entitySource hands out distinct live entities. Only identity matters to
// the nest container.
type entitySource struct {
	world *ecs.World
	byID  map[uint32]ecs.Entity
}

func newEntitySource() *entitySource {
	return &entitySource{world: ecs.NewWorld(), byID: map[uint32]ecs.Entity{}}
}

func (s *entitySource) entity(id uint32) ecs.Entity {
	if e, ok := s.byID[id]; ok {
		return e
	}
	e := s.world.NewEntity()
	s.byID[id] = e
	return e
}

func TestNest_AddCellWhileOpen(t *testing.T) {
	p := newTestPolygon(10)
	n := p.TryCreateNest(0, rand.New(rand.NewSource(1)))
	es := newEntitySource()

	if !n.AddCell(es.entity(1)) {
		t.Fatal("expected AddCell to succeed on an open nest")
	}
	if n.CellCount() != 1 || n.LiveCount() != 1 {
		t.Errorf("expected 1 cell / 1 live, got %d / %d", n.CellCount(), n.LiveCount())
	}
}

func TestNest_NoAddAfterSeal(t *testing.T) {
	p := newTestPolygon(10)
	n := p.TryCreateNest(0, rand.New(rand.NewSource(1)))
	es := newEntitySource()

	n.AddCell(es.entity(1))
	n.Seal()

	if n.IsOpen() {
		t.Error("expected nest closed after Seal")
	}
	if n.AddCell(es.entity(2)) {
		t.Error("expected AddCell to fail on a sealed nest")
	}
	if n.CellCount() != 1 {
		t.Errorf("sealed nest gained a cell: %d", n.CellCount())
	}
}

func TestNest_CellCountSurvivesOccupantRemoval(t *testing.T) {
	p := newTestPolygon(10)
	n := p.TryCreateNest(0, rand.New(rand.NewSource(1)))
	es := newEntitySource()

	for i := uint32(1); i <= 5; i++ {
		n.AddCell(es.entity(i))
	}
	n.RemoveOccupant(es.entity(2))
	n.RemoveOccupant(es.entity(4))

	if n.CellCount() != 5 {
		t.Errorf("cell count must track eggs ever laid, got %d", n.CellCount())
	}
	if n.LiveCount() != 3 {
		t.Errorf("expected 3 live occupants, got %d", n.LiveCount())
	}
}

func TestNest_RemoveOccupantIdempotent(t *testing.T) {
	p := newTestPolygon(10)
	n := p.TryCreateNest(0, rand.New(rand.NewSource(1)))
	es := newEntitySource()

	n.AddCell(es.entity(1))
	n.RemoveOccupant(es.entity(1))
	if live := n.RemoveOccupant(es.entity(1)); live != 0 {
		t.Errorf("double removal changed the live count: %d", live)
	}
}

func TestNest_ReplaceOccupantKeepsSlot(t *testing.T) {
	p := newTestPolygon(10)
	n := p.TryCreateNest(0, rand.New(rand.NewSource(1)))
	es := newEntitySource()

	n.AddCell(es.entity(1))
	n.AddCell(es.entity(2))

	if !n.ReplaceOccupant(es.entity(1), es.entity(9)) {
		t.Fatal("expected replacement of a present occupant")
	}
	if n.ReplaceOccupant(es.entity(1), es.entity(10)) {
		t.Error("replaced an occupant that already left")
	}
	if n.CellCount() != 2 || n.LiveCount() != 2 {
		t.Errorf("replacement changed counts: %d cells / %d live", n.CellCount(), n.LiveCount())
	}
}

func TestNest_ConcurrentSiblingRemovals(t *testing.T) {
	p := newTestPolygon(10)
	n := p.TryCreateNest(0, rand.New(rand.NewSource(1)))

	const siblings = 64
	es := newEntitySource()
	entities := make([]ecs.Entity, siblings)
	for i := range entities {
		entities[i] = es.entity(uint32(i + 1))
		n.AddCell(entities[i])
	}

	var wg sync.WaitGroup
	for _, e := range entities {
		wg.Add(1)
		go func(e ecs.Entity) {
			defer wg.Done()
			n.RemoveOccupant(e)
		}(e)
	}
	wg.Wait()

	if n.LiveCount() != 0 {
		t.Errorf("expected 0 live after all removals, got %d", n.LiveCount())
	}
	if n.CellCount() != siblings {
		t.Errorf("expected %d cells preserved, got %d", siblings, n.CellCount())
	}
}

func TestPolygon_CapacityEnforced(t *testing.T) {
	p := newTestPolygon(3)
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 3; i++ {
		if p.TryCreateNest(0, rng) == nil {
			t.Fatalf("expected nest %d within capacity", i)
		}
	}
	if p.TryCreateNest(0, rng) != nil {
		t.Error("expected creation to fail at capacity")
	}
	if p.NestCount() != 3 {
		t.Errorf("expected 3 nests, got %d", p.NestCount())
	}
}

func TestPolygon_ReleaseFreesCapacity(t *testing.T) {
	p := newTestPolygon(1)
	rng := rand.New(rand.NewSource(2))

	n := p.TryCreateNest(0, rng)
	if n == nil {
		t.Fatal("expected first nest to be created")
	}
	if p.TryCreateNest(0, rng) != nil {
		t.Fatal("expected capacity exhausted")
	}

	p.Release(n)
	if p.NestCount() != 0 {
		t.Errorf("expected 0 nests after release, got %d", p.NestCount())
	}
	if p.TryCreateNest(0, rng) == nil {
		t.Error("expected creation to succeed after release")
	}
}

func TestPolygon_ConcurrentClaimsRespectCapacity(t *testing.T) {
	p := newTestPolygon(50)

	var wg sync.WaitGroup
	created := make([]int32, 128)
	for i := 0; i < 128; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(i)))
			if p.TryCreateNest(0, rng) != nil {
				created[i] = 1
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for _, c := range created {
		total += int(c)
	}
	if total != 50 {
		t.Errorf("expected exactly 50 successful claims, got %d", total)
	}
	if p.NestCount() != 50 {
		t.Errorf("expected 50 nests, got %d", p.NestCount())
	}
}

func TestRegistry_NearestOrderingAndRadius(t *testing.T) {
	polys := []*Polygon{
		{ID: 0, X: 0, Y: 0},
		{ID: 1, X: 300, Y: 0},
		{ID: 2, X: 100, Y: 0},
		{ID: 3, X: 5000, Y: 5000},
	}
	r := NewRegistry(polys)

	got := r.Nearest(0, 0, 1000)
	if len(got) != 3 {
		t.Fatalf("expected 3 polygons in range, got %d", len(got))
	}
	if got[0].ID != 0 || got[1].ID != 2 || got[2].ID != 1 {
		t.Errorf("expected nearest-first order [0 2 1], got [%d %d %d]",
			got[0].ID, got[1].ID, got[2].ID)
	}

	if len(r.Nearest(0, 0, 50)) != 1 {
		t.Error("expected only the co-located polygon within 50 m")
	}
}

func TestNest_MicrositeDelayFixedAtCreation(t *testing.T) {
	p := newTestPolygon(10)
	n := p.TryCreateNest(2.5, rand.New(rand.NewSource(3)))
	if n.MicrositeDelay != 2.5 {
		t.Errorf("expected microsite delay 2.5, got %f", n.MicrositeDelay)
	}
}
