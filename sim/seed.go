package sim

import (
	"github.com/pthm-cable/osmia/components"
	"github.com/pthm-cable/osmia/systems"
)

// seedPopulation creates the founding cohort: overwintering adults in
// cocoons, as if produced the previous summer. They carry a plausible
// autumn degree-day history and no natal nest, so they emerge at a random
// habitat polygon in the first spring.
func (s *Simulation) seedPopulation() {
	sc := &s.cfg.Seeding
	fc := &s.cfg.Female

	for i := 0; i < sc.InitialCount; i++ {
		cocoon := sc.CocoonMassMin + s.rng.Float64()*(sc.CocoonMassMax-sc.CocoonMassMin)
		bee := components.Bee{
			Stage:  components.StageOverwintering,
			Mass:   cocoon * fc.ProvisionPerCocoon,
			Female: s.rng.Float64() < sc.FemaleFraction,
		}
		ow := components.Overwinter{
			PrewinterDD:  sc.InitialPrewinterDD,
			EmergeOffset: systems.DrawEmergeOffset(s.cfg.Derived.EmergeSpreadCDF, s.rng),
		}
		s.owMapper.NewEntity(&bee, &ow)
	}
}
