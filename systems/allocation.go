package systems

import (
	"math/rand"

	"github.com/pthm-cable/osmia/config"
)

// EggLoad computes the lifetime egg capacity of a freshly emerged female
// from her adult mass, with a small uniform jitter.
func EggLoad(mass float64, fc *config.FemaleConfig, rng *rand.Rand) int {
	base := float64(fc.TotalNestsPossible) * (fc.FecunditySlope*mass + fc.FecundityIntercept)
	jitter := rng.Float64()*2*fc.FecundityJitter - fc.FecundityJitter
	n := int(base + jitter)
	if n < 0 {
		n = 0
	}
	return n
}

// PlanEggsPerNest draws the planned cell count for a new nest, bounded by
// the female's remaining capacity.
func PlanEggsPerNest(fc *config.FemaleConfig, eggsRemaining int, rng *rand.Rand) int {
	n := fc.MinEggsPerNest + rng.Intn(fc.MaxEggsPerNest-fc.MinEggsPerNest+1)
	if n > eggsRemaining {
		n = eggsRemaining
	}
	return n
}

// PlanNextCell decides the sex and target provision mass for the next cell.
//
// The sex draw comes from the precomputed [mass class][age] sex-ratio
// surface. Female cells take their target cocoon mass from the matching
// surface, reduced by the progressive lifetime provisioning decline and an
// asymmetric Beta-distributed shortfall (betaDraw in [0,1]), then converted
// to provision mass. Male cells use the fixed lower provision range.
func PlanNextCell(c *config.Config, motherMass float64, age int, cellsLaid, eggCapacity int, betaDraw float64, rng *rand.Rand) (female bool, targetProvision float64) {
	female = rng.Float64() < c.SexRatioAt(motherMass, age)
	fc := &c.Female

	if !female {
		targetProvision = fc.MaleProvisionMin + rng.Float64()*(fc.MaleProvisionMax-fc.MaleProvisionMin)
		return false, targetProvision
	}

	cocoon := c.CocoonMassAt(motherMass, age)
	if eggCapacity > 0 {
		cocoon -= fc.LifetimeCocoonLoss * float64(cellsLaid) / float64(eggCapacity)
	}
	cocoon -= betaDraw * cocoon * c.Allocation.NoiseScale
	if cocoon < fc.CocoonMassMin {
		cocoon = fc.CocoonMassMin
	}
	if cocoon > fc.CocoonMassMax {
		cocoon = fc.CocoonMassMax
	}
	return true, cocoon * fc.ProvisionPerCocoon
}
