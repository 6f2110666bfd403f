package systems

import (
	"github.com/pthm-cable/osmia/components"
	"github.com/pthm-cable/osmia/config"
	"github.com/pthm-cable/osmia/landscape"
)

// ForageEnv bundles the shared landscape state the forage and female logic
// read during the parallel step phase.
type ForageEnv struct {
	Pollen  *landscape.PollenGrid
	Density *landscape.DensityGrid
	Mask    *landscape.Mask

	// Landscape bounds in metres, for clamping dispersal moves.
	Width, Height int
}

// Depletion is a pollen withdrawal to apply after the parallel phase.
// Applying depletions serially keeps the day's patch reads consistent;
// simultaneous harvests of one cell over-read the snapshot by at most one
// day's yield, clamped at zero on apply.
type Depletion struct {
	X, Y   int
	Amount float64 // landscape score units
}

// ForageDay runs one day of patch search and exploitation for a female with
// an open cell. Returns the harvested pollen in mg and the depletion to
// apply. ok is false when no acceptable patch exists within the mask.
func ForageDay(b *components.Bee, f *components.Female, c *config.Config, env *ForageEnv, day *DayContext) (mg float64, dep Depletion, ok bool) {
	if !f.HasForageLoc {
		searchPatch(f, c, env, day)
	}
	if !f.HasForageLoc {
		return 0, Depletion{}, false
	}

	cell := env.Pollen.At(f.ForageX, f.ForageY)
	competition := 1 - env.Density.Density(f.ForageX, f.ForageY)*c.Forage.DensityRemovalConst
	if competition < 0 {
		competition = 0
	}

	yield := cell.Pollen * competition * c.AgeEfficiencyAt(int(b.AgeDays)) * day.ForageHours
	if yield > cell.Pollen {
		yield = cell.Pollen
	}
	mg = yield * c.Forage.ScoreToMg

	// Give-up rules: patch depleted below the proportional threshold of its
	// level at selection, or today's return below the absolute minimum.
	remaining := cell.Pollen - yield
	if remaining < c.Forage.GiveUpThreshold*f.ForageInitial || mg < c.Forage.GiveUpReturn {
		f.HasForageLoc = false
	}

	return mg, Depletion{X: f.ForageX, Y: f.ForageY, Amount: yield}, true
}

// searchPatch scans the offset mask outward from the nest and selects the
// first cell meeting the current month's quantity and quality thresholds.
// Nearest-first ordering is the tie-break.
func searchPatch(f *components.Female, c *config.Config, env *ForageEnv, day *DayContext) {
	th := &c.Forage.MonthThresholds[int(day.Month)-1]
	for _, o := range env.Mask.Offsets() {
		x := f.X + o.DX
		y := f.Y + o.DY
		if x < 0 || y < 0 || x >= env.Width || y >= env.Height {
			continue
		}
		cell := env.Pollen.At(x, y)
		if cell.Pollen >= th.PollenQuantity && cell.PollenQuality >= th.PollenQuality &&
			cell.Nectar >= th.NectarQuantity && cell.NectarQuality >= th.NectarQuality {
			f.HasForageLoc = true
			f.ForageX = x
			f.ForageY = y
			f.ForageInitial = cell.Pollen
			return
		}
	}
}
