// Package components defines the per-individual data attached to bee entities.
package components

import "github.com/pthm-cable/osmia/nest"

// LifeStage identifies which state machine governs an individual.
type LifeStage uint8

const (
	StageEgg LifeStage = iota
	StageLarva
	StagePrepupa
	StagePupa
	StageOverwintering
	StageFemale
)

// String returns the stage name for logging and telemetry.
func (s LifeStage) String() string {
	switch s {
	case StageEgg:
		return "egg"
	case StageLarva:
		return "larva"
	case StagePrepupa:
		return "prepupa"
	case StagePupa:
		return "pupa"
	case StageOverwintering:
		return "overwintering"
	case StageFemale:
		return "female"
	default:
		panic("components: unknown life stage")
	}
}

// ParasitismStatus records the outcome of a parasitoid attack on a cell.
// Assigned once when the cell is finalized, resolved at emergence.
type ParasitismStatus uint8

const (
	Unparasitised ParasitismStatus = iota
	ParasitisedBombylid
	ParasitisedClepto
)

// String returns the parasitism status name.
func (p ParasitismStatus) String() string {
	switch p {
	case Unparasitised:
		return "none"
	case ParasitisedBombylid:
		return "bombylid"
	case ParasitisedClepto:
		return "cleptoparasite"
	default:
		panic("components: unknown parasitism status")
	}
}

// Bee holds the attributes shared by every life stage. At each metamorphosis
// the entity is destroyed and a successor entity is created with these fields
// copied forward.
//
// DevAccum is repurposed per stage: degree-days for egg/larva/pupa, elapsed
// development-days for prepupa, winter degree-days for the overwintering
// adult. It never decreases within a stage.
//
// Mass is the cell provision mass (mg) from egg through pupa and the
// overwintering adult; the provision-to-adult conversion is applied exactly
// once, at spring emergence.
type Bee struct {
	Stage      LifeStage
	AgeDays    int32   // days since oviposition (reset at female emergence)
	DevAccum   float64 // stage-dependent accumulator, monotonic within a stage
	Mass       float64 // mg
	Female     bool    // fixed at oviposition
	Parasitism ParasitismStatus
	Nest       *nest.Nest // natal nest; active nest for provisioning females; nil while dispersing

	// Prepupa only: individual development target in days, drawn once on
	// entering the stage (base days ±10%).
	PrepupaTarget float64
}

// Overwinter holds the state specific to the overwintering adult stage.
// Winter degree-days accumulate in Bee.DevAccum; this component carries the
// prewinter accounting and the spring emergence countdown.
type Overwinter struct {
	PrewinterDD    float64 // degree-days above the prewintering threshold, autumn only
	EmergeOffset   float64 // individual emergence-date offset in days, drawn at stage entry
	Counter        float64 // spring emergence countdown, valid once CounterSet
	CounterSet     bool
	MortTestPassed bool // winter mortality test already taken
}

// FemaleMode is the top-level state of the reproductive state machine.
type FemaleMode uint8

const (
	ModeMaturing FemaleMode = iota // post-emergence prenesting delay
	ModeSearching                  // local cavity search
	ModeDispersing                 // long-distance relocation after repeated search failure
	ModeProvisioning               // active nest with an open cell
	ModeDone                       // reproductive capacity exhausted, living out lifespan
)

// String returns the mode name.
func (m FemaleMode) String() string {
	switch m {
	case ModeMaturing:
		return "maturing"
	case ModeSearching:
		return "searching"
	case ModeDispersing:
		return "dispersing"
	case ModeProvisioning:
		return "provisioning"
	case ModeDone:
		return "done"
	default:
		panic("components: unknown female mode")
	}
}

// Female holds the reproductive and foraging state of an active female.
type Female struct {
	Mode FemaleMode

	X, Y int // current position in landscape metres

	// Lifetime reproduction budget, set at emergence from adult mass.
	EggsRemaining int
	NestsStarted  int
	MaturingDays  int

	// Current nest.
	EggsThisNest int // planned eggs remaining for the active nest
	NestAttempts int // failed cavity claims since last success/dispersal
	Dispersals   int // completed long-distance dispersal events
	CellsLaid    int // lifetime cells finalized, drives provision decline

	// Open cell being provisioned.
	CellProvision float64 // accumulated provision mass, mg
	CellTarget    float64 // sex-dependent target provision mass, mg
	CellFemale    bool    // planned sex of the current cell
	CellOpenDays  int     // days the cell has been open, drives parasitism risk

	// Forage patch.
	HasForageLoc  bool
	ForageX       int
	ForageY       int
	ForageInitial float64 // patch pollen score when first selected
}
