// Package systems implements the per-stage daily step logic: the development
// clock, the immature stage machines, the overwintering/emergence model, and
// the female reproductive and foraging behaviour.
package systems

import "time"

// DayContext carries the process-wide daily scalars, published once by the
// scheduler before any individual steps and read-only thereafter.
type DayContext struct {
	Date      time.Time
	DayOfYear int
	Month     time.Month

	MeanTemp     float64
	ForageHours  float64
	PrepupalRate float64 // population-wide prepupal development increment today

	// Seasonal flags, maintained by the scheduler calendar.
	PrewinterOver   bool // deep winter has begun
	EmergenceWindow bool // spring emergence countdown is running
}

// DegreeDayDelta returns today's thermal contribution above a threshold.
// Never negative: accumulation cannot regress.
func DegreeDayDelta(tempC, thresholdC float64) float64 {
	if d := tempC - thresholdC; d > 0 {
		return d
	}
	return 0
}

// ReachedTarget reports whether an accumulator has met its target.
func ReachedTarget(accumulator, target float64) bool {
	return accumulator >= target
}

// StepResult is the outcome of one individual's daily step.
type StepResult uint8

const (
	ResContinue StepResult = iota
	ResDie
	ResAdvance // metamorphose to the successor stage
	ResEmerge  // overwintering adult leaves the cocoon
)

// DeathCause labels terminal transitions for telemetry.
type DeathCause uint8

const (
	CauseNone DeathCause = iota
	CauseDevelopment    // background mortality in an immature stage
	CauseWinter         // failed the winter mortality test
	CauseEmergenceFail  // emergence window closed before the countdown finished
	CauseParasitism     // parasitised individual resolved at emergence
	CauseBackground     // adult female daily mortality
	CauseLifespan       // adult female lifespan cap
	CauseNestFailure    // exhausted dispersal attempts
)

// String returns the cause name.
func (c DeathCause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseDevelopment:
		return "development"
	case CauseWinter:
		return "winter"
	case CauseEmergenceFail:
		return "emergence_fail"
	case CauseParasitism:
		return "parasitism"
	case CauseBackground:
		return "background"
	case CauseLifespan:
		return "lifespan"
	case CauseNestFailure:
		return "nest_failure"
	default:
		panic("systems: unknown death cause")
	}
}
