// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"flappyrl/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines when an episode ends for reasons beyond the
// environment's own terminal states, such as a timestep limit
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Environment implements a simulated environment.
//
// Actions are discrete and enumerated from 0 up to (but not including)
// the length of the environment's action spec. Step returns the
// resulting timestep together with a flag indicating whether the
// episode ended on that step.
type Environment interface {
	Reset() timestep.TimeStep
	Step(action int) (timestep.TimeStep, bool)
	RewardSpec() Spec
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}
