// Package agent defines an agent interface
package agent

import (
	"gonum.org/v1/gonum/mat"

	"flappyrl/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a
// Policy which chooses actions in each state. The Policy chooses which
// actions are taken, and the Learner uses these actions to update the
// Policy.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// ObserveFirst records the first timestep in an episode
	ObserveFirst(timestep.TimeStep) error

	// Observe records that an action lead to some timestep
	Observe(action int, nextStep timestep.TimeStep) error

	// Step performs a single update to the learner
	Step() error

	// EndEpisode performs cleanup at the end of an episode
	EndEpisode()
}

// Policy represents a policy that an agent can have.
//
// Actions are discrete and enumerated from 0.
type Policy interface {
	SelectAction(state mat.Vector) (int, error)
}
