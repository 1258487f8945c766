package dqn

import "fmt"

// Config implements a configuration for a DQN agent. Every
// hyperparameter of the training algorithm is independently tunable.
type Config struct {
	// LayerSizes lists the network's input size, hidden layer sizes,
	// and output size, in order. The output size must equal the number
	// of actions and the input size must equal the environment's
	// observation size.
	LayerSizes []int

	// Training hyperparameters
	LearningRate      float64
	Gamma             float64 // Discount factor
	EpsilonStart      float64
	EpsilonEnd        float64
	EpsilonDecaySteps int // Decay horizon in total-step units

	// Replay buffer
	ReplayCapacity int
	BatchSize      int

	// Training schedule, consumed by the orchestrating Step loop
	TrainFrequency        int // Train every N total steps
	TargetUpdateFrequency int // Sync the target network every N total steps

	// Adam optimizer
	AdamBeta1   float64
	AdamBeta2   float64
	AdamEpsilon float64

	// Seed from which the main network, target network, replay buffer,
	// and action-selection seeds are derived
	Seed uint64
}

// NewDefaultConfig returns a Config with default hyperparameters for
// the flappy control task
func NewDefaultConfig() Config {
	return Config{
		LayerSizes:            []int{4, 128, 128, 2},
		LearningRate:          0.0001,
		Gamma:                 0.99,
		EpsilonStart:          1.0,
		EpsilonEnd:            0.01,
		EpsilonDecaySteps:     10000,
		ReplayCapacity:        10000,
		BatchSize:             32,
		TrainFrequency:        4,
		TargetUpdateFrequency: 100,
		AdamBeta1:             0.9,
		AdamBeta2:             0.999,
		AdamEpsilon:           1e-8,
		Seed:                  12345,
	}
}

// Validate checks a Config to ensure it is a valid configuration of a
// DQN agent
func (c Config) Validate() error {
	if len(c.LayerSizes) < 2 {
		return fmt.Errorf("validate: need at least input and output layer "+
			"sizes \n\thave(%v)", c.LayerSizes)
	}
	if c.LayerSizes[len(c.LayerSizes)-1] < 2 {
		return fmt.Errorf("validate: need at least two output heads, one "+
			"per action \n\thave(%v)", c.LayerSizes[len(c.LayerSizes)-1])
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive "+
			"\n\thave(%v)", c.BatchSize)
	}
	if c.ReplayCapacity < c.BatchSize {
		return fmt.Errorf("validate: cannot have batch size (%v) > replay "+
			"capacity (%v)", c.BatchSize, c.ReplayCapacity)
	}
	if c.Gamma < 0.0 || c.Gamma > 1.0 {
		return fmt.Errorf("validate: discount must be in [0, 1] "+
			"\n\thave(%v)", c.Gamma)
	}
	if c.EpsilonDecaySteps < 1 {
		return fmt.Errorf("validate: epsilon decay horizon must be "+
			"positive \n\thave(%v)", c.EpsilonDecaySteps)
	}
	if c.TrainFrequency < 1 || c.TargetUpdateFrequency < 1 {
		return fmt.Errorf("validate: training and target update "+
			"frequencies must be positive \n\thave(%v, %v)",
			c.TrainFrequency, c.TargetUpdateFrequency)
	}
	return nil
}

// Features returns the observation size the configured agent consumes
func (c Config) Features() int {
	return c.LayerSizes[0]
}

// NumActions returns the number of actions the configured agent
// chooses between
func (c Config) NumActions() int {
	return c.LayerSizes[len(c.LayerSizes)-1]
}
