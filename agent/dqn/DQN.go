// Package dqn implements the deep Q-learning algorithm with a
// hand-derived feedforward network, experience replay, and a
// periodically synchronized target network.
package dqn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"flappyrl/expreplay"
	"flappyrl/network"
	"flappyrl/solver"
	ts "flappyrl/timestep"
	"flappyrl/utils/matutils"
)

// DQN implements the DQN algorithm with an epsilon-greedy behaviour
// policy.
//
// The main network is the policy and the sole target of gradient
// updates. The target network is a periodically synchronized snapshot
// used only to bootstrap TD targets. Both share one architecture but
// are independently initialized from derived seeds.
//
// A DQN moves through three phases: cold (nothing stored), warming
// (buffer below the batch size, Train is a silent no-op), and training
// (every Train call performs one gradient step).
type DQN struct {
	config Config

	mainNetwork   *network.Network
	targetNetwork *network.Network
	replayBuffer  *expreplay.Buffer
	optimizer     *solver.Adam

	totalSteps    int
	trainingSteps int
	epsilon       float64

	// Persistent stream for epsilon-greedy decisions, advanced once
	// per SelectAction call
	rng *rand.Rand

	// Last step observed, for transition bookkeeping in Observe
	lastStep ts.TimeStep
}

// New creates and returns a new DQN agent
func New(config Config) (*DQN, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: invalid configuration: %v", err)
	}

	mainNetwork, err := network.New(config.LayerSizes, config.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create main network: %v", err)
	}
	targetNetwork, err := network.New(config.LayerSizes, config.Seed+1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %v",
			err)
	}
	replayBuffer, err := expreplay.New(config.ReplayCapacity,
		int64(config.Seed+2))
	if err != nil {
		return nil, fmt.Errorf("new: could not create replay buffer: %v", err)
	}

	optimizer := solver.NewAdam(config.LearningRate, config.AdamEpsilon,
		config.AdamBeta1, config.AdamBeta2)

	d := &DQN{
		config:        config,
		mainNetwork:   mainNetwork,
		targetNetwork: targetNetwork,
		replayBuffer:  replayBuffer,
		optimizer:     optimizer,
		epsilon:       config.EpsilonStart,
		rng:           rand.New(rand.NewSource(config.Seed + 3)),
	}

	// The target network starts as a weight snapshot of the main
	// network
	d.UpdateTargetNetwork()

	return d, nil
}

// SelectAction selects an action for the given state with an
// epsilon-greedy policy and increments the total-step counter.
//
// Epsilon interpolates linearly from EpsilonStart to EpsilonEnd as the
// total-step counter grows toward EpsilonDecaySteps and is held at
// EpsilonEnd beyond the horizon. Greedy selection returns the action
// with the strictly greatest Q-value; ties resolve to the lowest
// action index.
func (d *DQN) SelectAction(state mat.Vector) (int, error) {
	d.totalSteps++

	progress := math.Min(1.0,
		float64(d.totalSteps)/float64(d.config.EpsilonDecaySteps))
	d.epsilon = d.config.EpsilonStart +
		(d.config.EpsilonEnd-d.config.EpsilonStart)*progress

	if d.rng.Float64() < d.epsilon {
		return d.rng.Intn(d.config.NumActions()), nil
	}

	qValues, err := d.mainNetwork.Forward(state)
	if err != nil {
		return 0, fmt.Errorf("selectaction: %v", err)
	}
	return matutils.MaxVec(qValues), nil
}

// StoreExperience wraps a transition into an Experience and pushes it
// into the replay buffer
func (d *DQN) StoreExperience(state mat.Vector, action int, reward float64,
	nextState mat.Vector, done bool) {
	d.replayBuffer.Push(expreplay.Experience{
		State:     mat.VecDenseCopyOf(state),
		Action:    action,
		Reward:    reward,
		NextState: mat.VecDenseCopyOf(nextState),
		Done:      done,
	})
}

// computeTargets returns the TD target vector for every transition in
// the batch. The taken action's slot holds reward if the transition is
// terminal and otherwise reward + γ max over the target network's
// Q-values for the next state. The remaining slots are filled with the
// main network's current predictions by Train so that only the taken
// action contributes gradient.
func (d *DQN) computeTargets(batch []expreplay.Experience) ([]*mat.VecDense,
	error) {
	targets := make([]*mat.VecDense, len(batch))

	for i, experience := range batch {
		targetQ := experience.Reward
		if !experience.Done {
			nextQValues, err := d.targetNetwork.Forward(experience.NextState)
			if err != nil {
				return nil, err
			}
			maxNextQ := nextQValues.AtVec(matutils.MaxVec(nextQValues))
			targetQ += d.config.Gamma * maxNextQ
		}

		target := mat.NewVecDense(d.config.NumActions(), nil)
		target.SetVec(experience.Action, targetQ)
		targets[i] = target
	}

	return targets, nil
}

// Train samples one batch from the replay buffer and performs a single
// optimizer step on the main network, returning the mean squared
// TD error of the batch for the taken-action slots.
//
// If the buffer holds fewer transitions than the batch size, Train
// silently performs no update and returns a zero loss; the
// training-step counter is not incremented. Otherwise the whole batch
// is processed and exactly one optimizer step applied: per-transition
// gradients are summed, not averaged, across the batch.
func (d *DQN) Train() (float64, error) {
	if !d.replayBuffer.CanSample(d.config.BatchSize) {
		return 0.0, nil
	}

	batch, err := d.replayBuffer.Sample(d.config.BatchSize)
	if err != nil {
		return 0.0, fmt.Errorf("train: %v", err)
	}

	targets, err := d.computeTargets(batch)
	if err != nil {
		return 0.0, fmt.Errorf("train: could not compute targets: %v", err)
	}

	// Zeroed gradient accumulators mirroring the main network's shape
	layerSizes := d.mainNetwork.LayerSizes()
	totalWeightGrads := make([]*mat.Dense, len(layerSizes)-1)
	totalBiasGrads := make([]*mat.VecDense, len(layerSizes)-1)
	for i := range totalWeightGrads {
		totalWeightGrads[i] = mat.NewDense(layerSizes[i+1], layerSizes[i],
			nil)
		totalBiasGrads[i] = mat.NewVecDense(layerSizes[i+1], nil)
	}

	totalLoss := 0.0
	for i, experience := range batch {
		predicted, err := d.mainNetwork.Forward(experience.State)
		if err != nil {
			return 0.0, fmt.Errorf("train: %v", err)
		}

		// Untaken actions are targeted at their current predictions so
		// that they contribute zero gradient, decoupling the output
		// heads
		target := targets[i]
		for j := 0; j < target.Len(); j++ {
			if j != experience.Action {
				target.SetVec(j, predicted.AtVec(j))
			}
		}

		tdError := predicted.AtVec(experience.Action) -
			target.AtVec(experience.Action)
		totalLoss += tdError * tdError

		weightGrads, biasGrads, err := d.mainNetwork.Backward(
			experience.State, target, predicted)
		if err != nil {
			return 0.0, fmt.Errorf("train: could not compute gradients: %v",
				err)
		}
		for layer := range weightGrads {
			totalWeightGrads[layer].Add(totalWeightGrads[layer],
				weightGrads[layer])
			totalBiasGrads[layer].AddVec(totalBiasGrads[layer],
				biasGrads[layer])
		}
	}

	weights := d.mainNetwork.Weights()
	biases := d.mainNetwork.Biases()
	d.optimizer.Update(weights, biases, totalWeightGrads, totalBiasGrads)
	if err := d.mainNetwork.SetWeights(weights); err != nil {
		return 0.0, fmt.Errorf("train: could not set weights: %v", err)
	}
	if err := d.mainNetwork.SetBiases(biases); err != nil {
		return 0.0, fmt.Errorf("train: could not set biases: %v", err)
	}

	d.trainingSteps++
	return totalLoss / float64(len(batch)), nil
}

// UpdateTargetNetwork copies the main network's weight tensors into
// the target network. Bias tensors are not copied: the target
// network's biases keep whatever values they already hold. Tests
// assert this asymmetry, so correcting it is an interface change, not
// a bug fix (see DESIGN.md).
func (d *DQN) UpdateTargetNetwork() {
	if err := d.targetNetwork.SetWeights(d.mainNetwork.Weights()); err != nil {
		// Both networks are constructed from one architecture
		panic(fmt.Sprintf("updatetargetnetwork: %v", err))
	}
}

// Epsilon returns the agent's current exploration rate
func (d *DQN) Epsilon() float64 {
	return d.epsilon
}

// QValues returns the main network's Q-value estimates for a state
func (d *DQN) QValues(state mat.Vector) (*mat.VecDense, error) {
	qValues, err := d.mainNetwork.Forward(state)
	if err != nil {
		return nil, fmt.Errorf("qvalues: %v", err)
	}
	return qValues, nil
}

// TrainingSteps returns the number of gradient steps performed
func (d *DQN) TrainingSteps() int {
	return d.trainingSteps
}

// TotalSteps returns the number of SelectAction calls made
func (d *DQN) TotalSteps() int {
	return d.totalSteps
}

// SaveWeights saves the main network's parameters to a file. The
// serialization format is not designed yet, so SaveWeights always
// returns an error.
func (d *DQN) SaveWeights(filepath string) error {
	return fmt.Errorf("saveweights: not implemented")
}

// LoadWeights loads the main network's parameters from a file. The
// serialization format is not designed yet, so LoadWeights always
// returns an error.
func (d *DQN) LoadWeights(filepath string) error {
	return fmt.Errorf("loadweights: not implemented")
}

// ObserveFirst observes and records the first episodic timestep
func (d *DQN) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		return fmt.Errorf("observefirst: timestep %v is not the first in "+
			"an episode", t.Number)
	}
	d.lastStep = t
	return nil
}

// Observe stores the transition from the last observed timestep
// through action to nextStep in the replay buffer
func (d *DQN) Observe(action int, nextStep ts.TimeStep) error {
	if d.lastStep.Observation == nil {
		return fmt.Errorf("observe: no first timestep observed")
	}

	d.StoreExperience(d.lastStep.Observation, action, nextStep.Reward,
		nextStep.Observation, nextStep.Last())
	d.lastStep = nextStep
	return nil
}

// Step runs the agent's training schedule for the current total step:
// a gradient step every TrainFrequency steps and a target network
// synchronization every TargetUpdateFrequency steps.
func (d *DQN) Step() error {
	if d.totalSteps%d.config.TrainFrequency == 0 {
		if _, err := d.Train(); err != nil {
			return fmt.Errorf("step: %v", err)
		}
	}
	if d.totalSteps%d.config.TargetUpdateFrequency == 0 {
		d.UpdateTargetNetwork()
	}
	return nil
}

// EndEpisode performs cleanup at the end of an episode
func (d *DQN) EndEpisode() {}
