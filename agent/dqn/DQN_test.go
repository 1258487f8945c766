package dqn

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// testConfig returns a small, fast configuration for unit tests
func testConfig() Config {
	config := NewDefaultConfig()
	config.LayerSizes = []int{4, 8, 2}
	config.ReplayCapacity = 100
	config.BatchSize = 4
	config.EpsilonDecaySteps = 100
	return config
}

func testState(fill float64) *mat.VecDense {
	return mat.NewVecDense(4, []float64{fill, fill * 0.5, -fill, 1.0})
}

func TestNewInvalidConfig(t *testing.T) {
	config := testConfig()
	config.LayerSizes = []int{4}
	if _, err := New(config); err == nil {
		t.Error("expected construction error for single-layer architecture")
	}

	config = testConfig()
	config.BatchSize = 200
	if _, err := New(config); err == nil {
		t.Error("expected construction error for batch size over capacity")
	}
}

func TestEpsilonDecay(t *testing.T) {
	config := testConfig()
	agent, err := New(config)
	if err != nil {
		t.Fatal(err)
	}

	if agent.Epsilon() != config.EpsilonStart {
		t.Fatalf("wrong initial epsilon \n\twant(%v)\n\thave(%v)",
			config.EpsilonStart, agent.Epsilon())
	}

	state := testState(0.3)
	previous := agent.Epsilon()
	for i := 0; i < config.EpsilonDecaySteps*2; i++ {
		if _, err := agent.SelectAction(state); err != nil {
			t.Fatal(err)
		}
		current := agent.Epsilon()
		if current > previous {
			t.Fatalf("epsilon increased at step %v \n\twant(<= %v)"+
				"\n\thave(%v)", i+1, previous, current)
		}
		previous = current
	}

	if math.Abs(agent.Epsilon()-config.EpsilonEnd) > 1e-12 {
		t.Errorf("epsilon not clamped past the decay horizon "+
			"\n\twant(%v)\n\thave(%v)", config.EpsilonEnd, agent.Epsilon())
	}
}

func TestSelectActionInRange(t *testing.T) {
	agent, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	state := testState(0.7)
	for i := 0; i < 500; i++ {
		action, err := agent.SelectAction(state)
		if err != nil {
			t.Fatal(err)
		}
		if action < 0 || action >= agent.config.NumActions() {
			t.Fatalf("action out of range \n\twant([0, %v))\n\thave(%v)",
				agent.config.NumActions(), action)
		}
	}
}

// TestUpdateTargetNetworkCopiesWeightsOnly documents that a target sync
// transfers weight matrices but leaves the target network's bias
// vectors untouched.
func TestUpdateTargetNetworkCopiesWeightsOnly(t *testing.T) {
	agent, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	// Perturb the main network so the two networks disagree everywhere
	weights := agent.mainNetwork.Weights()
	biases := agent.mainNetwork.Biases()
	for _, w := range weights {
		w.Apply(func(i, j int, v float64) float64 { return v + 0.25 }, w)
	}
	for _, b := range biases {
		for i := 0; i < b.Len(); i++ {
			b.SetVec(i, b.AtVec(i)+0.25)
		}
	}
	if err := agent.mainNetwork.SetWeights(weights); err != nil {
		t.Fatal(err)
	}
	if err := agent.mainNetwork.SetBiases(biases); err != nil {
		t.Fatal(err)
	}

	targetBiasesBefore := agent.targetNetwork.Biases()
	agent.UpdateTargetNetwork()

	mainWeights := agent.mainNetwork.Weights()
	targetWeights := agent.targetNetwork.Weights()
	for layer := range mainWeights {
		if !mat.EqualApprox(mainWeights[layer], targetWeights[layer], 1e-12) {
			t.Errorf("layer %v weights not synchronized", layer)
		}
	}

	targetBiasesAfter := agent.targetNetwork.Biases()
	for layer := range targetBiasesBefore {
		if !mat.EqualApprox(targetBiasesBefore[layer],
			targetBiasesAfter[layer], 1e-12) {
			t.Errorf("layer %v target biases changed by a sync", layer)
		}
	}
	mainBiases := agent.mainNetwork.Biases()
	for layer := range mainBiases {
		if mat.EqualApprox(mainBiases[layer], targetBiasesAfter[layer],
			1e-12) {
			t.Errorf("layer %v target biases unexpectedly match the "+
				"perturbed main biases", layer)
		}
	}
}

func TestTrainBelowBatchSizeIsSilent(t *testing.T) {
	agent, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	agent.StoreExperience(testState(0.1), 0, 1.0, testState(0.2), false)

	loss, err := agent.Train()
	if err != nil {
		t.Fatal(err)
	}
	if loss != 0.0 {
		t.Errorf("expected zero loss below the batch size, got %v", loss)
	}
	if agent.TrainingSteps() != 0 {
		t.Errorf("training step counted without an update: %v",
			agent.TrainingSteps())
	}
}

func TestTrainPerformsUpdate(t *testing.T) {
	config := testConfig()
	agent, err := New(config)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < config.BatchSize; i++ {
		done := i == config.BatchSize-1
		agent.StoreExperience(testState(float64(i)*0.1), i%2, 1.0,
			testState(float64(i+1)*0.1), done)
	}

	weightsBefore := agent.mainNetwork.Weights()

	loss, err := agent.Train()
	if err != nil {
		t.Fatal(err)
	}
	if math.IsNaN(loss) || math.IsInf(loss, 0) || loss < 0 {
		t.Fatalf("loss is not finite and non-negative: %v", loss)
	}
	if agent.TrainingSteps() != 1 {
		t.Fatalf("wrong training step count \n\twant(%v)\n\thave(%v)", 1,
			agent.TrainingSteps())
	}

	weightsAfter := agent.mainNetwork.Weights()
	changed := false
	for layer := range weightsBefore {
		if !mat.EqualApprox(weightsBefore[layer], weightsAfter[layer],
			1e-15) {
			changed = true
		}
	}
	if !changed {
		t.Error("gradient step left every weight unchanged")
	}
}

func TestTrainIsDeterministic(t *testing.T) {
	run := func() float64 {
		config := testConfig()
		agent, err := New(config)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < config.BatchSize*2; i++ {
			agent.StoreExperience(testState(float64(i)*0.1), i%2,
				float64(i%3), testState(float64(i+1)*0.1), i%5 == 0)
		}
		loss, err := agent.Train()
		if err != nil {
			t.Fatal(err)
		}
		return loss
	}

	first := run()
	second := run()
	if first != second {
		t.Errorf("same seed produced different losses "+
			"\n\twant(%v)\n\thave(%v)", first, second)
	}
}

func TestQValuesLength(t *testing.T) {
	agent, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	qValues, err := agent.QValues(testState(0.4))
	if err != nil {
		t.Fatal(err)
	}
	if qValues.Len() != agent.config.NumActions() {
		t.Errorf("wrong Q-value count \n\twant(%v)\n\thave(%v)",
			agent.config.NumActions(), qValues.Len())
	}
}
