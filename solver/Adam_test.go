package solver

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestAdamFirstStepMagnitude checks that the bias-corrected first
// update collapses to a step of nearly stepSize against the gradient
// direction: on the first call m̂ = g and v̂ = g², so the step is
// stepSize * g / (|g| + ε).
func TestAdamFirstStepMagnitude(t *testing.T) {
	stepSize := 0.1
	adam := NewDefaultAdam(stepSize)

	gradient := 1e6
	weights := []*mat.Dense{mat.NewDense(1, 1, []float64{2.0})}
	biases := []*mat.VecDense{mat.NewVecDense(1, []float64{-1.0})}
	weightGrads := []*mat.Dense{mat.NewDense(1, 1, []float64{gradient})}
	biasGrads := []*mat.VecDense{mat.NewVecDense(1, []float64{-gradient})}

	adam.Update(weights, biases, weightGrads, biasGrads)

	weightChange := weights[0].At(0, 0) - 2.0
	if math.Abs(weightChange+stepSize) > 1e-6 {
		t.Errorf("wrong first weight step \n\twant(%v)\n\thave(%v)",
			-stepSize, weightChange)
	}

	biasChange := biases[0].AtVec(0) - (-1.0)
	if math.Abs(biasChange-stepSize) > 1e-6 {
		t.Errorf("wrong first bias step \n\twant(%v)\n\thave(%v)",
			stepSize, biasChange)
	}
}

func TestAdamSharedHyperparameters(t *testing.T) {
	adam := NewAdam(0.01, 1e-8, 0.9, 0.999)

	weights := []*mat.Dense{mat.NewDense(1, 1, []float64{0.5})}
	biases := []*mat.VecDense{mat.NewVecDense(1, []float64{0.5})}
	weightGrads := []*mat.Dense{mat.NewDense(1, 1, []float64{3.0})}
	biasGrads := []*mat.VecDense{mat.NewVecDense(1, []float64{3.0})}

	adam.Update(weights, biases, weightGrads, biasGrads)

	// Identical parameters with identical gradients must move
	// identically
	if weights[0].At(0, 0) != biases[0].AtVec(0) {
		t.Errorf("weight and bias updates diverged \n\twant(%v)\n\thave(%v)",
			weights[0].At(0, 0), biases[0].AtVec(0))
	}
}

func TestAdamAccumulatesMomentum(t *testing.T) {
	adam := NewDefaultAdam(0.001)

	weights := []*mat.Dense{mat.NewDense(1, 1, []float64{1.0})}
	biases := []*mat.VecDense{mat.NewVecDense(1, nil)}
	weightGrads := []*mat.Dense{mat.NewDense(1, 1, []float64{2.0})}
	biasGrads := []*mat.VecDense{mat.NewVecDense(1, nil)}

	// A constant positive gradient must monotonically decrease the
	// parameter
	last := weights[0].At(0, 0)
	for i := 0; i < 10; i++ {
		adam.Update(weights, biases, weightGrads, biasGrads)
		current := weights[0].At(0, 0)
		if current >= last {
			t.Errorf("parameter did not decrease on update %v: %v -> %v",
				i+1, last, current)
		}
		last = current
	}
}

// TestAdamReset checks that Reset discards the moment state: after a
// reset, the solver must accept tensors of a different shape, which
// would panic if stale accumulators survived.
func TestAdamReset(t *testing.T) {
	adam := NewDefaultAdam(0.01)

	weights := []*mat.Dense{mat.NewDense(2, 3, nil)}
	biases := []*mat.VecDense{mat.NewVecDense(2, nil)}
	adam.Update(weights, biases,
		[]*mat.Dense{mat.NewDense(2, 3, nil)},
		[]*mat.VecDense{mat.NewVecDense(2, nil)})

	adam.Reset()

	otherWeights := []*mat.Dense{mat.NewDense(4, 4, nil), mat.NewDense(2, 4,
		nil)}
	otherBiases := []*mat.VecDense{mat.NewVecDense(4, nil),
		mat.NewVecDense(2, nil)}
	adam.Update(otherWeights, otherBiases,
		[]*mat.Dense{mat.NewDense(4, 4, nil), mat.NewDense(2, 4, nil)},
		[]*mat.VecDense{mat.NewVecDense(4, nil), mat.NewVecDense(2, nil)})
}
