// Package solver implements optimizers that adapt network parameters
// using externally supplied gradients
package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam implements the Adam optimizer, combining momentum (first
// moment) and per-parameter scaling (second moment) with bias
// correction.
//
// An Adam value keeps first and second moment accumulators shaped to
// mirror the parameters of the network it optimizes. The accumulators
// are allocated lazily on the first call to Update, using the shapes
// of the tensors supplied then; later calls do not re-check shapes.
// Weights and biases share the same step size and hyperparameters.
type Adam struct {
	stepSize float64
	epsilon  float64 // Smoothing factor
	beta1    float64
	beta2    float64

	step int

	mWeights []*mat.Dense
	vWeights []*mat.Dense
	mBiases  []*mat.VecDense
	vBiases  []*mat.VecDense
}

// NewDefaultAdam returns a new Adam solver with default hyperparameters
func NewDefaultAdam(stepSize float64) *Adam {
	return NewAdam(stepSize, 1e-8, 0.9, 0.999)
}

// NewAdam returns a new Adam solver
func NewAdam(stepSize, epsilon, beta1, beta2 float64) *Adam {
	return &Adam{
		stepSize: stepSize,
		epsilon:  epsilon,
		beta1:    beta1,
		beta2:    beta2,
	}
}

// initState allocates zeroed moment accumulators mirroring the shapes
// of the argument tensors
func (a *Adam) initState(weights []*mat.Dense, biases []*mat.VecDense) {
	a.mWeights = make([]*mat.Dense, len(weights))
	a.vWeights = make([]*mat.Dense, len(weights))
	for i := range weights {
		rows, cols := weights[i].Dims()
		a.mWeights[i] = mat.NewDense(rows, cols, nil)
		a.vWeights[i] = mat.NewDense(rows, cols, nil)
	}

	a.mBiases = make([]*mat.VecDense, len(biases))
	a.vBiases = make([]*mat.VecDense, len(biases))
	for i := range biases {
		a.mBiases[i] = mat.NewVecDense(biases[i].Len(), nil)
		a.vBiases[i] = mat.NewVecDense(biases[i].Len(), nil)
	}
}

// Update applies one adaptive gradient step in place to the argument
// weight and bias tensors. The gradient tensors must mirror the shapes
// of the parameter tensors.
func (a *Adam) Update(weights []*mat.Dense, biases []*mat.VecDense,
	weightGradients []*mat.Dense, biasGradients []*mat.VecDense) {
	if a.step == 0 {
		a.initState(weights, biases)
	}
	a.step++

	correction1 := 1.0 - math.Pow(a.beta1, float64(a.step))
	correction2 := 1.0 - math.Pow(a.beta2, float64(a.step))

	for layer := range weights {
		rows, cols := weights[layer].Dims()
		for i := 0; i < rows; i++ {
			g := biasGradients[layer].AtVec(i)

			m := a.beta1*a.mBiases[layer].AtVec(i) + (1.0-a.beta1)*g
			v := a.beta2*a.vBiases[layer].AtVec(i) + (1.0-a.beta2)*g*g
			a.mBiases[layer].SetVec(i, m)
			a.vBiases[layer].SetVec(i, v)

			mHat := m / correction1
			vHat := v / correction2
			biases[layer].SetVec(i, biases[layer].AtVec(i)-
				a.stepSize*mHat/(math.Sqrt(vHat)+a.epsilon))

			for j := 0; j < cols; j++ {
				g := weightGradients[layer].At(i, j)

				m := a.beta1*a.mWeights[layer].At(i, j) + (1.0-a.beta1)*g
				v := a.beta2*a.vWeights[layer].At(i, j) + (1.0-a.beta2)*g*g
				a.mWeights[layer].Set(i, j, m)
				a.vWeights[layer].Set(i, j, v)

				mHat := m / correction1
				vHat := v / correction2
				weights[layer].Set(i, j, weights[layer].At(i, j)-
					a.stepSize*mHat/(math.Sqrt(vHat)+a.epsilon))
			}
		}
	}
}

// Reset discards all moment state and zeroes the step counter. The
// next call to Update re-allocates state from the shapes it is given
// then.
func (a *Adam) Reset() {
	a.step = 0
	a.mWeights = nil
	a.vWeights = nil
	a.mBiases = nil
	a.vBiases = nil
}
