package matutils

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMaxVecFirstOnTies(t *testing.T) {
	v := mat.NewVecDense(4, []float64{1.0, 3.0, 3.0, 2.0})
	if idx := MaxVec(v); idx != 1 {
		t.Errorf("wrong argmax \n\twant(%v)\n\thave(%v)", 1, idx)
	}
}

func TestMaxVecNegativeValues(t *testing.T) {
	v := mat.NewVecDense(3, []float64{-5.0, -1.0, -2.0})
	if idx := MaxVec(v); idx != 1 {
		t.Errorf("wrong argmax \n\twant(%v)\n\thave(%v)", 1, idx)
	}
}
