package network

// relu is the rectified linear unit activation, used on every hidden
// layer
func relu(x float64) float64 {
	if x > 0.0 {
		return x
	}
	return 0.0
}

// reluDerivative is the derivative of relu with respect to its
// pre-activation input
func reluDerivative(x float64) float64 {
	if x > 0.0 {
		return 1.0
	}
	return 0.0
}
