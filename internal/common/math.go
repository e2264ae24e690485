package common

import "math"

// ClampFloat64 limits v to [lo, hi]
func ClampFloat64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sigmoid is the logistic function 1/(1+e^-x)
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Mean calculates the arithmetic mean
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StepScore returns min(cap, step*hits), the saturating score used for keyword counts
func StepScore(hits int, step, cap float64) float64 {
	return math.Min(cap, step*float64(hits))
}
