package utils

import "math"

// Softmax returns the normalized exponentials of x. An empty input yields nil.
func Softmax(x []float32) []float32 {
	if len(x) == 0 {
		return nil
	}
	maxV := x[0]
	for _, v := range x[1:] {
		if v > maxV {
			maxV = v
		}
	}
	out := make([]float32, len(x))
	var sum float64
	for i, v := range x {
		e := math.Exp(float64(v - maxV))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
