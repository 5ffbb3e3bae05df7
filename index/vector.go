package index

import "math"

// normalizeVector returns v scaled to unit length. It reports false for a
// zero vector, which has no direction and cannot be compared.
func normalizeVector(v []float32) ([]float32, bool) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return nil, false
	}

	magnitude := math.Sqrt(sumSquares)
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result, true
}
