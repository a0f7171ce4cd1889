package rank

import "math"

// Cosine returns dot(a,b)/(|a||b|), guarded against zero-norm vectors.
// The value is left unclamped: raw similarity feeds the hybrid blend.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + normEpsilon)
}
