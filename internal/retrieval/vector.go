package retrieval

import "math"

// Normalize returns v scaled to unit length in float64. A zero or empty vector
// normalizes to a zero vector, which scores 0 against everything.
func Normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var sum float64
	for i, x := range v {
		out[i] = float64(x)
		sum += out[i] * out[i]
	}
	if sum == 0 {
		return out
	}
	mag := math.Sqrt(sum)
	for i := range out {
		out[i] /= mag
	}
	return out
}

// Dot is the dot product over the shared prefix of a and b.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

// Cosine is the cosine similarity of a and b, in [-1, 1].
func Cosine(a, b []float32) float64 {
	return Dot(Normalize(a), Normalize(b))
}
