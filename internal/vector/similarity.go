package vector

import "math"

// L2Distance returns the Euclidean distance between a and b, or +Inf on a length mismatch.
func L2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Similarity maps a distance to (0, 1], with 1 for identical vectors.
func Similarity(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}
