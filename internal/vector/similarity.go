package vector

import (
	"math"

	"github.com/hyperjump/vecsearch/internal/models"
)

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of the angle between a and b in [-1, 1].
// Zero-magnitude or mismatched vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return InnerProduct(a, b) / (na * nb)
}

// SquaredL2 returns the squared Euclidean distance between a and b.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// L2Distance returns the Euclidean distance between a and b.
func L2Distance(a, b []float32) float64 {
	return math.Sqrt(SquaredL2(a, b))
}

// Normalize returns a unit-length copy of v. A zero vector is returned as a zero copy.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := L2Norm(v)
	if n == 0 {
		return out
	}
	inv := 1 / n
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// Score computes the metric between a and b using the convention of models.Metric.
func Score(m models.Metric, a, b []float32) float64 {
	switch m {
	case models.MetricL2:
		return L2Distance(a, b)
	case models.MetricIP:
		return InnerProduct(a, b)
	default:
		return CosineSimilarity(a, b)
	}
}

// prepare converts a vector into the representation an index stores for metric m.
// Cosine indexes keep unit vectors so scoring reduces to a dot product.
func prepare(m models.Metric, v []float32) []float32 {
	if m == models.MetricCosine {
		return Normalize(v)
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// scorePrepared scores a prepared query against a prepared stored vector.
func scorePrepared(m models.Metric, q, v []float32) float64 {
	if m == models.MetricL2 {
		return L2Distance(q, v)
	}
	return InnerProduct(q, v)
}
