package retrieval

import (
	"cmp"
	"math"
	"slices"
)

// Cosine returns dot(a,b) / (|a|*|b|) for sparse vectors keyed by term or
// position. It is 0 when either vector has zero magnitude. Keys are visited
// in sorted order so the result is bit-for-bit symmetric.
func Cosine[K cmp.Ordered](a, b map[K]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dot, normA := sparseDotNorm(a, b)
	_, normB := sparseDotNorm(b, a)
	return finiteRatio(dot, normA, normB)
}

// Dense is Cosine over positional vectors. Vectors of different length are
// compared over the shared prefix.
func Dense(a, b []float32) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	return finiteRatio(dot, normA, normB)
}

func sparseDotNorm[K cmp.Ordered](a, b map[K]float64) (dot, norm float64) {
	keys := make([]K, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := a[k]
		norm += v * v
		if w, ok := b[k]; ok {
			dot += v * w
		}
	}
	return dot, norm
}

func finiteRatio(dot, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}
