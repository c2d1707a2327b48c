package vectordb

import (
	"math"
	"sort"
)

// CosineDistance returns 1 - cos(a, b). Zero vectors are at distance 1
// from everything.
func CosineDistance(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

// Candidate is a match together with its insertion sequence.
type Candidate struct {
	Match
	Seq int64
}

// Rank orders candidates by ascending distance, then ascending sequence,
// and keeps the first k.
func Rank(candidates []Candidate, k int) []Match {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].Seq < candidates[j].Seq
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]Match, len(candidates))
	for i := range candidates {
		out[i] = candidates[i].Match
	}
	return out
}
