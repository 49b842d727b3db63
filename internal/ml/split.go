package ml

import (
	"math"
	"math/rand"
)

// TrainTestSplit shuffles n sample indices with a fixed seed and holds out
// ceil(testFraction*n) of them. At least one sample always stays in train.
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int) {
	if n == 0 {
		return nil, nil
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n) //nolint:gosec // deterministic split, not security sensitive
	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest >= n {
		nTest = n - 1
	}
	if nTest < 0 {
		nTest = 0
	}
	return perm[nTest:], perm[:nTest]
}

// Accuracy is the fraction of equal labels
func Accuracy(want, got []string) float64 {
	if len(want) == 0 || len(want) != len(got) {
		return 0
	}
	hits := 0
	for i := range want {
		if want[i] == got[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}

// MeanSquaredError of predictions against targets
func MeanSquaredError(want, got []float64) float64 {
	if len(want) == 0 || len(want) != len(got) {
		return 0
	}
	var sum float64
	for i := range want {
		d := want[i] - got[i]
		sum += d * d
	}
	return sum / float64(len(want))
}
