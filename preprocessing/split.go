package preprocessing

import (
	"math"
	"math/rand"

	"github.com/pahal2007/SIMTree/pkg/errors"
)

// TrainTestSplit partitions the indices 0..n-1 into a random train set and a
// held-out test set. testRatio is the fraction assigned to the test set
// (rounded up). The caller supplies the random source so splits are
// reproducible and independent across fit calls.
func TrainTestSplit(n int, testRatio float64, rng *rand.Rand) (trainIdx, testIdx []int, err error) {
	if n <= 1 {
		return nil, nil, errors.NewValueError("TrainTestSplit", "need at least 2 samples to split")
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, errors.NewValidationError("test_ratio", "must be in (0, 1)", testRatio)
	}

	nTest := int(math.Ceil(float64(n) * testRatio))
	if nTest >= n {
		nTest = n - 1
	}

	perm := rng.Perm(n)
	testIdx = append([]int(nil), perm[:nTest]...)
	trainIdx = append([]int(nil), perm[nTest:]...)
	return trainIdx, testIdx, nil
}

// StratifiedSplit partitions indices into train and test sets while
// preserving the per-label proportions of labels. Used for classification
// validation splits so rare classes stay represented on both sides.
func StratifiedSplit(labels []float64, testRatio float64, rng *rand.Rand) (trainIdx, testIdx []int, err error) {
	n := len(labels)
	if n <= 1 {
		return nil, nil, errors.NewValueError("StratifiedSplit", "need at least 2 samples to split")
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, errors.NewValidationError("test_ratio", "must be in (0, 1)", testRatio)
	}

	groups := make(map[float64][]int)
	for i, label := range labels {
		groups[label] = append(groups[label], i)
	}

	// Deterministic class order so the same seed yields the same split.
	classes := make([]float64, 0, len(groups))
	for label := range groups {
		classes = append(classes, label)
	}
	for i := 0; i < len(classes)-1; i++ {
		for j := i + 1; j < len(classes); j++ {
			if classes[i] > classes[j] {
				classes[i], classes[j] = classes[j], classes[i]
			}
		}
	}

	for _, label := range classes {
		if len(groups[label]) < 2 {
			return nil, nil, errors.NewValueError("StratifiedSplit",
				"every class needs at least 2 members to appear on both sides of the split")
		}
	}

	for _, label := range classes {
		idx := groups[label]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })

		// Round to the requested ratio, but keep every class represented on
		// both sides regardless of rounding.
		nTest := int(math.Round(float64(len(idx)) * testRatio))
		if nTest < 1 {
			nTest = 1
		}
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		testIdx = append(testIdx, idx[:nTest]...)
		trainIdx = append(trainIdx, idx[nTest:]...)
	}

	rng.Shuffle(len(trainIdx), func(a, b int) { trainIdx[a], trainIdx[b] = trainIdx[b], trainIdx[a] })
	rng.Shuffle(len(testIdx), func(a, b int) { testIdx[a], testIdx[b] = testIdx[b], testIdx[a] })
	return trainIdx, testIdx, nil
}
