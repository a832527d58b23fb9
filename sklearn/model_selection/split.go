// Package model_selection provides dataset splitting helpers.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	prErrors "github.com/ezoic/plantreco/pkg/errors"
)

// SplitIndices returns shuffled train and test row indices.
//
// testSize is a fraction in (0, 1). The test set gets ceil(testSize*n) rows
// and the training set the rest, the same rounding scikit-learn applies.
// The permutation depends only on seed.
func SplitIndices(nSamples int, testSize float64, seed int64) (train, test []int, err error) {
	if nSamples <= 0 {
		return nil, nil, prErrors.NewModelError("SplitIndices", "empty data", prErrors.ErrEmptyData)
	}
	if testSize <= 0 || testSize >= 1 || math.IsNaN(testSize) {
		return nil, nil, prErrors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	nTest := int(math.Ceil(testSize * float64(nSamples)))
	nTrain := nSamples - nTest
	if nTrain <= 0 {
		return nil, nil, prErrors.NewValueError("SplitIndices",
			fmt.Sprintf("with n_samples=%d and test_size=%g the training set would be empty", nSamples, testSize))
	}

	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	perm := r.Perm(nSamples)
	return perm[nTest:], perm[:nTest], nil
}

// TrainTestSplit splits X and y into random train and test subsets.
func TrainTestSplit(X mat.Matrix, y []string, testSize float64, seed int64) (XTrain, XTest *mat.Dense, yTrain, yTest []string, err error) {
	nSamples, _ := X.Dims()
	if len(y) != nSamples {
		return nil, nil, nil, nil, prErrors.NewDimensionError("TrainTestSplit", nSamples, len(y), 0)
	}

	trainIdx, testIdx, err := SplitIndices(nSamples, testSize, seed)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	XTrain, yTrain = take(X, y, trainIdx)
	XTest, yTest = take(X, y, testIdx)
	return XTrain, XTest, yTrain, yTest, nil
}

func take(X mat.Matrix, y []string, idx []int) (*mat.Dense, []string) {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	labels := make([]string, len(idx))
	for k, i := range idx {
		for j := 0; j < c; j++ {
			out.Set(k, j, X.At(i, j))
		}
		labels[k] = y[i]
	}
	return out, labels
}
