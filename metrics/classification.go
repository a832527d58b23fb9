// Package metrics provides classification metrics over string labels.
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	prErrors "github.com/ezoic/plantreco/pkg/errors"
)

func checkLabels(op string, yTrue, yPred []string) error {
	if len(yTrue) == 0 {
		return prErrors.NewValueError(op, "input labels cannot be empty")
	}
	if len(yTrue) != len(yPred) {
		return prErrors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// ClassificationError calculates the fraction of misclassified samples.
//
// Parameters:
//   - yTrue: Ground truth labels
//   - yPred: Predicted labels
//
// Returns:
//   - The error rate (between 0 and 1)
//   - An error if inputs are invalid
//
// Example:
//
//	yTrue := []string{"Aloe", "Ficus", "Ficus", "Monstera", "Aloe"}
//	yPred := []string{"Aloe", "Ficus", "Aloe", "Monstera", "Aloe"}
//	errorRate, err := ClassificationError(yTrue, yPred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Error Rate: %.1f\n", errorRate) // Output: Error Rate: 0.2
func ClassificationError(yTrue, yPred []string) (float64, error) {
	if err := checkLabels("ClassificationError", yTrue, yPred); err != nil {
		return 0, err
	}

	// Count misclassifications
	errors := 0
	for i := range yTrue {
		if yTrue[i] != yPred[i] {
			errors++
		}
	}

	return float64(errors) / float64(len(yTrue)), nil
}

// AccuracyScore calculates the classification accuracy.
//
// Accuracy is the fraction of correct predictions.
func AccuracyScore(yTrue, yPred []string) (float64, error) {
	errorRate, err := ClassificationError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1.0 - errorRate, nil
}

// ConfusionMatrix counts predictions per (true, predicted) label pair.
//
// Entry (i, j) is the number of samples whose true label is labels[i] and
// whose predicted label is labels[j]. When labels is nil the sorted union of
// yTrue and yPred is used and returned. Pairs involving a label outside
// labels are not counted.
func ConfusionMatrix(yTrue, yPred []string, labels []string) (*mat.Dense, []string, error) {
	if err := checkLabels("ConfusionMatrix", yTrue, yPred); err != nil {
		return nil, nil, err
	}

	if labels == nil {
		seen := make(map[string]struct{})
		for _, l := range append(append([]string{}, yTrue...), yPred...) {
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				labels = append(labels, l)
			}
		}
		sort.Strings(labels)
	}
	if len(labels) == 0 {
		return nil, nil, prErrors.NewValueError("ConfusionMatrix", "labels cannot be empty")
	}

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for k := range yTrue {
		i, okTrue := index[yTrue[k]]
		j, okPred := index[yPred[k]]
		if okTrue && okPred {
			cm.Set(i, j, cm.At(i, j)+1)
		}
	}
	return cm, labels, nil
}
