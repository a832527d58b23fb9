// Package ensemble implements a random forest classifier over string labels.
//
// The forest follows scikit-learn's RandomForestClassifier: every tree is fit
// on a bootstrap sample expressed as sample weights, considers a random subset
// of features at each split and is grown until its leaves are pure (or cannot
// be split). Predictions average the per-tree class probabilities.
//
// Training is sequential and fully determined by RandomState, so two fits on
// the same data produce identical forests.
package ensemble

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/plantreco/core/model"
	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/sklearn/tree"
)

// ClassWeightBalanced weights classes by n_samples / (n_classes * count(class)).
const ClassWeightBalanced = "balanced"

// RandomForestClassifier is a bagged ensemble of decision trees.
type RandomForestClassifier struct {
	State *model.StateManager

	// Hyperparameters
	NEstimators     int
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	Bootstrap       bool
	ClassWeight     string // "" or "balanced"
	RandomState     int64

	// Learned attributes
	Classes            []string
	NFeatures          int
	Estimators         []*tree.DecisionTreeClassifier
	FeatureImportances []float64

	logger log.Logger
}

// Option configures a RandomForestClassifier.
type Option func(*RandomForestClassifier)

// NewRandomForestClassifier creates a forest with scikit-learn's defaults:
// 100 gini trees, sqrt features per split, bootstrap sampling.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		State:           model.NewStateManager(),
		NEstimators:     100,
		Criterion:       "gini",
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     "sqrt",
		Bootstrap:       true,
		RandomState:     -1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	if rf.logger == nil {
		rf.logger = log.GetLoggerWithName("ensemble").With(log.ModelNameKey, "RandomForestClassifier")
	}
	return rf
}

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(rf *RandomForestClassifier) { rf.NEstimators = n }
}

// WithCriterion sets the split criterion of every tree.
func WithCriterion(criterion string) Option {
	return func(rf *RandomForestClassifier) { rf.Criterion = criterion }
}

// WithMaxDepth limits the depth of every tree (0 = unlimited).
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestClassifier) { rf.MaxDepth = depth }
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestClassifier) { rf.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the features drawn per split ("sqrt", "log2", "all").
func WithMaxFeatures(maxFeatures string) Option {
	return func(rf *RandomForestClassifier) { rf.MaxFeatures = maxFeatures }
}

// WithBootstrap enables or disables bootstrap sampling.
func WithBootstrap(bootstrap bool) Option {
	return func(rf *RandomForestClassifier) { rf.Bootstrap = bootstrap }
}

// WithClassWeight sets the class weighting mode.
func WithClassWeight(mode string) Option {
	return func(rf *RandomForestClassifier) { rf.ClassWeight = mode }
}

// WithRandomState sets the seed (-1 = time based).
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestClassifier) { rf.RandomState = seed }
}

// WithLogger replaces the default component logger.
func WithLogger(logger log.Logger) Option {
	return func(rf *RandomForestClassifier) { rf.logger = logger }
}

// SetLogger sets the logger, e.g. after the forest was loaded from disk.
func (rf *RandomForestClassifier) SetLogger(logger log.Logger) {
	rf.logger = logger
}

func (rf *RandomForestClassifier) getLogger() log.Logger {
	if rf.logger == nil {
		return log.Nop()
	}
	return rf.logger
}

// Fit trains the forest on X (n_samples × n_features) and labels y.
func (rf *RandomForestClassifier) Fit(X mat.Matrix, y []string) (err error) {
	defer prErrors.Recover(&err, "RandomForestClassifier.Fit")

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return prErrors.NewModelError("RandomForestClassifier.Fit", "empty data", prErrors.ErrEmptyData)
	}
	if len(y) != nSamples {
		return prErrors.NewDimensionError("RandomForestClassifier.Fit", nSamples, len(y), 0)
	}
	if rf.NEstimators <= 0 {
		return prErrors.NewValidationError("n_estimators", "must be positive", rf.NEstimators)
	}
	if rf.ClassWeight != "" && rf.ClassWeight != ClassWeightBalanced {
		return prErrors.NewValidationError("class_weight", `must be "" or "balanced"`, rf.ClassWeight)
	}

	start := time.Now()
	classes, yIdx := encodeLabels(y)
	classWeights := rf.classWeights(yIdx, len(classes))

	rf.getLogger().Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(classes),
		"n_estimators", rf.NEstimators,
	)

	seed := rf.RandomState
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	master := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	X = mat.DenseCopyOf(X)
	estimators := make([]*tree.DecisionTreeClassifier, rf.NEstimators)
	weights := make([]float64, nSamples)
	for t := 0; t < rf.NEstimators; t++ {
		treeSeed := master.Int64()

		for i := range weights {
			weights[i] = classWeights[yIdx[i]]
		}
		if rf.Bootstrap {
			draws := bootstrapCounts(nSamples, treeSeed)
			for i := range weights {
				weights[i] *= float64(draws[i])
			}
		}

		est := tree.NewDecisionTreeClassifier(
			tree.WithCriterion(rf.Criterion),
			tree.WithMaxDepth(rf.MaxDepth),
			tree.WithMinSamplesSplit(rf.MinSamplesSplit),
			tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
			tree.WithMaxFeatures(rf.MaxFeatures),
			tree.WithDTRandomState(treeSeed),
		)
		if err := est.FitClasses(X, yIdx, len(classes), weights); err != nil {
			return prErrors.Wrapf(err, "fit tree %d", t)
		}
		estimators[t] = est

		rf.getLogger().Debug("Tree fitted", "tree", t, "depth", est.GetDepth(), "leaves", est.GetNLeaves())
	}

	rf.Classes = classes
	rf.NFeatures = nFeatures
	rf.Estimators = estimators
	rf.FeatureImportances = averageImportances(estimators, nFeatures)
	rf.State.SetFitted()

	rf.getLogger().Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// encodeLabels maps labels to indices into their sorted unique values.
func encodeLabels(y []string) ([]string, []int) {
	seen := make(map[string]struct{}, len(y))
	classes := make([]string, 0)
	for _, label := range y {
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			classes = append(classes, label)
		}
	}
	sort.Strings(classes)

	idx := make([]int, len(y))
	for i, label := range y {
		idx[i] = sort.SearchStrings(classes, label)
	}
	return classes, idx
}

func (rf *RandomForestClassifier) classWeights(yIdx []int, nClasses int) []float64 {
	w := make([]float64, nClasses)
	if rf.ClassWeight != ClassWeightBalanced {
		for c := range w {
			w[c] = 1.0
		}
		return w
	}
	counts := make([]int, nClasses)
	for _, c := range yIdx {
		counts[c]++
	}
	for c, n := range counts {
		w[c] = float64(len(yIdx)) / (float64(nClasses) * float64(n))
	}
	return w
}

// bootstrapCounts draws n indices with replacement and returns how often each was drawn.
func bootstrapCounts(n int, seed int64) []int {
	r := rand.New(rand.NewPCG(uint64(seed), uint64(n)))
	counts := make([]int, n)
	for i := 0; i < n; i++ {
		counts[r.IntN(n)]++
	}
	return counts
}

func averageImportances(estimators []*tree.DecisionTreeClassifier, nFeatures int) []float64 {
	imp := make([]float64, nFeatures)
	for _, est := range estimators {
		for j, v := range est.GetFeatureImportances() {
			imp[j] += v
		}
	}
	sum := 0.0
	for _, v := range imp {
		sum += v
	}
	if sum > 0 {
		for j := range imp {
			imp[j] /= sum
		}
	}
	return imp
}

func (rf *RandomForestClassifier) check(X mat.Matrix, op string) error {
	if !rf.State.IsFitted() {
		return prErrors.NewNotFittedError("RandomForestClassifier", op)
	}
	if _, c := X.Dims(); c != rf.NFeatures {
		return prErrors.NewDimensionError("RandomForestClassifier."+op, rf.NFeatures, c, 1)
	}
	return nil
}

// PredictProba returns the mean class probabilities of the trees, one column
// per entry of Classes.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (_ *mat.Dense, err error) {
	defer prErrors.Recover(&err, "RandomForestClassifier.PredictProba")
	if err := rf.check(X, "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	nClasses := len(rf.Classes)
	proba := mat.NewDense(nSamples, nClasses, nil)
	row := make([]float64, nClasses)
	for i := 0; i < nSamples; i++ {
		for c := range row {
			row[c] = 0
		}
		for _, est := range rf.Estimators {
			est.AccumulateProba(X, i, row)
		}
		for c := range row {
			row[c] /= float64(len(rf.Estimators))
		}
		proba.SetRow(i, row)
	}
	return proba, nil
}

// Predict returns the most probable label for every row of X. Ties go to the
// class that sorts first.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (_ []string, err error) {
	defer prErrors.Recover(&err, "RandomForestClassifier.Predict")
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}

	nSamples, nClasses := proba.Dims()
	labels := make([]string, nSamples)
	for i := 0; i < nSamples; i++ {
		best := 0
		for c := 1; c < nClasses; c++ {
			if proba.At(i, c) > proba.At(i, best) {
				best = c
			}
		}
		labels[i] = rf.Classes[best]
	}

	rf.getLogger().Debug("Prediction completed", log.OperationKey, log.OperationPredict, log.PredsKey, nSamples)
	return labels, nil
}

// Score returns the accuracy of Predict(X) against y.
func (rf *RandomForestClassifier) Score(X mat.Matrix, y []string) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(pred) != len(y) {
		return 0, prErrors.NewDimensionError("RandomForestClassifier.Score", len(pred), len(y), 0)
	}
	if len(y) == 0 {
		return 0, nil
	}
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y)), nil
}

// GetFeatureImportances returns the mean decrease in impurity per feature.
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	if rf.FeatureImportances == nil {
		return nil
	}
	return append([]float64(nil), rf.FeatureImportances...)
}

// GetParams returns the hyperparameters.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.NEstimators,
		"criterion":         rf.Criterion,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"max_features":      rf.MaxFeatures,
		"bootstrap":         rf.Bootstrap,
		"class_weight":      rf.ClassWeight,
		"random_state":      rf.RandomState,
	}
}

func (rf *RandomForestClassifier) String() string {
	if !rf.State.IsFitted() {
		return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, random_state=%d)", rf.NEstimators, rf.RandomState)
	}
	return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, random_state=%d, n_classes=%d, n_features=%d)",
		rf.NEstimators, rf.RandomState, len(rf.Classes), rf.NFeatures)
}
