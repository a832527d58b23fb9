// Package tree implements a CART decision tree classifier with sample weights,
// the building block of the random forest in sklearn/ensemble.
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/plantreco/core/model"
	prErrors "github.com/ezoic/plantreco/pkg/errors"
)

// TreeNode represents a node in the decision tree
type TreeNode struct {
	IsLeaf    bool      // Whether this is a leaf node
	Feature   int       // Feature index for split (internal nodes)
	Threshold float64   // Threshold value for split (internal nodes)
	Left      *TreeNode // Left child (values <= threshold)
	Right     *TreeNode // Right child (values > threshold, and missing values)

	// Leaf class distribution, sparse: LeafClasses[k] has probability LeafProba[k].
	LeafClasses []int
	LeafProba   []float64

	PredictClass int     // Majority class index
	Impurity     float64 // Node impurity
	NSamples     int     // Number of samples at this node
	WeightedN    float64 // Total sample weight at this node
	Depth        int     // Depth of this node in the tree
}

// DecisionTreeClassifier implements a decision tree for classification.
// All fields are exported so fitted trees can be persisted with gob.
type DecisionTreeClassifier struct {
	State *model.StateManager

	// Hyperparameters
	Criterion           string  // Splitting criterion: "gini", "entropy"
	MaxDepth            int     // Maximum depth of tree (0 = unlimited)
	MinSamplesSplit     int     // Minimum samples to split a node
	MinSamplesLeaf      int     // Minimum samples in a leaf
	MaxFeatures         string  // Features considered per split: "all", "sqrt", "log2"
	MinImpurityDecrease float64 // Minimum weighted impurity decrease for split
	RandomState         int64   // Random seed (-1 = time based)

	// Tree structure
	Root      *TreeNode
	NClasses  int
	NFeatures int
	Classes   []float64 // Class label for each class index

	FeatureImportances []float64

	rng *rand.Rand
}

// DecisionTreeClassifierOption is a functional option
type DecisionTreeClassifierOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new decision tree classifier
func NewDecisionTreeClassifier(opts ...DecisionTreeClassifierOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		State:               model.NewStateManager(),
		Criterion:           "gini",
		MaxDepth:            0,
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		MaxFeatures:         "all",
		MinImpurityDecrease: 0.0,
		RandomState:         -1,
	}

	for _, opt := range opts {
		opt(dt)
	}

	return dt
}

// WithCriterion sets the splitting criterion
func WithCriterion(criterion string) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.Criterion = criterion
	}
}

// WithMaxDepth sets the maximum tree depth
func WithMaxDepth(depth int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.MaxDepth = depth
	}
}

// WithMinSamplesSplit sets minimum samples to split
func WithMinSamplesSplit(n int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.MinSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets minimum samples in leaf
func WithMinSamplesLeaf(n int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.MinSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many features are drawn per split: "all", "sqrt" or "log2"
func WithMaxFeatures(maxFeatures string) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.MaxFeatures = maxFeatures
	}
}

// WithDTRandomState sets the random seed
func WithDTRandomState(seed int64) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.RandomState = seed
	}
}

// Fit trains the decision tree on float class labels y (column vector).
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitWeighted(X, y, nil)
}

// FitWeighted trains the tree with per-sample weights. A nil weight slice
// means unit weights; samples with zero weight are left out entirely.
func (dt *DecisionTreeClassifier) FitWeighted(X, y mat.Matrix, sampleWeight []float64) (err error) {
	defer prErrors.Recover(&err, "DecisionTreeClassifier.Fit")

	nSamples, _ := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples != yRows {
		return prErrors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return prErrors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yCols, 1)
	}

	classes := extractClasses(y)
	yIndices := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		yIndices[i] = sort.SearchFloat64s(classes, y.At(i, 0))
	}

	if err := dt.FitClasses(X, yIndices, len(classes), sampleWeight); err != nil {
		return err
	}
	dt.Classes = classes
	return nil
}

// FitClasses trains the tree on class indices in [0, nClasses). The fitted
// Classes are 0..nClasses-1, so every tree of an ensemble shares the same
// class space even when a bootstrap sample misses some classes.
func (dt *DecisionTreeClassifier) FitClasses(X mat.Matrix, y []int, nClasses int, sampleWeight []float64) (err error) {
	defer prErrors.Recover(&err, "DecisionTreeClassifier.FitClasses")

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return prErrors.NewModelError("DecisionTreeClassifier.Fit", "empty data", prErrors.ErrEmptyData)
	}
	if len(y) != nSamples {
		return prErrors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, len(y), 0)
	}
	if sampleWeight != nil && len(sampleWeight) != nSamples {
		return prErrors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, len(sampleWeight), 0)
	}
	if nClasses <= 0 {
		return prErrors.NewValueError("DecisionTreeClassifier.Fit", "nClasses must be positive")
	}

	dt.NClasses = nClasses
	dt.NFeatures = nFeatures
	dt.Classes = make([]float64, nClasses)
	for i := range dt.Classes {
		dt.Classes[i] = float64(i)
	}
	dt.FeatureImportances = make([]float64, nFeatures)

	seed := dt.RandomState
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	dt.rng = rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	b := &builder{
		dt:     dt,
		X:      mat.DenseCopyOf(X),
		y:      y,
		weight: sampleWeight,
	}

	indices := make([]int, 0, nSamples)
	for i := 0; i < nSamples; i++ {
		if y[i] < 0 || y[i] >= nClasses {
			return prErrors.NewValueError("DecisionTreeClassifier.Fit",
				fmt.Sprintf("class index %d out of range [0, %d)", y[i], nClasses))
		}
		if b.w(i) > 0 {
			indices = append(indices, i)
			b.totalW += b.w(i)
		}
	}
	if len(indices) == 0 {
		return prErrors.NewModelError("DecisionTreeClassifier.Fit", "all sample weights are zero", prErrors.ErrEmptyData)
	}

	dt.Root = b.build(indices, 0)
	dt.normalizeFeatureImportances()

	dt.State.SetFitted()
	return nil
}

func extractClasses(y mat.Matrix) []float64 {
	rows, _ := y.Dims()
	seen := make(map[float64]bool)
	classes := make([]float64, 0)
	for i := 0; i < rows; i++ {
		label := y.At(i, 0)
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	sort.Float64s(classes)
	return classes
}

// builder holds the training data while the tree grows.
type builder struct {
	dt     *DecisionTreeClassifier
	X      *mat.Dense
	y      []int
	weight []float64
	totalW float64
}

func (b *builder) w(i int) float64 {
	if b.weight == nil {
		return 1.0
	}
	return b.weight[i]
}

// build recursively builds the decision tree
func (b *builder) build(indices []int, depth int) *TreeNode {
	dt := b.dt
	counts := make([]float64, dt.NClasses)
	total := 0.0
	for _, i := range indices {
		counts[b.y[i]] += b.w(i)
		total += b.w(i)
	}

	predictClass := 0
	for c, v := range counts {
		if v > counts[predictClass] {
			predictClass = c
		}
	}

	impurity := dt.calculateImpurity(counts, total)
	node := &TreeNode{
		PredictClass: predictClass,
		Impurity:     impurity,
		NSamples:     len(indices),
		WeightedN:    total,
		Depth:        depth,
	}

	if dt.shouldStop(len(indices), impurity, depth) {
		return b.leaf(node, counts, total)
	}

	sp, ok := b.findBestSplit(indices, counts, total, impurity)
	if !ok {
		return b.leaf(node, counts, total)
	}

	// weighted impurity decrease relative to the whole training set
	if sp.weightedDecrease/b.totalW+1e-12 < dt.MinImpurityDecrease {
		return b.leaf(node, counts, total)
	}

	node.Feature = sp.feature
	node.Threshold = sp.threshold
	dt.FeatureImportances[sp.feature] += sp.weightedDecrease

	left := make([]int, 0, sp.nLeft)
	right := make([]int, 0, len(indices)-sp.nLeft)
	for _, i := range indices {
		if b.X.At(i, sp.feature) <= sp.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.Left = b.build(left, depth+1)
	node.Right = b.build(right, depth+1)
	return node
}

func (b *builder) leaf(node *TreeNode, counts []float64, total float64) *TreeNode {
	node.IsLeaf = true
	for c, v := range counts {
		if v > 0 {
			node.LeafClasses = append(node.LeafClasses, c)
			node.LeafProba = append(node.LeafProba, v/total)
		}
	}
	return node
}

// shouldStop checks stopping criteria
func (dt *DecisionTreeClassifier) shouldStop(nSamples int, impurity float64, depth int) bool {
	if dt.MaxDepth > 0 && depth >= dt.MaxDepth {
		return true
	}
	if nSamples < dt.MinSamplesSplit || nSamples < 2*dt.MinSamplesLeaf {
		return true
	}
	return impurity <= 1e-12
}

// calculateImpurity calculates node impurity using Gini or Entropy over weighted counts
func (dt *DecisionTreeClassifier) calculateImpurity(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0.0
	}
	if dt.Criterion == "entropy" {
		s := 0.0
		for _, c := range counts {
			if c > 0 {
				s += c * math.Log(c)
			}
		}
		return entropyFrom(s, total)
	}
	sq := 0.0
	for _, c := range counts {
		sq += c * c
	}
	return giniFrom(sq, total)
}

// giniFrom returns 1 - Σ(c/W)^2 given Σc^2.
func giniFrom(sumSq, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return 1.0 - sumSq/(total*total)
}

// entropyFrom returns -Σ p log2 p given Σ c ln c.
func entropyFrom(sumCLogC, total float64) float64 {
	if total <= 0 {
		return 0
	}
	h := math.Log(total) - sumCLogC/total
	if h < 0 {
		h = 0
	}
	return h / math.Ln2
}

func xlogx(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return x * math.Log(x)
}

type split struct {
	feature          int
	threshold        float64
	nLeft            int
	weightedDecrease float64 // W*imp - WL*impL - WR*impR
}

// numFeaturesToDraw resolves MaxFeatures against the number of features.
func (dt *DecisionTreeClassifier) numFeaturesToDraw() int {
	var k int
	switch dt.MaxFeatures {
	case "sqrt", "auto":
		k = int(math.Sqrt(float64(dt.NFeatures)))
	case "log2":
		k = int(math.Log2(float64(dt.NFeatures)))
	default:
		k = dt.NFeatures
	}
	if k < 1 {
		k = 1
	}
	if k > dt.NFeatures {
		k = dt.NFeatures
	}
	return k
}

// findBestSplit scans a random subset of features. Features that are constant
// at this node do not count towards the subset, so the search continues until
// k informative features were examined or all features were seen.
func (b *builder) findBestSplit(indices []int, parentCounts []float64, total, parentImpurity float64) (split, bool) {
	dt := b.dt
	k := dt.numFeaturesToDraw()
	order := dt.rng.Perm(dt.NFeatures)

	best := split{weightedDecrease: math.Inf(-1)}
	found := false
	informative := 0

	sorted := make([]int, len(indices))
	keys := make([]float64, len(indices))
	left := make([]float64, dt.NClasses)

	for _, feature := range order {
		if informative >= k {
			break
		}

		copy(sorted, indices)
		key := func(i int) float64 {
			v := b.X.At(i, feature)
			if math.IsNaN(v) {
				return math.Inf(1)
			}
			return v
		}
		sort.SliceStable(sorted, func(a, c int) bool { return key(sorted[a]) < key(sorted[c]) })
		for p, i := range sorted {
			keys[p] = key(i)
		}
		if keys[0] == keys[len(keys)-1] {
			continue
		}
		informative++

		for c := range left {
			left[c] = 0
		}
		leftW := 0.0
		var sqL, sqR, clL, clR float64
		for _, v := range parentCounts {
			sqR += v * v
			clR += xlogx(v)
		}

		for p := 0; p < len(sorted)-1; p++ {
			i := sorted[p]
			c := b.y[i]
			wi := b.w(i)

			rightC := parentCounts[c] - left[c]
			sqL += (left[c]+wi)*(left[c]+wi) - left[c]*left[c]
			sqR += (rightC-wi)*(rightC-wi) - rightC*rightC
			clL += xlogx(left[c]+wi) - xlogx(left[c])
			clR += xlogx(rightC-wi) - xlogx(rightC)
			left[c] += wi
			leftW += wi

			nLeft := p + 1
			nRight := len(sorted) - nLeft
			if keys[p] == keys[p+1] || math.IsInf(keys[p+1], 1) {
				continue
			}
			if nLeft < dt.MinSamplesLeaf || nRight < dt.MinSamplesLeaf {
				continue
			}

			rightW := total - leftW
			var impL, impR float64
			if dt.Criterion == "entropy" {
				impL, impR = entropyFrom(clL, leftW), entropyFrom(clR, rightW)
			} else {
				impL, impR = giniFrom(sqL, leftW), giniFrom(sqR, rightW)
			}
			decrease := total*parentImpurity - leftW*impL - rightW*impR

			if decrease > best.weightedDecrease {
				threshold := keys[p] + (keys[p+1]-keys[p])/2.0
				if threshold >= keys[p+1] {
					threshold = keys[p]
				}
				best = split{
					feature:          feature,
					threshold:        threshold,
					nLeft:            nLeft,
					weightedDecrease: decrease,
				}
				found = true
			}
		}
	}

	return best, found
}

// normalizeFeatureImportances normalizes feature importance scores
func (dt *DecisionTreeClassifier) normalizeFeatureImportances() {
	sum := 0.0
	for _, imp := range dt.FeatureImportances {
		sum += imp
	}

	if sum > 0 {
		for i := range dt.FeatureImportances {
			dt.FeatureImportances[i] /= sum
		}
	}
}

// leafFor traverses the tree for one sample.
func (dt *DecisionTreeClassifier) leafFor(X mat.Matrix, i int) *TreeNode {
	node := dt.Root
	for !node.IsLeaf {
		// NaN <= threshold is false: missing values go right
		if X.At(i, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

func (dt *DecisionTreeClassifier) checkPredict(X mat.Matrix, op string) error {
	if !dt.State.IsFitted() {
		return prErrors.NewNotFittedError("DecisionTreeClassifier", op)
	}
	if _, c := X.Dims(); c != dt.NFeatures {
		return prErrors.NewDimensionError("DecisionTreeClassifier."+op, dt.NFeatures, c, 1)
	}
	return nil
}

// Predict makes predictions for input data
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict(X, "Predict"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		predictions.Set(i, 0, dt.Classes[dt.leafFor(X, i).PredictClass])
	}

	return predictions, nil
}

// PredictProba returns probability estimates for each class
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict(X, "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	probas := mat.NewDense(nSamples, dt.NClasses, nil)
	for i := 0; i < nSamples; i++ {
		leaf := dt.leafFor(X, i)
		for k, c := range leaf.LeafClasses {
			probas.Set(i, c, leaf.LeafProba[k])
		}
	}

	return probas, nil
}

// AccumulateProba adds the leaf distribution of sample i to dst (len NClasses).
// The forest uses it to average trees without allocating a dense matrix per tree.
func (dt *DecisionTreeClassifier) AccumulateProba(X mat.Matrix, i int, dst []float64) {
	leaf := dt.leafFor(X, i)
	for k, c := range leaf.LeafClasses {
		dst[c] += leaf.LeafProba[k]
	}
}

// Score returns the mean accuracy on the given test data
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0.0
	}

	nSamples, _ := X.Dims()
	if nSamples == 0 {
		return 0.0
	}
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}

	return float64(correct) / float64(nSamples)
}

// GetParams returns the model hyperparameters
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             dt.Criterion,
		"max_depth":             dt.MaxDepth,
		"min_samples_split":     dt.MinSamplesSplit,
		"min_samples_leaf":      dt.MinSamplesLeaf,
		"max_features":          dt.MaxFeatures,
		"min_impurity_decrease": dt.MinImpurityDecrease,
		"random_state":          dt.RandomState,
	}
}

// GetFeatureImportances returns feature importance scores
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	if dt.FeatureImportances == nil {
		return nil
	}
	importances := make([]float64, len(dt.FeatureImportances))
	copy(importances, dt.FeatureImportances)
	return importances
}

// GetDepth returns the depth of the tree
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.Root == nil {
		return 0
	}
	return maxDepth(dt.Root)
}

func maxDepth(node *TreeNode) int {
	if node.IsLeaf {
		return node.Depth
	}
	l, r := maxDepth(node.Left), maxDepth(node.Right)
	if l > r {
		return l
	}
	return r
}

// GetNLeaves returns the number of leaf nodes
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	return countLeaves(dt.Root)
}

func countLeaves(node *TreeNode) int {
	if node == nil {
		return 0
	}
	if node.IsLeaf {
		return 1
	}
	return countLeaves(node.Left) + countLeaves(node.Right)
}
