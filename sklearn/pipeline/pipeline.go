// Package pipeline chains a fitted frame transformer and a fitted classifier
// so that raw rows go in and labels come out.
package pipeline

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/plantreco/metrics"
	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/preprocessing"
)

// Transformer turns a frame into a feature matrix.
// *preprocessing.ColumnTransformer implements it.
type Transformer interface {
	Transform(f *preprocessing.Frame) (mat.Matrix, error)
}

// Classifier maps feature rows to labels.
// *ensemble.RandomForestClassifier implements it.
type Classifier interface {
	Predict(X mat.Matrix) ([]string, error)
}

// Step names used in errors and logs.
const (
	StepPreprocessor = "preprocesseur"
	StepClassifier   = "classifieur"
)

// Pipeline applies Transformer then Classifier. Both must already be fitted;
// the pipeline itself never fits anything and holds no mutable state.
type Pipeline struct {
	transformer Transformer
	classifier  Classifier
	logger      log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for per-call debug output.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates a Pipeline.
func New(transformer Transformer, classifier Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		transformer: transformer,
		classifier:  classifier,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("pipeline")
	}
	return p
}

// Transform runs only the transformer step.
func (p *Pipeline) Transform(f *preprocessing.Frame) (_ mat.Matrix, err error) {
	defer prErrors.Recover(&err, "Pipeline.Transform")
	if p.transformer == nil {
		return nil, prErrors.NewValidationError("pipeline step", "missing", StepPreprocessor)
	}
	X, err := p.transformer.Transform(f)
	if err != nil {
		return nil, prErrors.Wrapf(err, "failed to transform at step '%s'", StepPreprocessor)
	}
	return X, nil
}

// Predict transforms f and returns one label per row.
func (p *Pipeline) Predict(f *preprocessing.Frame) (_ []string, err error) {
	defer prErrors.Recover(&err, "Pipeline.Predict")
	start := time.Now()

	X, err := p.Transform(f)
	if err != nil {
		return nil, err
	}
	if p.classifier == nil {
		return nil, prErrors.NewValidationError("pipeline step", "missing", StepClassifier)
	}
	labels, err := p.classifier.Predict(X)
	if err != nil {
		return nil, prErrors.Wrapf(err, "failed to predict at step '%s'", StepClassifier)
	}

	p.logger.Debug("Pipeline prediction",
		log.OperationKey, log.OperationPredict,
		log.SamplesKey, f.Len(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return labels, nil
}

// Score returns the accuracy of Predict(f) against y.
func (p *Pipeline) Score(f *preprocessing.Frame, y []string) (float64, error) {
	pred, err := p.Predict(f)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyScore(y, pred)
}
