// Package training fits the plant classifier on the cleaned dataset.
package training

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/plantreco/core/model"
	"github.com/ezoic/plantreco/metrics"
	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/plant"
	"github.com/ezoic/plantreco/preprocessing"
	"github.com/ezoic/plantreco/sklearn/ensemble"
	"github.com/ezoic/plantreco/sklearn/model_selection"
)

// SuccessMessage is printed once the model is saved.
const SuccessMessage = "✅ Modèle entraîné avec succès"

// Config holds the training hyperparameters.
type Config struct {
	NEstimators int
	TestSize    float64
	RandomState int64
	ClassWeight string
}

// DefaultConfig returns 150 class-balanced trees, a 20% test split and seed 42.
func DefaultConfig() Config {
	return Config{
		NEstimators: 150,
		TestSize:    0.2,
		RandomState: 42,
		ClassWeight: ensemble.ClassWeightBalanced,
	}
}

// Paths locates the inputs and outputs of a training run.
// ImportanceChart is optional.
type Paths struct {
	Cleaned         string
	Preprocessor    string
	Model           string
	ImportanceChart string
}

// Report summarises a training run.
type Report struct {
	NSamples           int
	NTrain             int
	NTest              int
	NClasses           int
	TrainScore         float64
	TestScore          float64
	FeatureNames       []string
	FeatureImportances []float64
	Duration           time.Duration
}

// Lines returns the human readable summary of the run.
func (r *Report) Lines() []string {
	return []string{
		SuccessMessage,
		fmt.Sprintf("Score entraînement: %s", FormatPercent(r.TrainScore)),
		fmt.Sprintf("Score test: %s", FormatPercent(r.TestScore)),
	}
}

// FormatPercent formats a fraction with two decimals, 0.975 → "97.50%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// Trainer fits a RandomForestClassifier on preprocessed plant records.
type Trainer struct {
	cfg    Config
	logger log.Logger
}

// NewTrainer creates a Trainer. A nil logger uses the "training" component logger.
func NewTrainer(cfg Config, logger log.Logger) *Trainer {
	if logger == nil {
		logger = log.GetLoggerWithName("training")
	}
	return &Trainer{cfg: cfg, logger: logger}
}

// Train transforms records with pre, splits them, fits the forest and scores
// it on both parts. The labels are the plant names.
func (t *Trainer) Train(records []plant.Record, pre *preprocessing.ColumnTransformer) (*ensemble.RandomForestClassifier, *Report, error) {
	start := time.Now()
	if len(records) == 0 {
		return nil, nil, prErrors.NewModelError("Trainer.Train", "no records", prErrors.ErrEmptyData)
	}

	X, err := pre.Transform(plant.Frame(records))
	if err != nil {
		return nil, nil, prErrors.Wrap(err, "transform dataset")
	}
	y := make([]string, len(records))
	for i, r := range records {
		y[i] = r.Nom
	}

	XTrain, XTest, yTrain, yTest, err := model_selection.TrainTestSplit(X, y, t.cfg.TestSize, t.cfg.RandomState)
	if err != nil {
		return nil, nil, prErrors.Wrap(err, "split dataset")
	}
	t.logger.Info("Dataset split",
		log.PhaseKey, log.PhaseTraining,
		"train", len(yTrain),
		"test", len(yTest),
	)

	rf := ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(t.cfg.NEstimators),
		ensemble.WithClassWeight(t.cfg.ClassWeight),
		ensemble.WithRandomState(t.cfg.RandomState),
		ensemble.WithLogger(t.logger.With(log.ModelNameKey, "RandomForestClassifier")),
	)
	if err := rf.Fit(XTrain, yTrain); err != nil {
		return nil, nil, prErrors.Wrap(err, "fit classifier")
	}

	trainScore, err := score(rf, XTrain, yTrain)
	if err != nil {
		return nil, nil, err
	}
	testScore, err := score(rf, XTest, yTest)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{
		NSamples:           len(records),
		NTrain:             len(yTrain),
		NTest:              len(yTest),
		NClasses:           len(rf.Classes),
		TrainScore:         trainScore,
		TestScore:          testScore,
		FeatureNames:       pre.GetFeatureNamesOut(),
		FeatureImportances: rf.GetFeatureImportances(),
		Duration:           time.Since(start),
	}
	return rf, report, nil
}

func score(rf *ensemble.RandomForestClassifier, X mat.Matrix, y []string) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, prErrors.Wrap(err, "predict")
	}
	return metrics.AccuracyScore(y, pred)
}

// Run loads the cleaned dataset and the preprocessor, trains, persists the
// model and optionally renders the feature importance chart.
func (t *Trainer) Run(paths Paths) (*Report, error) {
	logger := t.logger.With(log.PhaseKey, log.PhaseTraining)

	records, err := plant.ReadRecords(paths.Cleaned)
	if err != nil {
		return nil, err
	}
	logger.Info("Cleaned dataset loaded", log.PathKey, paths.Cleaned, log.SamplesKey, len(records))

	var pre preprocessing.ColumnTransformer
	if err := model.LoadModel(&pre, paths.Preprocessor); err != nil {
		return nil, prErrors.Wrap(err, "load preprocessor")
	}

	rf, report, err := t.Train(records, &pre)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(paths.Model), 0o755); err != nil {
		return nil, prErrors.Wrapf(err, "create artifact directory for %s", paths.Model)
	}
	if err := model.SaveModel(rf, paths.Model); err != nil {
		return nil, prErrors.Wrap(err, "save model")
	}
	logger.Info("Model saved", log.OperationKey, log.OperationSave, log.PathKey, paths.Model)

	if paths.ImportanceChart != "" {
		if err := WriteImportanceChart(paths.ImportanceChart, report.FeatureNames, report.FeatureImportances); err != nil {
			return nil, err
		}
		logger.Info("Feature importance chart written", log.PathKey, paths.ImportanceChart)
	}

	logger.Info("Training finished",
		log.ScoreKey, report.TestScore,
		"train_score", report.TrainScore,
		log.DurationMsKey, report.Duration.Milliseconds(),
	)
	return report, nil
}
