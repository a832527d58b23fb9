package training

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/plantreco/core/model"
	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/plant"
	"github.com/ezoic/plantreco/sklearn/ensemble"
)

// catalog returns n copies of four plants with distinct requirements.
func catalog(n int) []plant.Record {
	base := []plant.Record{
		{Nom: "Aloe Vera", Humidite: "1", Lumiere: plant.PleinSoleil, Difficulte: plant.Facile},
		{Nom: "Monstera", Humidite: "3", Lumiere: plant.MiOmbre, Difficulte: plant.Moyen},
		{Nom: "Fougère", Humidite: "5", Lumiere: plant.Ombre, Difficulte: plant.Difficile},
		{Nom: "Pothos", Humidite: "3", Lumiere: plant.MiOmbre, Difficulte: plant.Facile},
	}
	var out []plant.Record
	for i := 0; i < n; i++ {
		out = append(out, base...)
	}
	return out
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.NEstimators = 10
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 150, cfg.NEstimators)
	assert.Equal(t, 0.2, cfg.TestSize)
	assert.Equal(t, int64(42), cfg.RandomState)
	assert.Equal(t, ensemble.ClassWeightBalanced, cfg.ClassWeight)
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "97.50%", FormatPercent(0.975))
	assert.Equal(t, "100.00%", FormatPercent(1))
	assert.Equal(t, "0.00%", FormatPercent(0))
}

func TestReportLines(t *testing.T) {
	r := &Report{TrainScore: 0.975, TestScore: 0.5}
	assert.Equal(t, []string{
		"✅ Modèle entraîné avec succès",
		"Score entraînement: 97.50%",
		"Score test: 50.00%",
	}, r.Lines())
}

func TestTrainerTrain(t *testing.T) {
	records := catalog(5)
	pre := plant.NewPreprocessor()
	require.NoError(t, pre.Fit(plant.Frame(records)))

	rf, report, err := NewTrainer(smallConfig(), log.Nop()).Train(records, pre)
	require.NoError(t, err)

	assert.Equal(t, 20, report.NSamples)
	assert.Equal(t, 16, report.NTrain)
	assert.Equal(t, 4, report.NTest)
	assert.Len(t, report.FeatureNames, 7)
	assert.Len(t, report.FeatureImportances, 7)
	assert.Equal(t, 10, len(rf.Estimators))
	assert.Equal(t, 1.0, report.TrainScore)
	assert.Equal(t, 1.0, report.TestScore)
}

func TestTrainerTrainDeterministic(t *testing.T) {
	records := catalog(5)
	pre := plant.NewPreprocessor()
	require.NoError(t, pre.Fit(plant.Frame(records)))

	X, err := pre.Transform(plant.Frame(records[:4]))
	require.NoError(t, err)

	var preds [][]string
	for i := 0; i < 2; i++ {
		rf, _, err := NewTrainer(smallConfig(), log.Nop()).Train(records, pre)
		require.NoError(t, err)
		p, err := rf.Predict(X)
		require.NoError(t, err)
		preds = append(preds, p)
	}
	assert.Equal(t, preds[0], preds[1])
}

func TestTrainerTrainEmpty(t *testing.T) {
	_, _, err := NewTrainer(smallConfig(), log.Nop()).Train(nil, plant.NewPreprocessor())
	assert.ErrorIs(t, err, prErrors.ErrEmptyData)
}

func TestTrainerTrainUnfittedPreprocessor(t *testing.T) {
	_, _, err := NewTrainer(smallConfig(), log.Nop()).Train(catalog(1), plant.NewPreprocessor())
	assert.ErrorIs(t, err, prErrors.ErrNotFitted)
}

func TestTrainerRun(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Cleaned:         filepath.Join(dir, "data", "plantes_nettoyees.csv"),
		Preprocessor:    filepath.Join(dir, "model", "preprocesseur.gob"),
		Model:           filepath.Join(dir, "model", "modele_plantes.gob"),
		ImportanceChart: filepath.Join(dir, "reports", "importances.png"),
	}

	records := catalog(5)
	require.NoError(t, plant.WriteRecords(paths.Cleaned, records))
	pre := plant.NewPreprocessor()
	require.NoError(t, pre.Fit(plant.Frame(records)))
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.Preprocessor), 0o755))
	require.NoError(t, model.SaveModel(pre, paths.Preprocessor))

	report, err := NewTrainer(smallConfig(), log.Nop()).Run(paths)
	require.NoError(t, err)
	assert.Equal(t, 20, report.NSamples)

	var rf ensemble.RandomForestClassifier
	require.NoError(t, model.LoadModel(&rf, paths.Model))
	assert.Equal(t, []string{"Aloe Vera", "Fougère", "Monstera", "Pothos"}, rf.Classes)

	png, err := os.ReadFile(paths.ImportanceChart)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestTrainerRunMissingPreprocessor(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Cleaned:      filepath.Join(dir, "plantes.csv"),
		Preprocessor: filepath.Join(dir, "missing.gob"),
		Model:        filepath.Join(dir, "model.gob"),
	}
	require.NoError(t, plant.WriteRecords(paths.Cleaned, catalog(1)))

	_, err := NewTrainer(smallConfig(), log.Nop()).Run(paths)
	require.Error(t, err)
	_, statErr := os.Stat(paths.Model)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteImportanceChartErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	assert.ErrorIs(t, WriteImportanceChart(path, []string{"a"}, nil), prErrors.ErrDimensionMismatch)
	assert.ErrorIs(t, WriteImportanceChart(path, nil, nil), prErrors.ErrEmptyData)
}
