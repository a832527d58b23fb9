package recommend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/plant"
	"github.com/ezoic/plantreco/preprocessing"
	"github.com/ezoic/plantreco/sklearn/ensemble"
	"github.com/ezoic/plantreco/training"
)

const rawHeader = "common_name,watering_encoded,care_level_encoded,sunlight_full_sun,sunlight_part_shade,sunlight_full_shade\n"

const rawRows = `Aloe Vera,1,0,1,0,0
Monstera,3,1,0,1,0
Fougère,5,2,0,0,1
Pothos,3,0,0,1,0
Cactus,1,0,1,0,0
Calathea,4,2,0,1,0
Lierre,2,1,0,0,1
Sansevieria,1,0,0,1,0
`

// buildArtifacts runs the offline pipeline on a small catalog and returns the paths.
func buildArtifacts(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	raw := filepath.Join(dir, "all_plant_details.csv")
	paths := Paths{
		Cleaned:      filepath.Join(dir, "data", "plantes_nettoyees.csv"),
		Preprocessor: filepath.Join(dir, "model", "preprocesseur.gob"),
		Model:        filepath.Join(dir, "model", "modele_plantes.gob"),
	}

	// every plant five times so the split keeps all of them in training
	content := rawHeader + strings.Repeat(rawRows, 5)
	require.NoError(t, os.WriteFile(raw, []byte(content), 0o644))

	_, err := plant.NewCleaner(log.Nop()).Run(plant.CleanPaths{
		RawCatalog:   raw,
		Cleaned:      paths.Cleaned,
		Preprocessor: paths.Preprocessor,
	})
	require.NoError(t, err)

	cfg := training.DefaultConfig()
	cfg.NEstimators = 20
	_, err = training.NewTrainer(cfg, log.Nop()).Run(training.Paths{
		Cleaned:      paths.Cleaned,
		Preprocessor: paths.Preprocessor,
		Model:        paths.Model,
	})
	require.NoError(t, err)
	return paths
}

func TestLoadAndPredictEndToEnd(t *testing.T) {
	ctx, err := Load(buildArtifacts(t))
	require.NoError(t, err)
	assert.Equal(t, 40, ctx.CatalogSize())

	name, err := ctx.Predict(Query{Humidite: 3, Lumiere: plant.MiOmbre, Difficulte: plant.Facile})
	require.NoError(t, err)
	_, ok := ctx.Lookup(name)
	assert.True(t, ok, "prediction %q must be a catalog plant", name)
	assert.Equal(t, "Pothos", name)

	name, err = ctx.Predict(Query{Humidite: 5, Lumiere: plant.Ombre, Difficulte: plant.Difficile})
	require.NoError(t, err)
	assert.Equal(t, "Fougère", name)
}

func TestRecommend(t *testing.T) {
	ctx, err := Load(buildArtifacts(t))
	require.NoError(t, err)

	rec, err := ctx.Recommend(Query{Humidite: 1, Lumiere: plant.PleinSoleil, Difficulte: plant.Facile})
	require.NoError(t, err)
	assert.True(t, rec.InCatalog)
	assert.Contains(t, []string{"Aloe Vera", "Cactus"}, rec.Plante)
	assert.Equal(t, plant.PleinSoleil, rec.Lumiere)
	assert.Equal(t, "1", rec.Humidite)
	assert.Equal(t, plant.Facile, rec.Difficulte)
}

func TestPredictUnknownCategoriesDoNotFail(t *testing.T) {
	ctx, err := Load(buildArtifacts(t))
	require.NoError(t, err)

	name, err := ctx.Predict(Query{Humidite: 2, Lumiere: "lumière artificielle", Difficulte: "expert"})
	require.NoError(t, err)
	assert.Contains(t, ctx.Classes(), name)
}

func TestLoadMissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(Paths{
		Cleaned:      filepath.Join(dir, "plantes.csv"),
		Preprocessor: filepath.Join(dir, "pre.gob"),
		Model:        filepath.Join(dir, "model.gob"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load preprocessor")
}

func TestNewContextRejectsUnfitted(t *testing.T) {
	_, err := NewContext(plant.NewPreprocessor(), ensemble.NewRandomForestClassifier(), nil)
	assert.ErrorIs(t, err, prErrors.ErrNotFitted)

	pre := plant.NewPreprocessor()
	require.NoError(t, pre.Fit(plant.Frame([]plant.Record{{Nom: "a", Humidite: "1", Lumiere: plant.Ombre}})))
	_, err = NewContext(pre, ensemble.NewRandomForestClassifier(), nil)
	assert.ErrorIs(t, err, prErrors.ErrNotFitted)
}

func TestNewContextDimensionMismatch(t *testing.T) {
	pre := plant.NewPreprocessor()
	require.NoError(t, pre.Fit(plant.Frame([]plant.Record{{Nom: "a", Humidite: "1", Lumiere: plant.Ombre}})))

	rf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(2), ensemble.WithLogger(log.Nop()), ensemble.WithRandomState(1))
	X, err := preprocessing.NewFrame([]string{"x"}, [][]string{{"1"}, {"2"}})
	require.NoError(t, err)
	m, err := X.Numeric([]string{"x"})
	require.NoError(t, err)
	require.NoError(t, rf.Fit(m, []string{"a", "b"}))

	_, err = NewContext(pre, rf, nil)
	assert.ErrorIs(t, err, prErrors.ErrDimensionMismatch)
}
