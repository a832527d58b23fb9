// Package recommend serves plant predictions from the persisted artifacts.
//
// A Context is built once at process start and never mutated afterwards, so
// it can be shared by concurrent request handlers without locking.
package recommend

import (
	"strconv"

	"github.com/ezoic/plantreco/core/model"
	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/plant"
	"github.com/ezoic/plantreco/preprocessing"
	"github.com/ezoic/plantreco/sklearn/ensemble"
	"github.com/ezoic/plantreco/sklearn/pipeline"
)

// Query describes the growing conditions a user can offer.
type Query struct {
	Humidite   float64
	Lumiere    string
	Difficulte string
}

// Recommendation is a predicted plant with its catalog details.
type Recommendation struct {
	Plante     string `json:"plante"`
	Lumiere    string `json:"lumiere"`
	Humidite   string `json:"humidite"`
	Difficulte string `json:"difficulte"`
	InCatalog  bool   `json:"in_catalog"`
}

// Paths locates the serving artifacts.
type Paths struct {
	Cleaned      string
	Preprocessor string
	Model        string
}

// Context holds the fitted preprocessor, the classifier and the catalog.
type Context struct {
	pipe    *pipeline.Pipeline
	model   *ensemble.RandomForestClassifier
	catalog []plant.Record
	byName  map[string]int
}

// Load reads the artifacts and the cleaned catalog. Any failure is returned
// as is; the serving process is expected to stop on it.
func Load(paths Paths) (*Context, error) {
	logger := log.GetLoggerWithName("recommend").With(log.PhaseKey, log.PhaseInference)

	var pre preprocessing.ColumnTransformer
	if err := model.LoadModel(&pre, paths.Preprocessor); err != nil {
		return nil, prErrors.Wrap(err, "load preprocessor")
	}
	logger.Info("Preprocessor loaded", log.OperationKey, log.OperationLoad, log.PathKey, paths.Preprocessor)

	var rf ensemble.RandomForestClassifier
	if err := model.LoadModel(&rf, paths.Model); err != nil {
		return nil, prErrors.Wrap(err, "load model")
	}
	rf.SetLogger(log.GetLoggerWithName("ensemble").With(log.ModelNameKey, "RandomForestClassifier"))
	logger.Info("Model loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, paths.Model,
		log.ClassesKey, len(rf.Classes),
	)

	catalog, err := plant.ReadRecords(paths.Cleaned)
	if err != nil {
		return nil, prErrors.Wrap(err, "load catalog")
	}
	logger.Info("Catalog loaded", log.PathKey, paths.Cleaned, log.SamplesKey, len(catalog))

	return NewContext(&pre, &rf, catalog)
}

// NewContext assembles a Context from fitted artifacts.
func NewContext(pre *preprocessing.ColumnTransformer, rf *ensemble.RandomForestClassifier, catalog []plant.Record) (*Context, error) {
	if pre == nil || !pre.IsFitted() {
		return nil, prErrors.NewNotFittedError("ColumnTransformer", "NewContext")
	}
	if rf == nil || !rf.State.IsFitted() {
		return nil, prErrors.NewNotFittedError("RandomForestClassifier", "NewContext")
	}
	if pre.NOutputs != rf.NFeatures {
		return nil, prErrors.NewDimensionError("NewContext", rf.NFeatures, pre.NOutputs, 1)
	}

	byName := make(map[string]int, len(catalog))
	for i, r := range catalog {
		// first catalog row wins
		if _, ok := byName[r.Nom]; !ok {
			byName[r.Nom] = i
		}
	}
	return &Context{
		pipe:    pipeline.New(pre, rf, pipeline.WithLogger(log.GetLoggerWithName("recommend"))),
		model:   rf,
		catalog: append([]plant.Record(nil), catalog...),
		byName:  byName,
	}, nil
}

// Predict returns the plant name predicted for q.
func (c *Context) Predict(q Query) (string, error) {
	f, err := preprocessing.NewFrame(
		[]string{plant.ColHumidite, plant.ColLumiere, plant.ColDifficulte},
		[][]string{{
			strconv.FormatFloat(q.Humidite, 'g', -1, 64),
			plant.NormalizeText(q.Lumiere),
			plant.NormalizeText(q.Difficulte),
		}},
	)
	if err != nil {
		return "", err
	}

	labels, err := c.pipe.Predict(f)
	if err != nil {
		return "", prErrors.Wrap(err, "predict")
	}
	return labels[0], nil
}

// Recommend predicts a plant and attaches the first catalog entry with that name.
func (c *Context) Recommend(q Query) (*Recommendation, error) {
	name, err := c.Predict(q)
	if err != nil {
		return nil, err
	}
	rec := &Recommendation{Plante: name}
	if r, ok := c.Lookup(name); ok {
		rec.Lumiere = r.Lumiere
		rec.Humidite = r.Humidite
		rec.Difficulte = r.Difficulte
		rec.InCatalog = true
	}
	return rec, nil
}

// Lookup returns the first catalog record named name.
func (c *Context) Lookup(name string) (plant.Record, bool) {
	i, ok := c.byName[name]
	if !ok {
		return plant.Record{}, false
	}
	return c.catalog[i], true
}

// CatalogSize returns the number of catalog rows.
func (c *Context) CatalogSize() int { return len(c.catalog) }

// Classes returns the plant names the model can predict.
func (c *Context) Classes() []string {
	return append([]string(nil), c.model.Classes...)
}
