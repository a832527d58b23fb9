package plant

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ezoic/plantreco/core/model"
	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/preprocessing"
)

// SuccessMessage is printed once the cleaned dataset is written.
const SuccessMessage = "✅ Nettoyage terminé avec succès"

// Raw catalog columns.
const (
	RawName       = "common_name"
	RawWatering   = "watering_encoded"
	RawCareLevel  = "care_level_encoded"
	SunlightInfix = "sunlight_"
)

// Suffixes are compared after lowercasing and removing '_', '-' and spaces.
var lightBySuffix = map[string]string{
	"fullsun":   PleinSoleil,
	"partshade": MiOmbre,
	"fullshade": Ombre,
}

var difficultyByCode = map[int]string{
	0: Facile,
	1: Moyen,
	2: Difficile,
}

// MapDifficulty converts a care level code to its category. Codes other than
// 0, 1 and 2 (including empty or non-numeric cells) give "".
func MapDifficulty(code string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(code), 64)
	if err != nil || v != math.Trunc(v) || v < 0 || v > 2 {
		return ""
	}
	return difficultyByCode[int(v)]
}

// MapLightSuffix maps the part of a sunlight column name after "sunlight_".
func MapLightSuffix(suffix string) (string, bool) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(suffix))
	light, ok := lightBySuffix[key]
	return light, ok
}

// IsTrue reports whether an indicator cell is set.
func IsTrue(cell string) bool {
	cell = strings.TrimSpace(cell)
	if strings.EqualFold(cell, "true") {
		return true
	}
	v, err := strconv.ParseFloat(cell, 64)
	return err == nil && v == 1
}

type lightColumn struct {
	index int
	light string
}

// lightColumns returns the recognised sunlight indicators in source column order.
func lightColumns(raw *preprocessing.Frame) []lightColumn {
	var cols []lightColumn
	for i, name := range raw.Columns {
		_, suffix, ok := strings.Cut(name, SunlightInfix)
		if !ok {
			continue
		}
		if light, ok := MapLightSuffix(suffix); ok {
			cols = append(cols, lightColumn{index: i, light: light})
		}
	}
	return cols
}

// Cleaner turns the raw catalog into canonical records.
type Cleaner struct {
	logger log.Logger
}

// NewCleaner creates a Cleaner. A nil logger uses the "plant" component logger.
func NewCleaner(logger log.Logger) *Cleaner {
	if logger == nil {
		logger = log.GetLoggerWithName("plant")
	}
	return &Cleaner{logger: logger}
}

// Clean maps each raw row to a Record.
//
// The light category is the first true sunlight indicator in column order
// whose suffix is known; a row without one is mi-ombre.
func (c *Cleaner) Clean(raw *preprocessing.Frame) ([]Record, error) {
	required := []string{RawName, RawWatering, RawCareLevel}
	idx := make([]int, len(required))
	for k, name := range required {
		idx[k] = raw.Index(name)
		if idx[k] < 0 {
			return nil, prErrors.NewValueError("Cleaner.Clean", fmt.Sprintf("raw catalog has no column %q", name))
		}
	}
	lights := lightColumns(raw)
	if len(lights) == 0 {
		c.logger.Warn("No recognised sunlight column, every plant defaults to mi-ombre")
	}

	records := make([]Record, raw.Len())
	for i, row := range raw.Rows {
		lumiere := MiOmbre
		for _, lc := range lights {
			if IsTrue(row[lc.index]) {
				lumiere = lc.light
				break
			}
		}
		records[i] = Record{
			Nom:        NormalizeText(row[idx[0]]),
			Humidite:   strings.TrimSpace(row[idx[1]]),
			Lumiere:    lumiere,
			Difficulte: MapDifficulty(row[idx[2]]),
		}
	}
	return records, nil
}

// CleanPaths locates the files of a cleaning run.
type CleanPaths struct {
	RawCatalog   string
	Cleaned      string
	Preprocessor string
}

// CleanResult summarises a cleaning run.
type CleanResult struct {
	Records      []Record
	Preprocessor *preprocessing.ColumnTransformer
}

// Run reads the raw catalog, cleans it, fits and persists the preprocessor
// and writes the cleaned dataset. Any error aborts the run.
func (c *Cleaner) Run(paths CleanPaths) (*CleanResult, error) {
	start := time.Now()
	logger := c.logger.With(log.PhaseKey, log.PhaseCleaning)

	raw, err := ReadFrame(paths.RawCatalog)
	if err != nil {
		return nil, err
	}
	logger.Info("Raw catalog loaded", log.PathKey, paths.RawCatalog, log.SamplesKey, raw.Len())

	records, err := c.Clean(raw)
	if err != nil {
		return nil, err
	}

	pre := NewPreprocessor()
	if err := pre.Fit(Frame(records)); err != nil {
		return nil, prErrors.Wrap(err, "fit preprocessor")
	}

	if err := os.MkdirAll(filepath.Dir(paths.Preprocessor), 0o755); err != nil {
		return nil, prErrors.Wrapf(err, "create artifact directory for %s", paths.Preprocessor)
	}
	if err := model.SaveModel(pre, paths.Preprocessor); err != nil {
		return nil, prErrors.Wrap(err, "save preprocessor")
	}
	logger.Info("Preprocessor saved", log.OperationKey, log.OperationSave, log.PathKey, paths.Preprocessor)

	if err := WriteRecords(paths.Cleaned, records); err != nil {
		return nil, err
	}
	logger.Info("Cleaned dataset written",
		log.PathKey, paths.Cleaned,
		log.SamplesKey, len(records),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &CleanResult{Records: records, Preprocessor: pre}, nil
}
