// Package plant holds the canonical plant record and the raw catalog cleaner.
package plant

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ezoic/plantreco/preprocessing"
)

// Light categories.
const (
	PleinSoleil = "plein soleil"
	MiOmbre     = "mi-ombre"
	Ombre       = "ombre"
)

// Difficulty categories.
const (
	Facile    = "facile"
	Moyen     = "moyen"
	Difficile = "difficile"
)

// Cleaned dataset columns.
const (
	ColNom        = "nom"
	ColHumidite   = "humidite"
	ColLumiere    = "lumiere"
	ColDifficulte = "difficulte"
)

// Columns is the column order of the cleaned dataset.
var Columns = []string{ColNom, ColHumidite, ColLumiere, ColDifficulte}

// LightCategories and DifficultyCategories are the fixed one-hot vocabularies.
var (
	LightCategories      = []string{PleinSoleil, MiOmbre, Ombre}
	DifficultyCategories = []string{Facile, Moyen, Difficile}
)

// Record is one cleaned catalog entry.
//
// Humidite keeps the raw text of the watering code, Difficulte is empty when
// the care level code was unknown.
type Record struct {
	Nom        string `json:"nom"`
	Humidite   string `json:"humidite"`
	Lumiere    string `json:"lumiere"`
	Difficulte string `json:"difficulte"`
}

func (r Record) row() []string {
	return []string{r.Nom, r.Humidite, r.Lumiere, r.Difficulte}
}

// Frame lays records out in the cleaned dataset column order.
func Frame(records []Record) *preprocessing.Frame {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.row()
	}
	return &preprocessing.Frame{Columns: append([]string(nil), Columns...), Rows: rows}
}

// RecordsFromFrame reads records from a frame with at least the cleaned dataset columns.
func RecordsFromFrame(f *preprocessing.Frame) ([]Record, error) {
	cells, err := f.Select(Columns)
	if err != nil {
		return nil, err
	}
	records := make([]Record, len(cells))
	for i, c := range cells {
		records[i] = Record{Nom: c[0], Humidite: c[1], Lumiere: c[2], Difficulte: c[3]}
	}
	return records, nil
}

// NormalizeText trims a label and puts it in NFC so composed and decomposed
// accents compare equal.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NewPreprocessor builds the unfitted feature transform: humidite is
// standardised, lumiere and difficulte are one-hot encoded over the fixed
// vocabularies with unknown values ignored.
func NewPreprocessor() *preprocessing.ColumnTransformer {
	return preprocessing.NewColumnTransformer(
		[]string{ColHumidite},
		[]string{ColLumiere, ColDifficulte},
		preprocessing.NewOneHotEncoderWithCategories(
			[][]string{LightCategories, DifficultyCategories},
			preprocessing.HandleUnknownIgnore,
		),
	)
}
