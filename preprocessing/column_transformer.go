package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/plantreco/core/model"
	prErrors "github.com/ezoic/plantreco/pkg/errors"
)

// ColumnTransformer scales numeric columns and one-hot encodes categorical
// columns of a Frame, concatenating the blocks as [numeric | categorical].
type ColumnTransformer struct {
	model.BaseEstimator

	NumericColumns     []string
	CategoricalColumns []string

	Scaler  *StandardScaler
	Encoder *OneHotEncoder

	// NOutputs は出力特徴量数
	NOutputs int
}

// NewColumnTransformer creates a transformer applying a default StandardScaler
// to numeric and encoder to categorical.
func NewColumnTransformer(numeric, categorical []string, encoder *OneHotEncoder) *ColumnTransformer {
	if encoder == nil {
		encoder = NewOneHotEncoder()
	}
	return &ColumnTransformer{
		BaseEstimator:      model.BaseEstimator{ModelType: "ColumnTransformer", Version: "1"},
		NumericColumns:     append([]string(nil), numeric...),
		CategoricalColumns: append([]string(nil), categorical...),
		Scaler:             NewStandardScalerDefault(),
		Encoder:            encoder,
	}
}

// Fit fits the scaler and the encoder on their columns of f.
func (ct *ColumnTransformer) Fit(f *Frame) (err error) {
	defer prErrors.Recover(&err, "ColumnTransformer.Fit")
	if f == nil || f.Len() == 0 {
		return prErrors.NewModelError("ColumnTransformer.Fit", "empty data", prErrors.ErrEmptyData)
	}

	num, err := f.Numeric(ct.NumericColumns)
	if err != nil {
		return prErrors.Wrap(err, "ColumnTransformer.Fit")
	}
	if err := ct.Scaler.Fit(num); err != nil {
		return prErrors.Wrap(err, "ColumnTransformer.Fit: num")
	}

	cat, err := f.Select(ct.CategoricalColumns)
	if err != nil {
		return prErrors.Wrap(err, "ColumnTransformer.Fit")
	}
	if err := ct.Encoder.Fit(cat); err != nil {
		return prErrors.Wrap(err, "ColumnTransformer.Fit: cat")
	}

	ct.NOutputs = ct.Scaler.NFeatures + ct.Encoder.NOutputs
	ct.SetFitted()
	return nil
}

// Transform returns an n_rows × NOutputs feature matrix.
func (ct *ColumnTransformer) Transform(f *Frame) (_ mat.Matrix, err error) {
	defer prErrors.Recover(&err, "ColumnTransformer.Transform")
	if !ct.IsFitted() {
		return nil, prErrors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	if f == nil || f.Len() == 0 {
		return nil, prErrors.NewModelError("ColumnTransformer.Transform", "empty data", prErrors.ErrEmptyData)
	}

	num, err := f.Numeric(ct.NumericColumns)
	if err != nil {
		return nil, prErrors.Wrap(err, "ColumnTransformer.Transform")
	}
	scaled, err := ct.Scaler.Transform(num)
	if err != nil {
		return nil, prErrors.Wrap(err, "ColumnTransformer.Transform: num")
	}

	cat, err := f.Select(ct.CategoricalColumns)
	if err != nil {
		return nil, prErrors.Wrap(err, "ColumnTransformer.Transform")
	}
	encoded, err := ct.Encoder.Transform(cat)
	if err != nil {
		return nil, prErrors.Wrap(err, "ColumnTransformer.Transform: cat")
	}

	n := f.Len()
	nNum := ct.Scaler.NFeatures
	out := mat.NewDense(n, ct.NOutputs, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < nNum; j++ {
			out.Set(i, j, scaled.At(i, j))
		}
		for j := 0; j < ct.Encoder.NOutputs; j++ {
			out.Set(i, nNum+j, encoded.At(i, j))
		}
	}
	return out, nil
}

// FitTransform fits on f and transforms it.
func (ct *ColumnTransformer) FitTransform(f *Frame) (mat.Matrix, error) {
	if err := ct.Fit(f); err != nil {
		return nil, err
	}
	return ct.Transform(f)
}

// GetFeatureNamesOut returns the output column names, prefixed "num__" or "cat__".
func (ct *ColumnTransformer) GetFeatureNamesOut() []string {
	if !ct.IsFitted() {
		return nil
	}
	names := make([]string, 0, ct.NOutputs)
	for _, c := range ct.NumericColumns {
		names = append(names, "num__"+c)
	}
	for _, c := range ct.Encoder.GetFeatureNamesOut(ct.CategoricalColumns) {
		names = append(names, "cat__"+c)
	}
	return names
}

func (ct *ColumnTransformer) String() string {
	return fmt.Sprintf("ColumnTransformer(num=%v, cat=%v, n_outputs=%d)",
		ct.NumericColumns, ct.CategoricalColumns, ct.NOutputs)
}
