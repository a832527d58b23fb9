package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/plantreco/core/model"
	prErrors "github.com/ezoic/plantreco/pkg/errors"
)

// HandleUnknown selects what Transform does with a category outside the vocabulary.
type HandleUnknown string

const (
	// HandleUnknownError rejects unknown categories.
	HandleUnknownError HandleUnknown = "error"
	// HandleUnknownIgnore encodes unknown categories as an all-zero block.
	HandleUnknownIgnore HandleUnknown = "ignore"
)

// OneHotEncoder はscikit-learn互換のOne-Hotエンコーダー
// カテゴリカルな文字列データを0/1のバイナリベクトルに変換する
type OneHotEncoder struct {
	model.BaseEstimator

	// Categories は各特徴量のカテゴリ一覧
	// 固定語彙の場合は指定順、学習の場合はソート済み
	Categories [][]string

	// FixedCategories はFit前に語彙が指定されたかどうか
	FixedCategories bool

	// HandleUnknown は未知カテゴリの扱い
	HandleUnknown HandleUnknown

	// NFeatures は入力特徴量数
	NFeatures int

	// NOutputs は出力特徴量数（全カテゴリの合計数）
	NOutputs int
}

// NewOneHotEncoder creates an encoder that learns a sorted vocabulary per
// feature during Fit and ignores unknown categories at Transform time.
//
// Example:
//
//	encoder := preprocessing.NewOneHotEncoder()
//	err := encoder.Fit(data)
//	encoded, err := encoder.Transform(data)
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{
		BaseEstimator: model.BaseEstimator{ModelType: "OneHotEncoder", Version: "1"},
		HandleUnknown: HandleUnknownIgnore,
	}
}

// NewOneHotEncoderWithCategories creates an encoder with an explicit vocabulary,
// one slice per input feature. The output columns follow the given order and
// Fit only checks that the data has the expected number of features.
//
// Example:
//
//	encoder := preprocessing.NewOneHotEncoderWithCategories([][]string{
//		{"plein soleil", "mi-ombre", "ombre"},
//		{"facile", "moyen", "difficile"},
//	}, preprocessing.HandleUnknownIgnore)
func NewOneHotEncoderWithCategories(categories [][]string, handleUnknown HandleUnknown) *OneHotEncoder {
	cats := make([][]string, len(categories))
	for i, c := range categories {
		cats[i] = append([]string(nil), c...)
	}
	return &OneHotEncoder{
		BaseEstimator:   model.BaseEstimator{ModelType: "OneHotEncoder", Version: "1"},
		Categories:      cats,
		FixedCategories: true,
		HandleUnknown:   handleUnknown,
	}
}

// Fit は訓練データからカテゴリ情報を学習する
//
// パラメータ:
//   - data: 訓練データ (n_samples × n_features の文字列スライス)
//
// 戻り値:
//   - error: エラーが発生した場合
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer prErrors.Recover(&err, "OneHotEncoder.Fit")
	if len(data) == 0 {
		return prErrors.NewModelError("OneHotEncoder.Fit", "empty data", prErrors.ErrEmptyData)
	}

	if len(data[0]) == 0 {
		return prErrors.NewModelError("OneHotEncoder.Fit", "empty features", prErrors.ErrEmptyData)
	}

	nFeatures := len(data[0])

	// 特徴量数の一貫性チェック
	for i, row := range data {
		if len(row) != nFeatures {
			return prErrors.NewDimensionError("OneHotEncoder.Fit", nFeatures, len(row), i)
		}
	}

	if e.FixedCategories {
		if len(e.Categories) != nFeatures {
			return prErrors.NewDimensionError("OneHotEncoder.Fit", len(e.Categories), nFeatures, 1)
		}
		if e.HandleUnknown == HandleUnknownError {
			for _, row := range data {
				if err := e.checkKnown(row); err != nil {
					return err
				}
			}
		}
	} else {
		e.Categories = make([][]string, nFeatures)
		for j := 0; j < nFeatures; j++ {
			categorySet := make(map[string]bool)
			for _, row := range data {
				categorySet[row[j]] = true
			}

			categories := make([]string, 0, len(categorySet))
			for category := range categorySet {
				categories = append(categories, category)
			}
			sort.Strings(categories)
			e.Categories[j] = categories
		}
	}

	e.NFeatures = nFeatures
	e.NOutputs = 0
	for _, categories := range e.Categories {
		e.NOutputs += len(categories)
	}

	e.SetFitted()
	return nil
}

// Transform は学習済みのカテゴリ情報を使ってデータをone-hot encodingする
//
// With HandleUnknownIgnore a category outside the vocabulary leaves its whole
// block at zero; with HandleUnknownError it is reported as a ValueError.
func (e *OneHotEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer prErrors.Recover(&err, "OneHotEncoder.Transform")
	if !e.IsFitted() {
		return nil, prErrors.NewNotFittedError("OneHotEncoder", "Transform")
	}

	if len(data) == 0 {
		return &mat.Dense{}, nil
	}

	nSamples := len(data)
	result := mat.NewDense(nSamples, e.NOutputs, nil)

	for i, row := range data {
		if len(row) != e.NFeatures {
			return nil, prErrors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(row), 1)
		}
		if e.HandleUnknown == HandleUnknownError {
			if err := e.checkKnown(row); err != nil {
				return nil, err
			}
		}

		outputIdx := 0
		for j, category := range row {
			if idx := indexOf(e.Categories[j], category); idx >= 0 {
				result.Set(i, outputIdx+idx, 1.0)
			}
			// 次の特徴量の出力開始位置へ移動
			outputIdx += len(e.Categories[j])
		}
	}

	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (e *OneHotEncoder) FitTransform(data [][]string) (_ mat.Matrix, err error) {
	defer prErrors.Recover(&err, "OneHotEncoder.FitTransform")
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// GetFeatureNamesOut は変換後の特徴量の名前を返す
//
// 例:
//   - 入力特徴量名が["lumiere", "difficulte"]の場合
//   - 出力: ["lumiere_plein soleil", ..., "difficulte_difficile"]
func (e *OneHotEncoder) GetFeatureNamesOut(inputFeatures []string) []string {
	if !e.IsFitted() {
		return nil
	}

	var outputFeatures []string
	for i, categories := range e.Categories {
		inputFeatureName := fmt.Sprintf("x%d", i)
		if i < len(inputFeatures) {
			inputFeatureName = inputFeatures[i]
		}
		for _, category := range categories {
			outputFeatures = append(outputFeatures, fmt.Sprintf("%s_%s", inputFeatureName, category))
		}
	}

	return outputFeatures
}

func (e *OneHotEncoder) checkKnown(row []string) error {
	for j, category := range row {
		if indexOf(e.Categories[j], category) < 0 {
			return prErrors.NewValueError("OneHotEncoder",
				fmt.Sprintf("found unknown category %q in feature %d", category, j))
		}
	}
	return nil
}

// Vocabularies are a handful of entries, a linear scan keeps the artifact map-free.
func indexOf(categories []string, category string) int {
	for i, c := range categories {
		if c == category {
			return i
		}
	}
	return -1
}
