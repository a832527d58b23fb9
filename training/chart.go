package training

import (
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	prErrors "github.com/ezoic/plantreco/pkg/errors"
)

// WriteImportanceChart は特徴量重要度の棒グラフをPNGとして保存する
func WriteImportanceChart(path string, names []string, importances []float64) error {
	if len(names) != len(importances) {
		return prErrors.NewDimensionError("WriteImportanceChart", len(names), len(importances), 0)
	}
	if len(importances) == 0 {
		return prErrors.NewModelError("WriteImportanceChart", "no feature importances", prErrors.ErrEmptyData)
	}

	p := plot.New()
	p.Title.Text = "Importance des variables"
	p.Y.Label.Text = "Importance"

	bars, err := plotter.NewBarChart(plotter.Values(importances), vg.Points(20))
	if err != nil {
		return prErrors.Wrap(err, "create bar chart")
	}
	bars.Color = plotter.DefaultLineStyle.Color
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 0.6

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return prErrors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	// PNGファイルとして保存
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return prErrors.Wrapf(err, "save chart %s", path)
	}
	return nil
}
