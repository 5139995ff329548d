package evaluate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// confusionGrid exposes a Matrix as a heat map grid with gold row 0 drawn at the top.
type confusionGrid struct {
	cm Matrix
}

func (g confusionGrid) Dims() (c, r int) { return len(g.cm), len(g.cm) }
func (g confusionGrid) Z(c, r int) float64 {
	return float64(g.cm[len(g.cm)-1-r][c])
}
func (g confusionGrid) X(c int) float64 { return float64(c) }
func (g confusionGrid) Y(r int) float64 { return float64(r) }

// RenderConfusionPNG draws cm as an annotated heat map. The axes follow labels, which must be in id order.
func RenderConfusionPNG(path string, cm Matrix, labels []string, title string) error {
	k := len(cm)
	if k == 0 {
		return fmt.Errorf("render confusion matrix: empty matrix")
	}
	if len(labels) != k {
		return fmt.Errorf("render confusion matrix: %d labels for %d classes", len(labels), k)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "True"

	grid := confusionGrid{cm: cm}
	hm := plotter.NewHeatMap(grid, palette.Heat(16, 1))
	if hm.Max == hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	xys := make(plotter.XYs, 0, k*k)
	texts := make([]string, 0, k*k)
	for r := 0; r < k; r++ {
		for c := 0; c < k; c++ {
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(k - 1 - r)})
			texts = append(texts, strconv.Itoa(cm[r][c]))
		}
	}
	annotations, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return fmt.Errorf("render confusion matrix: %w", err)
	}
	for i := range annotations.TextStyle {
		annotations.TextStyle[i].XAlign = text.XCenter
		annotations.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(annotations)

	reversed := make([]string, k)
	for i, l := range labels {
		reversed[k-1-i] = l
	}
	p.NominalX(labels...)
	p.NominalY(reversed...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}
	size := vg.Length(k)*vg.Centimeter*2 + 5*vg.Centimeter
	if err := p.Save(size, size, path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}
