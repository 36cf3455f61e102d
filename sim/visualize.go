package sim

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// visualizeGridPoints is the resolution of the shape-function curve.
const visualizeGridPoints = 100

// Visualize renders the fitted model diagnostics to a PNG file: the shape
// function over its fitted domain, the density of the training projection,
// and the projection coefficients.
func (b *baseSim) Visualize(path string) error {
	if err := b.state.RequireFitted(b.variant.modelName(), "Visualize"); err != nil {
		return err
	}

	shapePlot, err := b.shapeFunctionPlot()
	if err != nil {
		return err
	}
	densityPlot, err := b.projectionDensityPlot()
	if err != nil {
		return err
	}
	coefPlot, err := b.coefficientPlot()
	if err != nil {
		return err
	}

	plots := [][]*plot.Plot{{shapePlot, densityPlot, coefPlot}}

	img := vgimg.New(18*vg.Inch, 5*vg.Inch)
	dc := draw.New(img)
	canvases := plot.Align(plots, draw.Tiles{Rows: 1, Cols: 3, PadX: vg.Points(10)}, dc)
	for col, p := range plots[0] {
		p.Draw(canvases[0][col])
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return err
	}
	return nil
}

func (b *baseSim) shapeFunctionPlot() (*plot.Plot, error) {
	xmin, xmax := b.ShapeFit_.Domain()

	grid := make(plotter.XYs, visualizeGridPoints)
	span := xmax - xmin
	xs := make([]float64, visualizeGridPoints)
	for i := range xs {
		xs[i] = xmin + span*float64(i)/float64(visualizeGridPoints-1)
	}
	ys := b.ShapeFit_.DecisionFunction(mat.NewVecDense(len(xs), xs))
	for i := range grid {
		grid[i].X = xs[i]
		grid[i].Y = ys.AtVec(i)
	}

	p := plot.New()
	p.Title.Text = "Shape Function"
	p.X.Label.Text = "projection"
	line, err := plotter.NewLine(grid)
	if err != nil {
		return nil, err
	}
	p.Add(line)
	return p, nil
}

func (b *baseSim) projectionDensityPlot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Projection Density"

	edges, density := b.ShapeFit_.Histogram()
	if len(density) == 0 {
		// Degenerate projection: nothing to draw.
		return p, nil
	}

	bars, err := plotter.NewBarChart(plotter.Values(density), vg.Points(20))
	if err != nil {
		return nil, err
	}
	p.Add(bars)

	labels := make([]string, len(density))
	for i := range labels {
		center := (edges[i] + edges[i+1]) / 2
		labels[i] = fmt.Sprintf("%.2f", center)
	}
	p.NominalX(labels...)
	return p, nil
}

func (b *baseSim) coefficientPlot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Projection Coefficients"

	d := b.Beta_.Len()
	values := make(plotter.Values, d)
	labels := make([]string, d)
	for j := 0; j < d; j++ {
		values[j] = b.Beta_.AtVec(j)
		labels[j] = fmt.Sprintf("X%d", j+1)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(15))
	if err != nil {
		return nil, err
	}
	p.Add(bars)
	p.NominalX(labels...)
	return p, nil
}
