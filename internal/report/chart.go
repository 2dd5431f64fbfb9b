package report

import (
	"fmt"
	"io"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/JaimeStill/landflux/internal/inventory"
)

var (
	emissionColor = color.RGBA{R: 200, G: 70, B: 50, A: 255}
	removalColor  = color.RGBA{R: 40, G: 130, B: 70, A: 255}
)

// Chart plots inventory flux as one bar per row, emissions and removals in
// separate colours.
func Chart(title string, rows []inventory.Row) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = "t CO2e/yr"

	emissions := make(plotter.Values, len(rows))
	removals := make(plotter.Values, len(rows))
	names := make([]string, len(rows))
	for i, r := range rows {
		emissions[i] = r.Emissions()
		removals[i] = r.Removals()
		names[i] = r.Type
	}

	width := vg.Points(18)
	for _, s := range []struct {
		values plotter.Values
		fill   color.Color
		label  string
	}{
		{emissions, emissionColor, inventory.Emissions},
		{removals, removalColor, inventory.Removals},
	} {
		bars, err := plotter.NewBarChart(s.values, width)
		if err != nil {
			return nil, fmt.Errorf("bar chart: %w", err)
		}
		bars.Color = s.fill
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
		p.Legend.Add(s.label, bars)
	}

	p.Add(plotter.NewGrid())
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 0.6
	p.X.Tick.Label.XAlign = -1
	p.Legend.Top = true
	return p, nil
}

// WriteChart renders p as PNG.
func WriteChart(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(12*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
