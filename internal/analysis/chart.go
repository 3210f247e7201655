package analysis

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/wildstyl3r/lanexopt/internal/config"
	"github.com/wildstyl3r/lanexopt/internal/surface"
)

func newChart(title, xName, xType, yName, yType string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			BackgroundColor: "#ffffff",
			Width:           "100%",
			Height:          "600px",
			PageTitle:       "Scintillator imaging",
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithLegendOpts(opts.Legend{
			Orient:       "horizontal",
			Show:         opts.Bool(true),
			SelectedMode: "multiple",
			Type:         "scroll",
			Top:          "30px",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
			AxisPointer: &opts.AxisPointer{
				Type: "cross",
				Snap: opts.Bool(true),
			},
		}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: opts.Bool(true),
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
					Show:  opts.Bool(true),
					Type:  "png",
					Title: "Save as image",
				},
			},
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: xName,
			Type: xType,
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: yName,
			Type: yType,
			Show: opts.Bool(true),
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}),
	)
	return line
}

func pairs(x, y []float64, xScale func(float64) float64) []opts.LineData {
	data := make([]opts.LineData, len(x))
	for i := range x {
		data[i] = opts.LineData{Value: []float64{xScale(x[i]), y[i]}}
	}
	return data
}

func constant(x []float64, v float64, xScale func(float64) float64) []opts.LineData {
	if len(x) == 0 {
		return nil
	}
	return []opts.LineData{
		{Value: []float64{xScale(x[0]), v}},
		{Value: []float64{xScale(x[len(x)-1]), v}},
	}
}

var noSymbols = charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})

// FillChart plots the fill fraction of every setup against beam density
// together with the saturation and noise levels of their cameras.
func FillChart(analyses []*Analysis, units []string) *charts.Line {
	density := func(v float64) float64 { return config.SI(v, densityUnit, units, false) }
	line := newChart("Fraction of well depth in a single pixel",
		withUnit("beam density", densityUnit, units), "log", "fill fraction", "log")

	noiseLevels := map[float64]struct{}{}
	for _, a := range analyses {
		line.AddSeries(a.Name, pairs(a.Densities, a.Fills, density), noSymbols)
		if nf := a.Chain.Camera().NoiseFraction(); nf > 0 {
			if _, drawn := noiseLevels[nf]; !drawn {
				noiseLevels[nf] = struct{}{}
				line.AddSeries(fmt.Sprintf("noise level %g", nf), constant(a.Densities, nf, density), noSymbols)
			}
		}
	}
	if len(analyses) > 0 {
		line.AddSeries("saturation level", constant(analyses[0].Densities, 1, density), noSymbols)
	}
	return line
}

// DistanceChart plots the object distance needed by each focal length.
func DistanceChart(analyses []*Analysis, units []string) (*charts.Line, error) {
	length := func(v float64) float64 { return config.SI(v, lengthUnit, units, false) }
	line := newChart("Object distance against focal length",
		withUnit("focal length", lengthUnit, units), "value", withUnit("object distance", lengthUnit, units), "value")
	for _, a := range analyses {
		focals := a.FocalLengths()
		distances, err := a.ObjectDistanceCurve(focals)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Name, err)
		}
		scaled := make([]float64, len(distances))
		for i, d := range distances {
			scaled[i] = length(d)
		}
		line.AddSeries(fmt.Sprintf("%s (m = %.3g)", a.Name, a.Chain.Optics().Magnification), pairs(focals, scaled, length), noSymbols)
	}
	return line, nil
}

// SurfaceChart plots the normalized performance of each f-number across the
// fields of view.
func SurfaceChart(s *surface.Surface, units []string) *charts.Line {
	length := func(v float64) float64 { return config.SI(v, lengthUnit, units, false) }
	line := newChart("Relative light collection per pixel",
		withUnit("field of view", lengthUnit, units), "value", "relative performance", "value")
	for i, row := range s.Normalized() {
		line.AddSeries(fmt.Sprintf("N = %g", s.FNumbers[i]), pairs(s.FieldsOfView, row, length))
	}
	return line
}

// RenderCharts writes a page with every chart that has data. s may be nil.
func RenderCharts(w io.Writer, analyses []*Analysis, s *surface.Surface, units []string) error {
	page := components.NewPage().SetPageTitle("Scintillator imaging")
	if len(analyses) > 0 {
		distance, err := DistanceChart(analyses, units)
		if err != nil {
			return err
		}
		page.AddCharts(FillChart(analyses, units), distance)
	}
	if s != nil {
		page.AddCharts(SurfaceChart(s, units))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}
	return nil
}
