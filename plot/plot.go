// Package plot renders datasets, forecasts, anomalies, and correlograms to
// image files with gonum/plot. The output format follows the file extension
// (.png, .svg, .pdf).
package plot

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/outliers"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
	"github.com/YuminosukeSato/tsgo/stats"
)

var (
	historyColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	forecastColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	bandColor     = color.RGBA{R: 255, G: 127, B: 14, A: 60}
	anomalyColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}

	defaultWidth  = 25 * vg.Centimeter
	defaultHeight = 10 * vg.Centimeter
)

// timeXYs converts a column to plot points, skipping NaN.
func timeXYs(ix dataset.TimeIndex, values []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(values))
	for t, v := range values {
		if math.IsNaN(v) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(ix.At(t).Unix()), Y: v})
	}
	return xys
}

func newTimePlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Y.Label.Text = "target"
	return p
}

// Series renders the target history of one segment.
func Series(ds *dataset.TSDataset, segment, path string) error {
	target, err := ds.Target(segment)
	if err != nil {
		return err
	}

	p := newTimePlot(segment)
	line, err := plotter.NewLine(timeXYs(ds.Index(), target))
	if err != nil {
		return errors.Wrap(err, "plot.Series")
	}
	line.Color = historyColor
	p.Add(line)
	p.Legend.Add("history", line)

	return save(p, path, "plot.Series")
}

// Forecast renders the history and the forecast of one segment on a shared
// axis. When the forecast carries interval bounds, the band is shaded.
func Forecast(history, forecast *dataset.TSDataset, segment, path string) error {
	target, err := history.Target(segment)
	if err != nil {
		return err
	}
	point, err := forecast.Target(segment)
	if err != nil {
		return err
	}

	p := newTimePlot(segment)

	historyLine, err := plotter.NewLine(timeXYs(history.Index(), target))
	if err != nil {
		return errors.Wrap(err, "plot.Forecast")
	}
	historyLine.Color = historyColor
	p.Add(historyLine)
	p.Legend.Add("history", historyLine)

	if band, err := intervalBand(forecast, segment); err == nil && band != nil {
		p.Add(band)
	}

	forecastLine, err := plotter.NewLine(timeXYs(forecast.Index(), point))
	if err != nil {
		return errors.Wrap(err, "plot.Forecast")
	}
	forecastLine.Color = forecastColor
	p.Add(forecastLine)
	p.Legend.Add("forecast", forecastLine)

	return save(p, path, "plot.Forecast")
}

// intervalBand builds the shaded polygon between the bound columns, or nil
// when the forecast has no bounds.
func intervalBand(forecast *dataset.TSDataset, segment string) (*plotter.Polygon, error) {
	lower, err := forecast.Column(segment, dataset.LowerColumn)
	if err != nil {
		return nil, nil
	}
	upper, err := forecast.Column(segment, dataset.UpperColumn)
	if err != nil {
		return nil, nil
	}

	ix := forecast.Index()
	ring := make(plotter.XYs, 0, 2*ix.N)
	for t := 0; t < ix.N; t++ {
		if math.IsNaN(upper[t]) {
			continue
		}
		ring = append(ring, plotter.XY{X: float64(ix.At(t).Unix()), Y: upper[t]})
	}
	for t := ix.N - 1; t >= 0; t-- {
		if math.IsNaN(lower[t]) {
			continue
		}
		ring = append(ring, plotter.XY{X: float64(ix.At(t).Unix()), Y: lower[t]})
	}
	if len(ring) < 3 {
		return nil, nil
	}

	band, err := plotter.NewPolygon(ring)
	if err != nil {
		return nil, err
	}
	band.Color = bandColor
	band.LineStyle.Width = 0
	return band, nil
}

// Anomalies renders the target of one segment with its anomalous points
// marked.
func Anomalies(ds *dataset.TSDataset, anomalies outliers.Anomalies, segment, path string) error {
	target, err := ds.Target(segment)
	if err != nil {
		return err
	}

	p := newTimePlot(segment)
	line, err := plotter.NewLine(timeXYs(ds.Index(), target))
	if err != nil {
		return errors.Wrap(err, "plot.Anomalies")
	}
	line.Color = historyColor
	p.Add(line)

	ix := ds.Index()
	points := make(plotter.XYs, 0, len(anomalies[segment]))
	for _, ts := range anomalies[segment] {
		pos, ok := ix.Position(ts)
		if !ok || math.IsNaN(target[pos]) {
			continue
		}
		points = append(points, plotter.XY{X: float64(ts.Unix()), Y: target[pos]})
	}
	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return errors.Wrap(err, "plot.Anomalies")
	}
	scatter.GlyphStyle.Color = anomalyColor
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)
	p.Legend.Add("anomaly", scatter)

	return save(p, path, "plot.Anomalies")
}

// Correlogram renders the autocorrelation of a series up to maxLag with the
// white-noise confidence bounds.
func Correlogram(values []float64, maxLag int, path string) error {
	result, err := stats.ACFWithConfidence(values, maxLag)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "autocorrelation"
	p.X.Label.Text = "lag"
	p.Y.Label.Text = "acf"

	bars, err := plotter.NewBarChart(plotter.Values(result.Values), vg.Points(4))
	if err != nil {
		return errors.Wrap(err, "plot.Correlogram")
	}
	bars.Color = historyColor
	p.Add(bars)

	for _, bound := range []float64{result.ConfBounds, -result.ConfBounds} {
		line, err := plotter.NewLine(plotter.XYs{
			{X: 0, Y: bound},
			{X: float64(len(result.Values) - 1), Y: bound},
		})
		if err != nil {
			return errors.Wrap(err, "plot.Correlogram")
		}
		line.Color = anomalyColor
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(line)
	}

	return save(p, path, "plot.Correlogram")
}

func save(p *plot.Plot, path, op string) error {
	if err := p.Save(defaultWidth, defaultHeight, path); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}
