package chart

import (
	"fmt"
	"io"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/mrcode/control-tray/internal/models"
)

// emptyDomainMax is the y-axis top when there is nothing to plot
const emptyDomainMax = 15.0

var (
	colorInRange  = drawing.ColorFromHex("4caf50")
	colorOutRange = drawing.ColorFromHex("f44336")
	colorLine     = drawing.ColorFromHex("9e9e9e")
	colorLowRule  = gochart.ColorRed
	colorHighRule = gochart.ColorYellow
	colorSelected = gochart.ColorBlue
)

// RenderOptions controls the chart image
type RenderOptions struct {
	Width    int
	Height   int
	Start    time.Time
	End      time.Time
	Band     Band
	Selected *models.Reading
}

// YDomain returns the y-axis range: from the lower of the target low and the
// lowest value, up to the highest value (15 with no readings).
func YDomain(readings []models.Reading, band Band) (lo, hi float64) {
	lo, hi = band.Low, emptyDomainMax
	if len(readings) == 0 {
		return lo, hi
	}

	hi = readings[0].Value
	for _, r := range readings {
		lo = min(lo, r.Value)
		hi = max(hi, r.Value)
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// Render draws readings between opts.Start and opts.End as a PNG
func Render(w io.Writer, readings []models.Reading, opts RenderOptions) error {
	if !opts.End.After(opts.Start) {
		return fmt.Errorf("empty time range %v..%v", opts.Start, opts.End)
	}
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 360
	}

	lo, hi := YDomain(readings, opts.Band)
	span := []time.Time{opts.Start, opts.End}

	series := []gochart.Series{
		gochart.TimeSeries{
			Name:    "target low",
			Style:   gochart.Style{StrokeColor: colorLowRule, StrokeWidth: 1},
			XValues: span,
			YValues: []float64{opts.Band.Low, opts.Band.Low},
		},
		gochart.TimeSeries{
			Name:    "target high",
			Style:   gochart.Style{StrokeColor: colorHighRule, StrokeWidth: 1},
			XValues: span,
			YValues: []float64{opts.Band.High, opts.Band.High},
		},
	}

	if len(readings) > 0 {
		series = append(series, readingSeries(readings, opts.Band))
	}

	if opts.Selected != nil {
		at := opts.Selected.Time
		series = append(series, gochart.TimeSeries{
			Name: "selected",
			Style: gochart.Style{
				StrokeColor:     colorSelected,
				StrokeWidth:     1,
				StrokeDashArray: []float64{4, 4},
			},
			XValues: []time.Time{at, at},
			YValues: []float64{lo, hi},
		})
	}

	ch := gochart.Chart{
		Width:  opts.Width,
		Height: opts.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 14, Left: 16, Right: 12, Bottom: 10},
		},
		XAxis: gochart.XAxis{
			Range: &gochart.ContinuousRange{
				Min: gochart.TimeToFloat64(opts.Start),
				Max: gochart.TimeToFloat64(opts.End),
			},
			ValueFormatter: gochart.TimeValueFormatterWithFormat(timeFormat(opts.End.Sub(opts.Start))),
		},
		YAxis: gochart.YAxis{
			Name:  "mmol/L",
			Range: &gochart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: series,
	}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}

// readingSeries draws the line with a dot per reading, green inside the
// band and red outside it
func readingSeries(readings []models.Reading, band Band) gochart.TimeSeries {
	xs := make([]time.Time, len(readings))
	ys := make([]float64, len(readings))
	for i, r := range readings {
		xs[i] = r.Time
		ys[i] = r.Value
	}

	return gochart.TimeSeries{
		Name: "glucose",
		Style: gochart.Style{
			StrokeColor: colorLine,
			StrokeWidth: 1,
			DotWidth:    3,
			DotColorProvider: func(_, _ gochart.Range, _ int, _, y float64) drawing.Color {
				if band.InRange(y) {
					return colorInRange
				}
				return colorOutRange
			},
		},
		XValues: xs,
		YValues: ys,
	}
}

func timeFormat(span time.Duration) string {
	if span > 12*time.Hour {
		return "Jan 2 15:04"
	}
	return "15:04"
}
