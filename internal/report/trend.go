package report

import (
	"bytes"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/holla2040/plantsim/internal/telemetry"
)

// RenderTrendPNG draws the recorded history of one value as a PNG trend.
// The time axis runs negative toward the past, newest sample at zero, the
// same orientation operator trend displays use.
func RenderTrendPNG(rec *telemetry.Recorder, name string, div int) ([]byte, error) {
	values, err := rec.Series(name, div)
	if err != nil {
		return nil, err
	}
	axis, err := rec.TimeAxis(div)
	if err != nil {
		return nil, err
	}

	var xys plotter.XYs
	for i := range values {
		if math.IsNaN(values[i]) {
			break
		}
		xys = append(xys, plotter.XY{X: axis[i], Y: values[i]})
	}
	if len(xys) == 0 {
		return nil, fmt.Errorf("no samples recorded for %s", name)
	}

	p := plot.New()
	p.Title.Text = name
	p.X.Label.Text = "time [s]"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("trend line for %s: %w", name, err)
	}
	p.Add(line)

	var buf bytes.Buffer
	wt, err := p.WriterTo(16*vg.Centimeter, 7*vg.Centimeter, "png")
	if err != nil {
		return nil, fmt.Errorf("render trend for %s: %w", name, err)
	}
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
