// Package scope selects channels out of a simulation history and renders
// them as waveform plots.
package scope

import (
	"fmt"
	"io"

	"gospyce/pkg/analysis"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Channel names one history series.
type Channel interface {
	Key() string
}

// Voltage observes a net, or the difference of two nets when Node2 is set.
type Voltage struct {
	Node  string
	Node2 string
}

func (v Voltage) Key() string { return fmt.Sprintf("V(%s)", v.Node) }

// Current observes a current-sensing device.
type Current struct {
	Device string
}

func (c Current) Key() string { return fmt.Sprintf("I(%s)", c.Device) }

// Resolve returns the time axis and channel values from a history.
// A differential Voltage channel subtracts the second net pointwise.
func Resolve(h *analysis.History, ch Channel) ([]float64, []float64, error) {
	times := h.Times()
	v, ok := ch.(Voltage)
	if !ok || v.Node2 == "" {
		vals, err := h.Series(ch.Key())
		if err != nil {
			return nil, nil, err
		}
		return times, vals, nil
	}

	a, err := h.Series(fmt.Sprintf("V(%s)", v.Node))
	if err != nil {
		return nil, nil, err
	}
	b, err := h.Series(fmt.Sprintf("V(%s)", v.Node2))
	if err != nil {
		return nil, nil, err
	}
	diff := make([]float64, len(a))
	for i := range a {
		diff[i] = a[i] - b[i]
	}
	return times, diff, nil
}

// RenderHTML writes an interactive line chart page with one series per
// channel.
func RenderHTML(w io.Writer, h *analysis.History, title string, channels ...Channel) error {
	if len(channels) == 0 {
		return errors.New("no channels to render")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithLegendOpts(opts.Legend{Type: "scroll"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", SplitNumber: 20}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", XAxisIndex: []int{0}}),
	)

	first := true
	for _, ch := range channels {
		times, vals, err := Resolve(h, ch)
		if err != nil {
			return err
		}
		if first {
			line.SetXAxis(times)
			first = false
		}
		data := make([]opts.LineData, len(vals))
		for i, v := range vals {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(chName(ch), data)
	}

	page := components.NewPage()
	page.AddCharts(line)
	return page.Render(w)
}

// SavePNG writes a static waveform plot.
func SavePNG(path string, h *analysis.History, title string, channels ...Channel) error {
	if len(channels) == 0 {
		return errors.New("no channels to render")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t (s)"

	for _, ch := range channels {
		times, vals, err := Resolve(h, ch)
		if err != nil {
			return err
		}
		xys := make(plotter.XYs, len(times))
		for i := range times {
			xys[i].X = times[i]
			xys[i].Y = vals[i]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return errors.Wrapf(err, "plotting %s", chName(ch))
		}
		p.Add(line)
		p.Legend.Add(chName(ch), line)
	}

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

func chName(ch Channel) string {
	if v, ok := ch.(Voltage); ok && v.Node2 != "" {
		return fmt.Sprintf("V(%s,%s)", v.Node, v.Node2)
	}
	return ch.Key()
}
