package plot

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series picks the result keys drawn by SaveSweep: resistor currents by
// default.
var Series = func(name string) bool { return strings.HasPrefix(name, "I(") }

// SaveSweep draws every selected result against SWEEP1. A nested sweep gets
// one line per SWEEP2 value. The image format follows the file extension.
func SaveSweep(results map[string][]float64, title, filename string) error {
	p, err := NewSweepPlot(results, title)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, filename); err != nil {
		return fmt.Errorf("saving plot: %v", err)
	}
	return nil
}

func NewSweepPlot(results map[string][]float64, title string) (*plot.Plot, error) {
	sweep1, ok := results["SWEEP1"]
	if !ok || len(sweep1) == 0 {
		return nil, fmt.Errorf("results hold no dc sweep")
	}

	names := make([]string, 0)
	for name, values := range results {
		if Series(name) {
			if len(values) != len(sweep1) {
				return nil, fmt.Errorf("%s has %d points, sweep has %d", name, len(values), len(sweep1))
			}
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no series to plot")
	}
	sort.Strings(names)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "SWEEP1 (V)"
	p.Y.Label.Text = "Current (A)"
	p.Add(plotter.NewGrid())

	groups := groupBySweep2(results["SWEEP2"], len(sweep1))

	color := 0
	for _, name := range names {
		values := results[name]
		for _, g := range groups {
			pts := make(plotter.XYs, len(g.index))
			for i, idx := range g.index {
				pts[i].X = sweep1[idx]
				pts[i].Y = values[idx]
			}

			line, err := plotter.NewLine(pts)
			if err != nil {
				return nil, fmt.Errorf("%s: %v", name, err)
			}
			line.Color = plotutil.Color(color)
			line.Dashes = plotutil.Dashes(color / len(plotutil.SoftColors))
			color++

			p.Add(line)
			p.Legend.Add(name+g.label, line)
		}
	}

	return p, nil
}

type sweepGroup struct {
	label string
	index []int
}

func groupBySweep2(sweep2 []float64, n int) []sweepGroup {
	if len(sweep2) != n {
		all := sweepGroup{index: make([]int, n)}
		for i := range all.index {
			all.index[i] = i
		}
		return []sweepGroup{all}
	}

	var groups []sweepGroup
	at := make(map[float64]int)
	for i, v := range sweep2 {
		g, ok := at[v]
		if !ok {
			g = len(groups)
			at[v] = g
			groups = append(groups, sweepGroup{label: fmt.Sprintf(" @ SWEEP2=%g", v)})
		}
		groups[g].index = append(groups[g].index, i)
	}
	return groups
}
