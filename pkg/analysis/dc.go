package analysis

import (
	"fmt"
	"math"

	"github.com/edp1096/resistor-network/pkg/circuit"
	"github.com/edp1096/resistor-network/pkg/device"
)

type DCSweep struct {
	BaseAnalysis
	sourceNames []string    // Names of voltage sources to sweep
	startVals   []float64   // Start values for each source
	stopVals    []float64   // Stop values for each source
	increments  []float64   // Incremental value of steps for each source
	sweepVals   [][]float64 // Generated sweep values for each source
	sources     []*device.VoltageSource
	origVals    []float64 // Original values of the sources
}

// maxSweepPoints bounds the points generated for one source.
const maxSweepPoints = 1_000_000

func NewDCSweep(sources []string, starts, stops []float64, increments []float64) (*DCSweep, error) {
	if len(sources) != len(starts) || len(sources) != len(stops) || len(sources) != len(increments) {
		return nil, fmt.Errorf("inconsistent sweep parameter lengths: %d sources, %d starts, %d stops, %d increments",
			len(sources), len(starts), len(stops), len(increments))
	}

	return &DCSweep{
		BaseAnalysis: *NewBaseAnalysis(),
		sourceNames:  sources,
		startVals:    starts,
		stopVals:     stops,
		increments:   increments,
		sweepVals:    make([][]float64, len(sources)),
		sources:      make([]*device.VoltageSource, len(sources)),
		origVals:     make([]float64, len(sources)),
	}, nil
}

// sweepValues lists start, start+inc, ... up to stop. The count is computed
// up front so rounding cannot add or drop the last point.
func sweepValues(start, stop, inc float64) ([]float64, error) {
	if !(inc > 0) || math.IsInf(inc, 0) {
		return nil, fmt.Errorf("sweep increment must be positive, got %g", inc)
	}
	if math.IsNaN(start) || math.IsInf(start, 0) || math.IsNaN(stop) || math.IsInf(stop, 0) {
		return nil, fmt.Errorf("sweep range must be finite, got %g to %g", start, stop)
	}
	if stop < start {
		return nil, fmt.Errorf("sweep stop %g is below start %g", stop, start)
	}

	steps := math.Floor((stop-start)/inc + 1e-9)
	if steps >= maxSweepPoints {
		return nil, fmt.Errorf("sweep %g to %g step %g exceeds %d points", start, stop, inc, maxSweepPoints)
	}

	n := int(steps) + 1
	values := make([]float64, n)
	for i := range values {
		values[i] = start + float64(i)*inc
	}
	return values, nil
}

func (dc *DCSweep) Setup(net *circuit.Network) error {
	if len(dc.sourceNames) < 1 || len(dc.sourceNames) > 2 {
		return fmt.Errorf("unsupported number of sweep sources: %d", len(dc.sourceNames))
	}

	for i, name := range dc.sourceNames {
		source, err := net.GetVoltageSourceByName(name)
		if err != nil {
			return fmt.Errorf("sweep source: %w", err)
		}
		dc.sources[i] = source
		dc.origVals[i] = source.Voltage()

		dc.sweepVals[i], err = sweepValues(dc.startVals[i], dc.stopVals[i], dc.increments[i])
		if err != nil {
			return fmt.Errorf("source %s: %v", name, err)
		}
	}

	return dc.setup(net)
}

func (dc *DCSweep) Execute() error {
	if dc.system == nil {
		return fmt.Errorf("network not set")
	}
	defer dc.restore()

	dc.results = make(map[string][]float64)

	// Single source sweep
	if len(dc.sources) == 1 {
		return dc.singleSweep()
	}

	// Nested sweep (up to 2 sources)
	return dc.nestedSweep()
}

func (dc *DCSweep) restore() {
	for i, source := range dc.sources {
		// origVals were read from the sources, so they are valid
		_ = source.SetValue(dc.origVals[i])
	}
}

func (dc *DCSweep) singleSweep() error {
	source := dc.sources[0]

	for _, val := range dc.sweepVals[0] {
		if err := source.SetValue(val); err != nil {
			return err
		}

		res, err := dc.solve()
		if err != nil {
			return fmt.Errorf("at %s=%g: %w", dc.sourceNames[0], val, err)
		}

		dc.appendResult("SWEEP1", val)
		dc.StoreResult(res.X)
		dc.logger.Printf("dc sweep %s=%g: %d iterations", dc.sourceNames[0], val, res.Iterations)
	}

	return nil
}

func (dc *DCSweep) nestedSweep() error {
	source1, source2 := dc.sources[0], dc.sources[1]

	for _, val1 := range dc.sweepVals[0] {
		if err := source1.SetValue(val1); err != nil {
			return err
		}

		for _, val2 := range dc.sweepVals[1] {
			if err := source2.SetValue(val2); err != nil {
				return err
			}

			res, err := dc.solve()
			if err != nil {
				return fmt.Errorf("at %s=%g, %s=%g: %w",
					dc.sourceNames[0], val1, dc.sourceNames[1], val2, err)
			}

			dc.appendResult("SWEEP1", val1)
			dc.appendResult("SWEEP2", val2)
			dc.StoreResult(res.X)
		}
	}

	return nil
}
