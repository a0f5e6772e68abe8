package analysis

import (
	"bytes"
	"errors"
	"log"
	"math"
	"path/filepath"
	"testing"

	"github.com/edp1096/resistor-network/pkg/circuit"
	"github.com/edp1096/resistor-network/pkg/device"
	"github.com/edp1096/resistor-network/pkg/netlist"
	"github.com/edp1096/resistor-network/pkg/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-8

func singleLoop(t *testing.T) *circuit.Network {
	t.Helper()

	net := circuit.New("single loop")
	_, err := net.AddResistor("ab", 5)
	require.NoError(t, err)
	_, err = net.AddResistor("bc", 5)
	require.NoError(t, err)
	_, err = net.AddVoltageSource("ca", 10, device.Series)
	require.NoError(t, err)
	_, err = net.AddLoop("L1", "a", "b", "c")
	require.NoError(t, err)
	require.NoError(t, net.BindSlot(0, "ab", "bc"))
	return net
}

// twoLoop carries I1 through ad and back through bc. With the default
// resistances it solves to I1 = (ba - 2ed)/10, I2 = -ed - 2*I1, I3 = -ed - I1.
func twoLoop(t *testing.T, ba, ed float64, rs ...float64) *circuit.Network {
	t.Helper()

	if len(rs) == 0 {
		rs = []float64{4, 4, 1, 2}
	}

	net := circuit.New("two loop")
	for i, r := range []struct {
		name string
		slot int
		sign float64
	}{{"ad", 0, 1}, {"bc", 0, -1}, {"ce", 1, 1}, {"cd", 2, 1}} {
		_, err := net.AddResistor(r.name, rs[i])
		require.NoError(t, err)
		require.NoError(t, net.BindSlotSigned(r.slot, r.name, r.sign))
	}
	_, err := net.AddVoltageSource("ba", ba, device.Series)
	require.NoError(t, err)
	_, err = net.AddVoltageSource("ed", ed, device.Parallel)
	require.NoError(t, err)
	_, err = net.AddLoop("L1", "a", "d", "c", "b")
	require.NoError(t, err)
	_, err = net.AddLoop("L2", "c", "e", "d")
	require.NoError(t, err)
	require.NoError(t, net.AddNodeBalance("c",
		circuit.Term{Slot: 0, Sign: 1}, circuit.Term{Slot: 1, Sign: 1}, circuit.Term{Slot: 2, Sign: -1}))
	return net
}

func requireResidualsZero(t *testing.T, net *circuit.Network, x []float64) {
	t.Helper()

	s, err := circuit.NewSystem(net)
	require.NoError(t, err)
	f, err := s.Residuals(x)
	require.NoError(t, err)
	for i, v := range f {
		assert.InDelta(t, 0, v, eps, "residual %d", i)
	}
}

func TestAnalyzeCircuit(t *testing.T) {
	t.Run("single loop", func(t *testing.T) {
		net := singleLoop(t)

		currents, converged, err := AnalyzeCircuit(net)
		require.NoError(t, err)
		require.True(t, converged)
		require.Len(t, currents, 1)
		assert.InDelta(t, 1.0, currents[0], 1e-7)

		for _, name := range []string{"ab", "bc"} {
			dv, err := net.GetElementDeltaV(name)
			require.NoError(t, err)
			assert.InDelta(t, -5.0, dv, 1e-6, name)
		}

		drops, err := GetLoopVoltageDrops(net, currents)
		require.NoError(t, err)
		assert.InDelta(t, 0, drops[0], eps)
	})

	t.Run("two loops with node balance", func(t *testing.T) {
		net := twoLoop(t, 12, 3)

		currents, converged, err := AnalyzeCircuit(net)
		require.NoError(t, err)
		require.True(t, converged)
		assert.InDeltaSlice(t, []float64{0.6, -4.2, -3.6}, currents, 1e-7)
		requireResidualsZero(t, net, currents)

		r, err := net.GetResistorByName("cd")
		require.NoError(t, err)
		assert.InDelta(t, -3.6, r.Current, 1e-7)
		r, err = net.GetResistorByName("bc")
		require.NoError(t, err)
		assert.InDelta(t, -0.6, r.Current, 1e-7)
	})

	t.Run("series resistors set the loop current", func(t *testing.T) {
		base, _, err := AnalyzeCircuit(twoLoop(t, 12, 3))
		require.NoError(t, err)

		// -2000*I1 + 2*I3 + 12 = 0 with I3 = -3 - I1
		heavy, converged, err := AnalyzeCircuit(twoLoop(t, 12, 3, 1000, 1000, 1, 2))
		require.NoError(t, err)
		require.True(t, converged)
		assert.InDelta(t, 6.0/2002, heavy[0], 1e-8)
		assert.Greater(t, math.Abs(base[0]-heavy[0]), 0.5)
	})

	t.Run("residuals vanish for other values", func(t *testing.T) {
		for _, tc := range []struct {
			ba, ed float64
			rs     []float64
		}{
			{5, -7, []float64{1, 2, 3, 4}},
			{0.01, 100, []float64{1e3, 2.2e3, 470, 10}},
			{-24, 0, []float64{0.5, 0.5, 0.5, 0.5}},
		} {
			net := twoLoop(t, tc.ba, tc.ed, tc.rs...)
			currents, converged, err := AnalyzeCircuit(net)
			require.NoError(t, err)
			require.True(t, converged)
			requireResidualsZero(t, net, currents)
		}
	})

	t.Run("scaling sources scales currents", func(t *testing.T) {
		base, _, err := AnalyzeCircuit(twoLoop(t, 12, 3))
		require.NoError(t, err)

		for _, k := range []float64{2, -0.5, 10} {
			scaled, converged, err := AnalyzeCircuit(twoLoop(t, 12*k, 3*k))
			require.NoError(t, err)
			require.True(t, converged)
			for i := range base {
				assert.InDelta(t, k*base[i], scaled[i], 1e-6, "k=%g slot %d", k, i)
			}
		}
	})

	t.Run("unresolved edge fails before solving", func(t *testing.T) {
		net := singleLoop(t)
		_, err := net.AddLoop("L2", "x", "y")
		require.NoError(t, err)
		net.DeclareSlots(2)

		currents, converged, err := AnalyzeCircuit(net)
		assert.ErrorIs(t, err, circuit.ErrUnresolvedEdge)
		assert.False(t, converged)
		assert.Nil(t, currents)
	})

	t.Run("contradictory sources", func(t *testing.T) {
		net := circuit.New("sources only")
		for _, name := range []string{"ab", "bc", "ca"} {
			_, err := net.AddVoltageSource(name, 5, device.Series)
			require.NoError(t, err)
		}
		_, err := net.AddLoop("L1", "a", "b", "c")
		require.NoError(t, err)
		net.DeclareSlots(1)

		_, converged, err := AnalyzeCircuit(net)
		require.Error(t, err)
		assert.False(t, converged)
		assert.True(t, errors.Is(err, solver.ErrSingularSystem) || errors.Is(err, solver.ErrNonConvergence))

		var serr *solver.SingularError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, 1, serr.Iteration)
	})
}

// parallelBranch extends twoLoop with the branch d -> f -> e across source ed
// as a third loop and a fourth slot leaving node c.
func parallelBranch(t *testing.T) *circuit.Network {
	t.Helper()

	net := circuit.New("two loop with parallel branch")
	for _, r := range []struct {
		name string
		r    float64
		slot int
		sign float64
	}{{"ad", 4, 0, 1}, {"bc", 4, 0, -1}, {"ce", 1, 1, 1}, {"cd", 2, 2, 1}, {"df", 2, 3, 1}, {"fe", 3, 3, 1}} {
		_, err := net.AddResistor(r.name, r.r)
		require.NoError(t, err)
		require.NoError(t, net.BindSlotSigned(r.slot, r.name, r.sign))
	}
	_, err := net.AddVoltageSource("ba", 12, device.Series)
	require.NoError(t, err)
	_, err = net.AddVoltageSource("ed", 3, device.Parallel)
	require.NoError(t, err)
	for _, l := range [][]string{{"a", "d", "c", "b"}, {"c", "e", "d"}, {"e", "d", "f"}} {
		_, err = net.AddLoop("", l...)
		require.NoError(t, err)
	}
	require.NoError(t, net.AddNodeBalance("c",
		circuit.Term{Slot: 0, Sign: 1}, circuit.Term{Slot: 1, Sign: 1},
		circuit.Term{Slot: 2, Sign: -1}, circuit.Term{Slot: 3, Sign: -1}))
	return net
}

func TestNetworkVariants(t *testing.T) {
	// I4 = 3/(2+3), then -10*I1 + 7.2 = 0, I2 = -2*I1 - 1.8, I3 = -I1 - 2.4.
	want := []float64{0.72, -3.24, -3.12, 0.6}

	t.Run("parallel branch adds an unknown", func(t *testing.T) {
		net := parallelBranch(t)
		assert.Equal(t, 4, net.NumUnknowns())

		currents, converged, err := AnalyzeCircuit(net)
		require.NoError(t, err)
		require.True(t, converged)
		assert.InDeltaSlice(t, want, currents, 1e-7)
		requireResidualsZero(t, net, currents)

		for _, name := range []string{"df", "fe"} {
			r, err := net.GetResistorByName(name)
			require.NoError(t, err)
			assert.InDelta(t, 0.6, r.Current, 1e-7, name)
		}
	})

	t.Run("same network from a file", func(t *testing.T) {
		data, err := netlist.ReadFile(filepath.Join("..", "..", "examples", "networks", "twoloop_parallel.net"))
		require.NoError(t, err)
		net, err := circuit.FromNetlist(data)
		require.NoError(t, err)
		assert.Equal(t, 4, net.NumUnknowns())

		k := NewKirchhoff()
		require.NoError(t, k.Setup(net))
		require.NoError(t, k.Execute())
		assert.InDeltaSlice(t, want, k.Solution(), 1e-7)
		requireResidualsZero(t, net, k.Solution())
	})

	t.Run("shipped two loop network", func(t *testing.T) {
		data, err := netlist.ReadFile(filepath.Join("..", "..", "examples", "networks", "twoloop.net"))
		require.NoError(t, err)
		net, err := circuit.FromNetlist(data)
		require.NoError(t, err)

		currents, converged, err := AnalyzeCircuit(net)
		require.NoError(t, err)
		require.True(t, converged)
		assert.InDeltaSlice(t, []float64{0.6, -4.2, -3.6}, currents, 1e-7)
	})
}

func TestKirchhoff(t *testing.T) {
	t.Run("results", func(t *testing.T) {
		k := NewKirchhoff()
		require.NoError(t, k.Setup(twoLoop(t, 12, 3)))
		require.NoError(t, k.Execute())
		assert.True(t, k.Converged())

		results := k.GetResults()
		assert.InDelta(t, 0.6, results["I1"][0], 1e-7)
		assert.InDelta(t, -4.2, results["I2"][0], 1e-7)
		assert.InDelta(t, -3.6, results["I3"][0], 1e-7)
		assert.InDelta(t, -0.6, results["I(bc)"][0], 1e-7)
		assert.InDelta(t, 2.4, results["V(ad)"][0], 1e-6)
		assert.InDelta(t, -4.2, results["V(ce)"][0], 1e-6)
		assert.Len(t, results, 3+2*4)
	})

	t.Run("execute without setup", func(t *testing.T) {
		assert.Error(t, NewKirchhoff().Execute())
	})

	t.Run("initial guess length", func(t *testing.T) {
		k := NewKirchhoff()
		k.SetInitialGuess([]float64{1})
		require.NoError(t, k.Setup(twoLoop(t, 12, 3)))
		assert.ErrorIs(t, k.Execute(), circuit.ErrDimensionMismatch)
	})

	t.Run("custom initial guess", func(t *testing.T) {
		k := NewKirchhoff()
		k.SetInitialGuess([]float64{-100, 50, 7})
		require.NoError(t, k.Setup(twoLoop(t, 12, 3)))
		require.NoError(t, k.Execute())
		assert.InDeltaSlice(t, []float64{0.6, -4.2, -3.6}, k.Solution(), 1e-7)
	})

	t.Run("failure leaves resistors untouched", func(t *testing.T) {
		net := singleLoop(t)
		_, err := net.AddLoop("L2", "c", "a")
		require.NoError(t, err)
		net.DeclareSlots(2)

		k := NewKirchhoff()
		require.NoError(t, k.Setup(net))
		err = k.Execute()
		assert.ErrorIs(t, err, solver.ErrSingularSystem)
		assert.False(t, k.Converged())
		assert.Empty(t, k.GetResults())
		for _, r := range net.Resistors {
			assert.Zero(t, r.Current)
		}
	})

	t.Run("logger", func(t *testing.T) {
		var buf bytes.Buffer
		k := NewKirchhoff()
		k.SetLogger(log.New(&buf, "", 0))
		k.SetConvergence(1e-10, 50)
		require.NoError(t, k.Setup(singleLoop(t)))
		require.NoError(t, k.Execute())
		assert.Contains(t, buf.String(), `network "single loop"`)
		assert.Contains(t, buf.String(), "newton: converged")
	})
}

func TestGetLoopVoltageDrops(t *testing.T) {
	net := twoLoop(t, 12, 3)

	drops, err := GetLoopVoltageDrops(net, []float64{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{12, 3}, drops)

	_, err = GetLoopVoltageDrops(net, []float64{0})
	assert.ErrorIs(t, err, circuit.ErrDimensionMismatch)
}

func TestDCSweep(t *testing.T) {
	t.Run("single source", func(t *testing.T) {
		net := twoLoop(t, 12, 3)
		dc, err := NewDCSweep([]string{"ba"}, []float64{0}, []float64{12}, []float64{4})
		require.NoError(t, err)
		require.NoError(t, dc.Setup(net))
		require.NoError(t, dc.Execute())

		results := dc.GetResults()
		assert.Equal(t, []float64{0, 4, 8, 12}, results["SWEEP1"])
		assert.InDeltaSlice(t, []float64{-0.6, -0.2, 0.2, 0.6}, results["I1"], 1e-7)
		assert.InDeltaSlice(t, []float64{-2.4, -2.8, -3.2, -3.6}, results["I(cd)"], 1e-7)
		assert.NotContains(t, results, "SWEEP2")

		v, err := net.GetVoltageSourceByName("ba")
		require.NoError(t, err)
		assert.Equal(t, 12.0, v.Voltage())
	})

	t.Run("nested sources", func(t *testing.T) {
		net := twoLoop(t, 12, 3)
		dc, err := NewDCSweep([]string{"ba", "ed"}, []float64{0, 0}, []float64{12, 3}, []float64{12, 3})
		require.NoError(t, err)
		require.NoError(t, dc.Setup(net))
		require.NoError(t, dc.Execute())

		results := dc.GetResults()
		assert.Equal(t, []float64{0, 0, 12, 12}, results["SWEEP1"])
		assert.Equal(t, []float64{0, 3, 0, 3}, results["SWEEP2"])
		assert.InDeltaSlice(t, []float64{0, -0.6, 1.2, 0.6}, results["I1"], 1e-7)
		assert.InDeltaSlice(t, []float64{0, -1.8, -2.4, -4.2}, results["I2"], 1e-7)

		ed, err := net.GetVoltageSourceByName("ed")
		require.NoError(t, err)
		assert.Equal(t, 3.0, ed.Voltage())
	})

	t.Run("fractional increment keeps the last point", func(t *testing.T) {
		values, err := sweepValues(0, 1, 0.1)
		require.NoError(t, err)
		assert.Len(t, values, 11)
		assert.InDelta(t, 1.0, values[10], 1e-12)
	})

	t.Run("source values restored on failure", func(t *testing.T) {
		net := twoLoop(t, 12, 3)
		dc, err := NewDCSweep([]string{"ba"}, []float64{0}, []float64{12}, []float64{6})
		require.NoError(t, err)
		dc.SetInitialGuess([]float64{0})
		require.NoError(t, dc.Setup(net))
		assert.ErrorIs(t, dc.Execute(), circuit.ErrDimensionMismatch)

		v, err := net.GetVoltageSourceByName("ba")
		require.NoError(t, err)
		assert.Equal(t, 12.0, v.Voltage())
	})

	t.Run("setup errors", func(t *testing.T) {
		net := twoLoop(t, 12, 3)
		sweep := func(names []string, start, stop, step float64) *DCSweep {
			starts, stops, steps := make([]float64, len(names)), make([]float64, len(names)), make([]float64, len(names))
			for i := range names {
				starts[i], stops[i], steps[i] = start, stop, step
			}
			dc, err := NewDCSweep(names, starts, stops, steps)
			require.NoError(t, err)
			return dc
		}

		assert.ErrorIs(t, sweep([]string{"xx"}, 0, 1, 1).Setup(net), circuit.ErrUnknownElement)
		assert.ErrorIs(t, sweep([]string{"ad"}, 0, 1, 1).Setup(net), circuit.ErrUnknownElement)
		assert.Error(t, sweep([]string{"ba"}, 0, 1, 0).Setup(net))
		assert.Error(t, sweep([]string{"ba"}, 2, 1, 1).Setup(net))
		assert.Error(t, sweep([]string{"ba"}, math.NaN(), 1, 1).Setup(net))
		assert.Error(t, sweep(nil, 0, 1, 1).Setup(net))
		assert.Error(t, sweep([]string{"ba", "ed", "ba"}, 0, 1, 1).Setup(net))
	})

	t.Run("inconsistent parameter lengths", func(t *testing.T) {
		dc, err := NewDCSweep([]string{"ba"}, nil, nil, nil)
		assert.Error(t, err)
		assert.Nil(t, dc)
	})

	t.Run("point count is capped", func(t *testing.T) {
		_, err := sweepValues(0, 1e12, 1e-9)
		assert.ErrorContains(t, err, "exceeds")

		values, err := sweepValues(0, maxSweepPoints-1, 1)
		require.NoError(t, err)
		assert.Len(t, values, maxSweepPoints)

		_, err = sweepValues(0, maxSweepPoints, 1)
		assert.Error(t, err)
	})
}
