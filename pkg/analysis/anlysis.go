package analysis

import (
	"fmt"
	"io"
	"log"

	"github.com/edp1096/resistor-network/internal/consts"
	"github.com/edp1096/resistor-network/pkg/circuit"
	"github.com/edp1096/resistor-network/pkg/solver"
)

type Analysis interface {
	Setup(net *circuit.Network) error
	Execute() error
	GetResults() map[string][]float64
}

type BaseAnalysis struct {
	Network     *circuit.Network
	system      *circuit.System
	results     map[string][]float64 // key: variable name, value: result by operating point
	convergence struct {
		maxIter int
		tol     float64
	}
	initialGuess []float64 // nil: INITIAL_GUESS for every slot
	logger       *log.Logger
}

func NewBaseAnalysis() *BaseAnalysis {
	ba := &BaseAnalysis{
		results: make(map[string][]float64),
		logger:  log.New(io.Discard, "", 0),
	}

	ba.convergence.maxIter = consts.MAX_ITER
	ba.convergence.tol = consts.TOLERANCE

	return ba
}

// SetConvergence replaces the residual tolerance and iteration cap. Zero
// keeps the current value.
func (a *BaseAnalysis) SetConvergence(tol float64, maxIter int) {
	if tol > 0 {
		a.convergence.tol = tol
	}
	if maxIter > 0 {
		a.convergence.maxIter = maxIter
	}
}

// SetInitialGuess replaces the starting currents. Its length is checked
// against the network when the analysis runs.
func (a *BaseAnalysis) SetInitialGuess(x0 []float64) {
	a.initialGuess = append([]float64(nil), x0...)
}

func (a *BaseAnalysis) SetLogger(logger *log.Logger) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	a.logger = logger
}

func (a *BaseAnalysis) setup(net *circuit.Network) error {
	system, err := circuit.NewSystem(net)
	if err != nil {
		return err
	}
	a.Network = net
	a.system = system
	a.logger.Printf("network %q: %d resistors, %d sources, %d loops, %d node balances",
		net.Title, len(net.Resistors), len(net.VSources), len(net.Loops), len(net.Nodes))
	return nil
}

func (a *BaseAnalysis) guess() ([]float64, error) {
	size := a.system.Size()
	if a.initialGuess == nil {
		x0 := make([]float64, size)
		for i := range x0 {
			x0[i] = consts.INITIAL_GUESS
		}
		return x0, nil
	}
	if len(a.initialGuess) != size {
		return nil, fmt.Errorf("%w: initial guess has %d currents, network has %d unknowns",
			circuit.ErrDimensionMismatch, len(a.initialGuess), size)
	}
	return append([]float64(nil), a.initialGuess...), nil
}

// solve runs Newton-Raphson on the network residuals. Resistor currents are
// written only when the solve converged.
func (a *BaseAnalysis) solve() (*solver.Result, error) {
	if a.system == nil {
		return nil, fmt.Errorf("network not set")
	}

	x0, err := a.guess()
	if err != nil {
		return nil, err
	}

	res, err := solver.NewtonRaphson(a.system.Residuals, x0, solver.Options{
		Tolerance: a.convergence.tol,
		MaxIter:   a.convergence.maxIter,
		Logger:    a.logger,
	})
	if err != nil {
		return res, err
	}

	if err := a.system.Apply(res.X); err != nil {
		return res, err
	}
	return res, nil
}

// StoreResult appends one operating point: slot currents I1..IN, resistor
// currents I(name) and resistor voltage drops V(name).
func (a *BaseAnalysis) StoreResult(solution []float64) {
	for i, current := range solution {
		a.appendResult(fmt.Sprintf("I%d", i+1), current)
	}
	for _, r := range a.Network.Resistors {
		a.appendResult(fmt.Sprintf("I(%s)", r.GetName()), r.Current)
		a.appendResult(fmt.Sprintf("V(%s)", r.GetName()), r.DeltaV())
	}
}

func (a *BaseAnalysis) appendResult(name string, value float64) {
	if _, exists := a.results[name]; !exists {
		a.results[name] = make([]float64, 0)
	}
	a.results[name] = append(a.results[name], value)
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}
