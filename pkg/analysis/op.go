package analysis

import (
	"github.com/edp1096/resistor-network/pkg/circuit"
)

// Kirchhoff solves the loop and node balance equations of a network at its
// current source values.
type Kirchhoff struct {
	BaseAnalysis
	solution  []float64
	converged bool
}

func NewKirchhoff() *Kirchhoff {
	return &Kirchhoff{
		BaseAnalysis: *NewBaseAnalysis(),
	}
}

func (k *Kirchhoff) Setup(net *circuit.Network) error {
	return k.setup(net)
}

func (k *Kirchhoff) Execute() error {
	k.solution, k.converged = nil, false

	res, err := k.solve()
	if res != nil {
		k.solution = append([]float64(nil), res.X...)
	}
	if err != nil {
		return err
	}

	k.converged = true
	k.results = make(map[string][]float64)
	k.StoreResult(k.solution)

	return nil
}

// Solution returns the slot currents of the last Execute. After a failed
// solve it holds the last iterate and Converged reports false.
func (k *Kirchhoff) Solution() []float64 {
	return append([]float64(nil), k.solution...)
}

func (k *Kirchhoff) Converged() bool {
	return k.converged
}

// AnalyzeCircuit solves net from the default initial guess. On success the
// resistors of net carry the solved currents.
func AnalyzeCircuit(net *circuit.Network) ([]float64, bool, error) {
	k := NewKirchhoff()
	if err := k.Setup(net); err != nil {
		return nil, false, err
	}
	err := k.Execute()
	return k.Solution(), k.Converged(), err
}

// GetLoopVoltageDrops evaluates the loop voltage sums of net at currents
// without touching the resistors.
func GetLoopVoltageDrops(net *circuit.Network, currents []float64) ([]float64, error) {
	system, err := circuit.NewSystem(net)
	if err != nil {
		return nil, err
	}
	return system.LoopVoltageDrops(currents)
}
