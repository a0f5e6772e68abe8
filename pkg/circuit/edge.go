package circuit

import (
	"fmt"

	"github.com/edp1096/resistor-network/pkg/device"
)

type EdgeKind int

const (
	EdgeUnresolved EdgeKind = iota
	EdgeResistorForward
	EdgeResistorReverse
	EdgeSourceForward
	EdgeSourceReverse
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeResistorForward:
		return "resistor"
	case EdgeResistorReverse:
		return "reversed resistor"
	case EdgeSourceForward:
		return "source"
	case EdgeSourceReverse:
		return "reversed source"
	default:
		return "unresolved"
	}
}

// Edge is one directed step of a loop resolved to the element it crosses.
type Edge struct {
	Kind     EdgeKind
	Resistor *device.Resistor
	Source   *device.VoltageSource
}

func (e Edge) Name() string {
	switch e.Kind {
	case EdgeResistorForward, EdgeResistorReverse:
		return e.Resistor.GetName()
	case EdgeSourceForward, EdgeSourceReverse:
		return e.Source.GetName()
	}
	return ""
}

// Sign is +1 when the edge is traversed in the element's named direction.
func (e Edge) Sign() float64 {
	if e.Kind == EdgeResistorReverse || e.Kind == EdgeSourceReverse {
		return -1
	}
	return 1
}

// contribution is the loop voltage term for a resistor carrying current.
func (e Edge) contribution(current float64) float64 {
	switch e.Kind {
	case EdgeResistorForward, EdgeResistorReverse:
		return -e.Sign() * current * e.Resistor.Resistance()
	case EdgeSourceForward, EdgeSourceReverse:
		return e.Sign() * e.Source.Voltage()
	}
	return 0
}

// DeltaV is the loop voltage term using the current stored on the resistor.
func (e Edge) DeltaV() float64 {
	if e.Resistor != nil {
		return e.contribution(e.Resistor.Current)
	}
	return e.contribution(0)
}

// ResolveEdge finds the single element joining from and to.
func (n *Network) ResolveEdge(from, to string) (Edge, error) {
	return n.resolve(from+to, to+from)
}

func (n *Network) resolve(forward, reverse string) (Edge, error) {
	var found Edge
	matches := 0

	for _, r := range n.Resistors {
		switch r.GetName() {
		case forward:
			found = Edge{Kind: EdgeResistorForward, Resistor: r}
			matches++
		case reverse:
			found = Edge{Kind: EdgeResistorReverse, Resistor: r}
			matches++
		}
	}
	for _, v := range n.VSources {
		switch v.GetName() {
		case forward:
			found = Edge{Kind: EdgeSourceForward, Source: v}
			matches++
		case reverse:
			found = Edge{Kind: EdgeSourceReverse, Source: v}
			matches++
		}
	}

	switch matches {
	case 0:
		return Edge{}, fmt.Errorf("%w: no element named %s or %s", ErrUnresolvedEdge, forward, reverse)
	case 1:
		return found, nil
	default:
		return Edge{}, fmt.Errorf("%w: %d elements named %s or %s", ErrAmbiguousEdge, matches, forward, reverse)
	}
}
