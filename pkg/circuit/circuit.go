package circuit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/edp1096/resistor-network/pkg/device"
)

// Loop is a closed traversal path. The last node connects back to the first.
type Loop struct {
	Name  string
	Nodes []string
}

// Binding ties a resistor to an unknown slot. The resistor carries Sign*x[slot].
type Binding struct {
	Resistor string
	Sign     float64
}

type Slot struct {
	Bindings []Binding
}

// Term is one signed slot current entering a node balance.
type Term struct {
	Slot int
	Sign float64
}

type NodeBalance struct {
	Name  string
	Terms []Term
}

// Network owns the elements and the topology declaration of one circuit.
// Only the Current field of its resistors changes during analysis, so one
// Network must not be analyzed concurrently.
type Network struct {
	Title     string
	Resistors []*device.Resistor
	VSources  []*device.VoltageSource
	Loops     []*Loop
	Slots     []Slot
	Nodes     []NodeBalance
}

func New(title string) *Network {
	return &Network{
		Title:     title,
		Resistors: make([]*device.Resistor, 0),
		VSources:  make([]*device.VoltageSource, 0),
		Loops:     make([]*Loop, 0),
		Slots:     make([]Slot, 0),
		Nodes:     make([]NodeBalance, 0),
	}
}

func (n *Network) hasName(name string) bool {
	for _, r := range n.Resistors {
		if r.GetName() == name {
			return true
		}
	}
	for _, v := range n.VSources {
		if v.GetName() == name {
			return true
		}
	}
	return false
}

func (n *Network) AddResistor(name string, resistance float64) (*device.Resistor, error) {
	if n.hasName(name) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateElement, name)
	}
	r, err := device.NewResistor(name, resistance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidElement, err)
	}
	n.Resistors = append(n.Resistors, r)
	return r, nil
}

func (n *Network) AddVoltageSource(name string, voltage float64, kind device.SourceKind) (*device.VoltageSource, error) {
	if n.hasName(name) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateElement, name)
	}
	v, err := device.NewVoltageSource(name, voltage, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidElement, err)
	}
	n.VSources = append(n.VSources, v)
	return v, nil
}

func (n *Network) AddLoop(name string, nodes ...string) (*Loop, error) {
	l := &Loop{Name: name, Nodes: append([]string(nil), nodes...)}
	if err := checkLoop(l); err != nil {
		return nil, err
	}
	n.Loops = append(n.Loops, l)
	return l, nil
}

func checkLoop(l *Loop) error {
	if len(l.Nodes) < 2 {
		return fmt.Errorf("%w: loop %s needs at least 2 nodes, got %d", ErrInvalidElement, l.Name, len(l.Nodes))
	}
	for i, node := range l.Nodes {
		if strings.TrimSpace(node) == "" {
			return fmt.Errorf("%w: loop %s: empty node label at %d", ErrInvalidElement, l.Name, i)
		}
		if next := l.Nodes[(i+1)%len(l.Nodes)]; next == node {
			return fmt.Errorf("%w: loop %s: node %s repeated on one edge", ErrInvalidElement, l.Name, node)
		}
	}
	return nil
}

// DeclareSlots makes sure at least count slots exist. Slots without bindings
// are legal; they make the Jacobian singular.
func (n *Network) DeclareSlots(count int) {
	for len(n.Slots) < count {
		n.Slots = append(n.Slots, Slot{})
	}
}

// BindSlot binds resistors to slot with a positive sign.
func (n *Network) BindSlot(slot int, resistors ...string) error {
	for _, name := range resistors {
		if err := n.BindSlotSigned(slot, name, 1); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) BindSlotSigned(slot int, resistor string, sign float64) error {
	if slot < 0 {
		return fmt.Errorf("%w: negative slot %d", ErrInvalidElement, slot)
	}
	if sign != 1 && sign != -1 {
		return fmt.Errorf("%w: binding sign must be +1 or -1, got %g", ErrInvalidElement, sign)
	}
	if _, err := n.GetResistorByName(resistor); err != nil {
		return err
	}
	for i, s := range n.Slots {
		for _, b := range s.Bindings {
			if b.Resistor == resistor {
				return fmt.Errorf("%w: resistor %s already bound to slot %d", ErrDuplicateElement, resistor, i)
			}
		}
	}

	n.DeclareSlots(slot + 1)
	n.Slots[slot].Bindings = append(n.Slots[slot].Bindings, Binding{Resistor: resistor, Sign: sign})
	return nil
}

func (n *Network) AddNodeBalance(name string, terms ...Term) error {
	for _, t := range terms {
		if t.Slot < 0 {
			return fmt.Errorf("%w: node %s: negative slot %d", ErrInvalidElement, name, t.Slot)
		}
		if t.Sign != 1 && t.Sign != -1 {
			return fmt.Errorf("%w: node %s: term sign must be +1 or -1, got %g", ErrInvalidElement, name, t.Sign)
		}
	}
	n.Nodes = append(n.Nodes, NodeBalance{Name: name, Terms: append([]Term(nil), terms...)})
	return nil
}

// NumUnknowns is the number of solver unknowns: one per loop plus one per
// node balance.
func (n *Network) NumUnknowns() int {
	return len(n.Loops) + len(n.Nodes)
}

func (n *Network) GetResistorByName(name string) (*device.Resistor, error) {
	for _, r := range n.Resistors {
		if r.GetName() == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: resistor %s", ErrUnknownElement, name)
}

func (n *Network) GetVoltageSourceByName(name string) (*device.VoltageSource, error) {
	for _, v := range n.VSources {
		if v.GetName() == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: voltage source %s", ErrUnknownElement, name)
}

func (n *Network) GetElementByName(name string) (device.Device, error) {
	if r, err := n.GetResistorByName(name); err == nil {
		return r, nil
	}
	if v, err := n.GetVoltageSourceByName(name); err == nil {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownElement, name)
}

// GetElementDeltaV returns the signed voltage contribution of the element
// named by the directed pair name, using the currents stored on the resistors.
// The reversed name is name read backwards, which matches swapped node labels
// only for single letter labels.
func (n *Network) GetElementDeltaV(name string) (float64, error) {
	e, err := n.resolve(name, device.Reverse(name))
	if errors.Is(err, ErrUnresolvedEdge) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownElement, name)
	}
	if err != nil {
		return 0, err
	}
	return e.DeltaV(), nil
}

// Validate checks the topology declaration without resolving loop edges.
func (n *Network) Validate() error {
	seen := make(map[string]bool)
	for _, r := range n.Resistors {
		if seen[r.GetName()] {
			return fmt.Errorf("%w: %s", ErrDuplicateElement, r.GetName())
		}
		seen[r.GetName()] = true
		if !(r.Resistance() > 0) {
			return fmt.Errorf("%w: resistor %s: resistance %g", ErrInvalidElement, r.GetName(), r.Resistance())
		}
	}
	for _, v := range n.VSources {
		if seen[v.GetName()] {
			return fmt.Errorf("%w: %s", ErrDuplicateElement, v.GetName())
		}
		seen[v.GetName()] = true
	}

	for _, l := range n.Loops {
		if err := checkLoop(l); err != nil {
			return err
		}
	}

	size := n.NumUnknowns()
	if size == 0 {
		return fmt.Errorf("%w: network declares no loops or node balances", ErrDimensionMismatch)
	}
	if len(n.Slots) != size {
		return fmt.Errorf("%w: %d current slots for %d equations (%d loops + %d nodes)",
			ErrDimensionMismatch, len(n.Slots), size, len(n.Loops), len(n.Nodes))
	}

	bound := make(map[string]bool)
	for i, s := range n.Slots {
		for _, b := range s.Bindings {
			if _, err := n.GetResistorByName(b.Resistor); err != nil {
				return fmt.Errorf("slot %d: %w", i, err)
			}
			if bound[b.Resistor] {
				return fmt.Errorf("%w: resistor %s bound twice", ErrDuplicateElement, b.Resistor)
			}
			bound[b.Resistor] = true
		}
	}
	for _, r := range n.Resistors {
		if !bound[r.GetName()] {
			return fmt.Errorf("%w: %s", ErrUnboundResistor, r.GetName())
		}
	}

	for _, node := range n.Nodes {
		for _, t := range node.Terms {
			if t.Slot < 0 || t.Slot >= size {
				return fmt.Errorf("%w: node %s references slot %d of %d", ErrDimensionMismatch, node.Name, t.Slot, size)
			}
		}
	}

	return nil
}
