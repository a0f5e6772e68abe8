package circuit

import (
	"fmt"

	"github.com/edp1096/resistor-network/pkg/device"
	"github.com/edp1096/resistor-network/pkg/netlist"
)

// FromNetlist builds a Network from parsed netlist data. Slot numbers in the
// data are 1-based; a negative slot binds the resistor with reversed sign.
// Slots never referenced are declared empty so the slot count always matches
// the equation count unless the data references too many.
func FromNetlist(data *netlist.NetlistData) (*Network, error) {
	net := New(data.Title)

	for _, elem := range data.Elements {
		switch elem.Type {
		case "R":
			if _, err := net.AddResistor(elem.Name, elem.Value); err != nil {
				return nil, atLine(elem.Line, err)
			}
			if elem.Current == 0 {
				continue
			}
			slot, sign := elem.Current-1, 1.0
			if elem.Current < 0 {
				slot, sign = -elem.Current-1, -1.0
			}
			if err := net.BindSlotSigned(slot, elem.Name, sign); err != nil {
				return nil, atLine(elem.Line, err)
			}

		case "V":
			if _, err := net.AddVoltageSource(elem.Name, elem.Value, device.SourceKind(elem.Kind)); err != nil {
				return nil, atLine(elem.Line, err)
			}

		default:
			return nil, atLine(elem.Line, fmt.Errorf("%w: unsupported element type %q", ErrInvalidElement, elem.Type))
		}
	}

	for _, l := range data.Loops {
		if _, err := net.AddLoop(l.Name, l.Nodes...); err != nil {
			return nil, atLine(l.Line, err)
		}
	}

	for _, n := range data.Nodes {
		terms := make([]Term, 0, len(n.In)+len(n.Out))
		for _, slot := range n.In {
			terms = append(terms, Term{Slot: slot - 1, Sign: 1})
		}
		for _, slot := range n.Out {
			terms = append(terms, Term{Slot: slot - 1, Sign: -1})
		}
		if err := net.AddNodeBalance(n.Name, terms...); err != nil {
			return nil, atLine(n.Line, err)
		}
	}

	net.DeclareSlots(net.NumUnknowns())

	return net, nil
}

func atLine(line int, err error) error {
	if line > 0 {
		return fmt.Errorf("line %d: %w", line, err)
	}
	return err
}
