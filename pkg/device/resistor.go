package device

import (
	"fmt"
	"math"
)

type Resistor struct {
	BaseDevice
	Current float64 // Positive from the first named node to the second
}

func NewResistor(name string, resistance float64) (*Resistor, error) {
	if err := checkName(name); err != nil {
		return nil, fmt.Errorf("resistor: %v", err)
	}
	if err := checkResistance(resistance); err != nil {
		return nil, fmt.Errorf("resistor %s: %v", name, err)
	}

	return &Resistor{BaseDevice: BaseDevice{name: name, value: resistance}}, nil
}

func checkResistance(resistance float64) error {
	if !(resistance > 0) || math.IsInf(resistance, 0) {
		return fmt.Errorf("resistance must be positive and finite, got %g", resistance)
	}
	return nil
}

func (r *Resistor) GetType() string { return "R" }

func (r *Resistor) Resistance() float64 { return r.value }

// SetResistance replaces the resistance. The old value is kept on error.
func (r *Resistor) SetResistance(resistance float64) error {
	if err := checkResistance(resistance); err != nil {
		return fmt.Errorf("resistor %s: %v", r.name, err)
	}
	r.value = resistance
	return nil
}

// DeltaV is the Ohm's law drop across the resistor, signed like Current.
func (r *Resistor) DeltaV() float64 {
	return r.Current * r.value
}
