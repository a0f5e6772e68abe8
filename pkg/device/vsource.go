package device

import (
	"fmt"
	"math"
)

type SourceKind string

const (
	Series   SourceKind = "series"
	Parallel SourceKind = "parallel"
)

// VoltageSource is an ideal DC source. Traversing it in the direction of its
// name raises the potential by Voltage.
type VoltageSource struct {
	BaseDevice
	kind SourceKind
}

func NewVoltageSource(name string, voltage float64, kind SourceKind) (*VoltageSource, error) {
	if err := checkName(name); err != nil {
		return nil, fmt.Errorf("voltage source: %v", err)
	}
	if err := checkVoltage(voltage); err != nil {
		return nil, fmt.Errorf("voltage source %s: %v", name, err)
	}

	return &VoltageSource{BaseDevice: BaseDevice{name: name, value: voltage}, kind: kind}, nil
}

func (v *VoltageSource) GetType() string { return "V" }

func checkVoltage(voltage float64) error {
	if math.IsNaN(voltage) || math.IsInf(voltage, 0) {
		return fmt.Errorf("voltage must be finite, got %g", voltage)
	}
	return nil
}

func (v *VoltageSource) Voltage() float64 { return v.value }

func (v *VoltageSource) Kind() SourceKind { return v.kind }

func (v *VoltageSource) SetValue(value float64) error {
	if err := checkVoltage(value); err != nil {
		return fmt.Errorf("voltage source %s: %v", v.name, err)
	}
	v.value = value
	return nil
}
