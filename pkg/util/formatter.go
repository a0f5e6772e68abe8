package util

import (
	"fmt"
	"math"
	"strings"
)

var factors = []struct {
	scale  float64
	prefix string
}{
	{1e6, "M"},
	{1e3, "k"},
	{1, ""},
	{1e-3, "m"},
	{1e-6, "u"},
	{1e-9, "n"},
	{1e-12, "p"},
}

// FormatValueFactor prints value with an engineering prefix, e.g. 0.0015 A as
// "1.500 mA".
func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	if absValue == 0 {
		return fmt.Sprintf("%.3f %s", 0.0, unit)
	}

	for _, f := range factors {
		if absValue >= f.scale {
			return fmt.Sprintf("%.3f %s%s", value/f.scale, f.prefix, unit)
		}
	}
	return fmt.Sprintf("%.3e %s", value, unit)
}

// FormatCurrents prints slot currents as "I1 = 1.000 A, I2 = ...".
func FormatCurrents(currents []float64) string {
	parts := make([]string, len(currents))
	for i, current := range currents {
		parts[i] = fmt.Sprintf("I%d = %s", i+1, FormatValueFactor(current, "A"))
	}
	return strings.Join(parts, ", ")
}
