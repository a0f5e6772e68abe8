package device

import (
	"fmt"
	"strings"
)

// Device is a named two-terminal element. The name is the concatenation of
// its two node labels, first node first.
type Device interface {
	GetName() string
	GetType() string
	GetValue() float64
}

type BaseDevice struct {
	name  string
	value float64
}

func (d *BaseDevice) GetName() string {
	return d.name
}

func (d *BaseDevice) GetValue() float64 {
	return d.value
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty element name")
	}
	if strings.ContainsAny(name, " \t,") {
		return fmt.Errorf("element name %q contains separators", name)
	}
	return nil
}

// Reverse returns the name read backwards. For single letter node labels
// this is the name of the same element traversed in the opposite direction.
func Reverse(name string) string {
	r := []rune(name)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
