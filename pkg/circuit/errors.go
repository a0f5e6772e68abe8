package circuit

import (
	"errors"
	"fmt"
)

var (
	ErrUnresolvedEdge    = errors.New("circuit: unresolved edge")
	ErrAmbiguousEdge     = errors.New("circuit: ambiguous edge")
	ErrDimensionMismatch = errors.New("circuit: dimension mismatch")
	ErrUnknownElement    = errors.New("circuit: unknown element name")
	ErrDuplicateElement  = errors.New("circuit: duplicate element")
	ErrInvalidElement    = errors.New("circuit: invalid element")
	ErrUnboundResistor   = errors.New("circuit: resistor not bound to a current slot")
)

// EdgeError reports a loop edge that could not be resolved to exactly one element.
type EdgeError struct {
	Loop     string
	From, To string
	Err      error
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("loop %s: edge %s->%s: %v", e.Loop, e.From, e.To, e.Err)
}

func (e *EdgeError) Unwrap() error { return e.Err }
