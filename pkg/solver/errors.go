package solver

import (
	"errors"
	"fmt"
)

var (
	ErrSingularSystem = errors.New("solver: singular jacobian")
	ErrNonConvergence = errors.New("solver: no convergence")
)

// SingularError reports the Newton iteration at which the Jacobian could not
// be solved.
type SingularError struct {
	Iteration int
	Err       error
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("%v at iteration %d: %v", ErrSingularSystem, e.Iteration, e.Err)
}

func (e *SingularError) Is(target error) bool { return target == ErrSingularSystem }

func (e *SingularError) Unwrap() error { return e.Err }
