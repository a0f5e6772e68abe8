package solver

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/edp1096/resistor-network/internal/consts"
	"github.com/edp1096/resistor-network/pkg/matrix"
	"gonum.org/v1/gonum/floats"
)

// Func evaluates the residual vector at x. It must not keep x.
type Func func(x []float64) ([]float64, error)

type Options struct {
	Tolerance  float64 // Max-abs residual accepted as converged
	MaxIter    int
	Step       float64 // Relative finite-difference step
	MinDamping float64 // Smallest line search factor
	Logger     *log.Logger
}

func DefaultOptions() Options {
	return Options{
		Tolerance:  consts.TOLERANCE,
		MaxIter:    consts.MAX_ITER,
		Step:       consts.FD_STEP,
		MinDamping: consts.MIN_DAMPING,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.MaxIter <= 0 {
		o.MaxIter = d.MaxIter
	}
	if o.Step <= 0 {
		o.Step = d.Step
	}
	if o.MinDamping <= 0 || o.MinDamping > 1 {
		o.MinDamping = d.MinDamping
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	return o
}

type Result struct {
	X          []float64
	Converged  bool
	Residual   float64 // Max-abs residual at X
	Iterations int
}

// NewtonRaphson finds x with f(x) = 0 starting from x0. The Jacobian is built
// by central differences and each step is damped until the residual norm
// drops. On failure the last iterate is returned along with the error.
func NewtonRaphson(f Func, x0 []float64, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	n := len(x0)
	if n == 0 {
		return nil, fmt.Errorf("newton: empty initial guess")
	}

	x := append([]float64(nil), x0...)
	fx, err := evaluate(f, x)
	if err != nil {
		return nil, err
	}

	res := &Result{X: x, Residual: norm(fx)}

	for iter := 1; iter <= opts.MaxIter; iter++ {
		if res.Residual <= opts.Tolerance {
			res.Converged = true
			opts.Logger.Printf("newton: converged after %d iterations, residual %g", res.Iterations, res.Residual)
			return res, nil
		}

		dx, err := newtonStep(f, x, fx, opts.Step)
		if err != nil {
			var serr *SingularError
			if errors.As(err, &serr) {
				serr.Iteration = iter
			}
			return res, err
		}

		lambda := 1.0
		trial := make([]float64, n)
		var ft []float64
		for {
			floats.AddScaledTo(trial, x, lambda, dx)
			ft, err = evaluate(f, trial)
			if err != nil {
				return res, err
			}
			if norm(ft) < res.Residual || lambda/2 < opts.MinDamping {
				break
			}
			lambda /= 2
		}

		copy(x, trial)
		fx = ft
		res.Residual = norm(fx)
		res.Iterations = iter
		opts.Logger.Printf("newton: iter %d residual %g damping %g", iter, res.Residual, lambda)
	}

	if res.Residual <= opts.Tolerance {
		res.Converged = true
		return res, nil
	}

	return res, fmt.Errorf("%w after %d iterations, residual %g", ErrNonConvergence, opts.MaxIter, res.Residual)
}

// newtonStep solves J*dx = -F with J from central differences around x.
func newtonStep(f Func, x, fx []float64, step float64) ([]float64, error) {
	n := len(x)

	mat, err := matrix.NewMatrix(n)
	if err != nil {
		return nil, err
	}
	defer mat.Destroy()

	if err := loadJacobian(mat, f, x, step); err != nil {
		return nil, err
	}
	for i, v := range fx {
		mat.AddRHS(i+1, -v)
	}

	if err := mat.Solve(); err != nil {
		return nil, &SingularError{Err: err}
	}

	dx := mat.Solution()
	for _, v := range dx {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &SingularError{Err: fmt.Errorf("non-finite step")}
		}
	}
	return dx, nil
}

func loadJacobian(sys matrix.LinearSystem, f Func, x []float64, step float64) error {
	xp := make([]float64, len(x))
	xm := make([]float64, len(x))

	for j := range x {
		h := step * math.Max(1, math.Abs(x[j]))
		copy(xp, x)
		copy(xm, x)
		xp[j] += h
		xm[j] -= h
		width := xp[j] - xm[j] // exactly representable spacing

		fp, err := evaluate(f, xp)
		if err != nil {
			return err
		}
		fm, err := evaluate(f, xm)
		if err != nil {
			return err
		}

		for i := range fp {
			sys.AddElement(i+1, j+1, (fp[i]-fm[i])/width)
		}
	}
	return nil
}

func evaluate(f Func, x []float64) ([]float64, error) {
	fx, err := f(x)
	if err != nil {
		return nil, err
	}
	if len(fx) != len(x) {
		return nil, fmt.Errorf("newton: %d residuals for %d unknowns", len(fx), len(x))
	}
	for i, v := range fx {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("newton: residual %d is not finite", i)
		}
	}
	return fx, nil
}

func norm(v []float64) float64 {
	return floats.Norm(v, math.Inf(1))
}
