package consts

const (
	TOLERANCE     = 1e-8 // Max-abs residual accepted as converged (V or A)
	MAX_ITER      = 100  // Newton iteration cap
	INITIAL_GUESS = 0.1  // Default current for every unknown slot (A)
	FD_STEP       = 6e-6 // Central difference scale, about cbrt(machine epsilon)
	MIN_DAMPING   = 1.0 / 1024
	PIVOT_TOL     = 1e-13 // Relative pivot magnitude treated as zero
)
