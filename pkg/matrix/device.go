package matrix

// LinearSystem receives the entries of J*dx = rhs. Indices are 1-based.
type LinearSystem interface {
	AddElement(i, j int, value float64)
	AddRHS(i int, value float64)
}
