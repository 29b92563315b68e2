package refine

import (
	"gonum.org/v1/gonum/optimize"
)

// Minimizer searches for coefficients minimizing a derivative-free
// objective. Implementations must call objective serially.
type Minimizer interface {
	// Minimize starts at x and returns the best coefficients found.
	// initialRegion sets the starting search scale, finalRegion the
	// convergence threshold and maxEvals the budget of objective
	// evaluations. x is not modified.
	Minimize(objective func(x []float64) float64, x []float64, initialRegion, finalRegion float64, maxEvals int) ([]float64, error)
}

// NelderMead minimizes with the downhill simplex method from
// gonum/optimize. The initial simplex spans initialRegion around the
// start and the search stops once the objective improves by less than
// finalRegion between iterations.
type NelderMead struct{}

func (NelderMead) Minimize(objective func(x []float64) float64, x []float64, initialRegion, finalRegion float64, maxEvals int) ([]float64, error) {
	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   finalRegion,
			Iterations: maxEvals,
		},
	}
	method := &optimize.NelderMead{SimplexSize: initialRegion}

	x0 := make([]float64, len(x))
	copy(x0, x)
	result, err := optimize.Minimize(problem, x0, settings, method)
	if err != nil {
		return nil, err
	}
	return result.X, nil
}
