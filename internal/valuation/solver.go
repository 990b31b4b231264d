package valuation

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoConvergence is returned when a minimizer exhausts its iteration
// budget without shrinking below tolerance.
var ErrNoConvergence = errors.New("did not converge")

// Numerical solvers used by the reverse DCF engine. Both are deliberately
// small, domain-local implementations: a bounded golden-section scalar
// minimizer and a Nelder-Mead simplex for the two-variable solve.

const (
	// goldenTol is the interval width at which the scalar search stops.
	goldenTol     = 1e-7
	goldenMaxIter = 200

	// invPhi is 1/φ, the golden-section interval reduction factor.
	invPhi = 0.6180339887498949

	simplexTol     = 1e-10
	simplexMaxIter = 800
)

// minimizeScalar finds the minimum of f over [lo, hi] by golden-section
// search. f must be unimodal on the interval for an exact answer; for a
// well-behaved objective the method reduces the bracket by 1/φ per step.
// Returns the minimizing x, the iteration count, and a non-convergence
// error when the bracket fails to shrink below tolerance within budget.
func minimizeScalar(f func(float64) float64, lo, hi float64) (float64, int, error) {
	if hi <= lo {
		return 0, 0, fmt.Errorf("minimizeScalar: invalid bracket [%v, %v]", lo, hi)
	}

	a, b := lo, hi
	x1 := b - invPhi*(b-a)
	x2 := a + invPhi*(b-a)
	f1 := f(x1)
	f2 := f(x2)

	for iter := 1; iter <= goldenMaxIter; iter++ {
		if f1 < f2 {
			b = x2
			x2, f2 = x1, f1
			x1 = b - invPhi*(b-a)
			f1 = f(x1)
		} else {
			a = x1
			x1, f1 = x2, f2
			x2 = a + invPhi*(b-a)
			f2 = f(x2)
		}
		if b-a < goldenTol {
			return (a + b) / 2, iter, nil
		}
	}

	return 0, goldenMaxIter, fmt.Errorf("minimizeScalar: %w after %d iterations", ErrNoConvergence, goldenMaxIter)
}

// minimizeSimplex minimizes f from the given start point using the
// Nelder-Mead downhill simplex. step sets the initial simplex edge length
// per dimension. Bounds are the caller's problem; the reverse engine bakes
// an out-of-bounds penalty into its objective.
func minimizeSimplex(f func([]float64) float64, start []float64, step []float64) ([]float64, int, error) {
	n := len(start)
	if n == 0 {
		return nil, 0, fmt.Errorf("minimizeSimplex: empty start point")
	}
	if len(step) != n {
		return nil, 0, fmt.Errorf("minimizeSimplex: step length %d != dimension %d", len(step), n)
	}

	// Standard coefficients: reflection, expansion, contraction, shrink.
	const alpha, gamma, rho, sigma = 1.0, 2.0, 0.5, 0.5

	// Initial simplex: start plus one vertex displaced along each axis.
	pts := make([][]float64, n+1)
	vals := make([]float64, n+1)
	for i := range pts {
		p := make([]float64, n)
		copy(p, start)
		if i > 0 {
			p[i-1] += step[i-1]
		}
		pts[i] = p
		vals[i] = f(p)
	}

	centroid := make([]float64, n)
	trial := make([]float64, n)

	for iter := 1; iter <= simplexMaxIter; iter++ {
		// Order vertices best → worst (n+1 points; insertion sort is enough).
		for i := 1; i <= n; i++ {
			for j := i; j > 0 && vals[j] < vals[j-1]; j-- {
				vals[j], vals[j-1] = vals[j-1], vals[j]
				pts[j], pts[j-1] = pts[j-1], pts[j]
			}
		}

		// Converged when the value spread across the simplex is negligible
		// at the objective's scale. Objectives are expected to be
		// normalized to O(1); the +1 keeps the test meaningful near zero.
		if math.Abs(vals[n]-vals[0]) < simplexTol*(math.Abs(vals[0])+1) {
			return pts[0], iter, nil
		}

		// Centroid of all but the worst vertex.
		for j := 0; j < n; j++ {
			centroid[j] = 0
			for i := 0; i < n; i++ {
				centroid[j] += pts[i][j]
			}
			centroid[j] /= float64(n)
		}

		// Reflect.
		for j := 0; j < n; j++ {
			trial[j] = centroid[j] + alpha*(centroid[j]-pts[n][j])
		}
		fr := f(trial)

		switch {
		case fr < vals[0]:
			// Expand.
			expanded := make([]float64, n)
			for j := 0; j < n; j++ {
				expanded[j] = centroid[j] + gamma*(trial[j]-centroid[j])
			}
			if fe := f(expanded); fe < fr {
				copy(pts[n], expanded)
				vals[n] = fe
			} else {
				copy(pts[n], trial)
				vals[n] = fr
			}
		case fr < vals[n-1]:
			copy(pts[n], trial)
			vals[n] = fr
		default:
			// Contract toward the better of worst/reflected.
			worst := pts[n]
			fw := vals[n]
			if fr < fw {
				worst = trial
				fw = fr
			}
			contracted := make([]float64, n)
			for j := 0; j < n; j++ {
				contracted[j] = centroid[j] + rho*(worst[j]-centroid[j])
			}
			if fc := f(contracted); fc < fw {
				copy(pts[n], contracted)
				vals[n] = fc
			} else {
				// Shrink everything toward the best vertex.
				for i := 1; i <= n; i++ {
					for j := 0; j < n; j++ {
						pts[i][j] = pts[0][j] + sigma*(pts[i][j]-pts[0][j])
					}
					vals[i] = f(pts[i])
				}
			}
		}
	}

	return nil, simplexMaxIter, fmt.Errorf("minimizeSimplex: %w after %d iterations", ErrNoConvergence, simplexMaxIter)
}

// objectiveScale normalizes a squared-difference objective to O(1) so the
// solvers' convergence tests work regardless of the target's magnitude.
func objectiveScale(target float64) float64 {
	s := math.Abs(target)
	if s < 1 {
		return 1
	}
	return s
}

func clampRate(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
