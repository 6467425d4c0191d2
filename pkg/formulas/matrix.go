package formulas

import (
	"fmt"
	"math"
)

// singularPivotThreshold is the pivot magnitude below which a Gauss-Jordan
// elimination is treated as singular and retried with ridge regularization.
const singularPivotThreshold = 1e-10

// Transpose returns the transpose of a rectangular matrix.
func Transpose(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return [][]float64{}
	}

	rows, cols := len(m), len(m[0])
	out := make([][]float64, cols)
	for j := 0; j < cols; j++ {
		out[j] = make([]float64, rows)
		for i := 0; i < rows; i++ {
			out[j][i] = m[i][j]
		}
	}
	return out
}

// Multiply returns the matrix product a*b.
func Multiply(a, b [][]float64) ([][]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, fmt.Errorf("empty matrix operand")
	}
	inner := len(a[0])
	if inner != len(b) {
		return nil, fmt.Errorf("dimension mismatch: %dx%d * %dx%d", len(a), inner, len(b), len(b[0]))
	}

	rows, cols := len(a), len(b[0])
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for k := 0; k < inner; k++ {
			aik := a[i][k]
			if aik == 0 {
				continue
			}
			for j := 0; j < cols; j++ {
				out[i][j] += aik * b[k][j]
			}
		}
	}
	return out, nil
}

// MulVec returns the matrix-vector product m*x.
func MulVec(m [][]float64, x []float64) ([]float64, error) {
	if len(m) == 0 {
		return nil, fmt.Errorf("empty matrix operand")
	}
	if len(m[0]) != len(x) {
		return nil, fmt.Errorf("dimension mismatch: %dx%d * %d", len(m), len(m[0]), len(x))
	}

	out := make([]float64, len(m))
	for i, row := range m {
		s := 0.0
		for j, v := range row {
			s += v * x[j]
		}
		out[i] = s
	}
	return out, nil
}

// QuadraticForm computes x' * m * x for a square matrix m.
func QuadraticForm(x []float64, m [][]float64) float64 {
	total := 0.0
	for i := range x {
		for j := range x {
			total += x[i] * m[i][j] * x[j]
		}
	}
	return total
}

// Inverse inverts a square matrix via Gauss-Jordan elimination with partial
// pivoting. When a pivot falls below the singularity threshold, the solve is
// retried once with a small ridge term added to the diagonal; the returned
// degenerate flag is true in that case so callers can surface the reduced
// solution quality instead of trusting it silently.
func Inverse(m [][]float64) ([][]float64, bool, error) {
	n := len(m)
	if n == 0 {
		return nil, false, fmt.Errorf("empty matrix")
	}
	for i := range m {
		if len(m[i]) != n {
			return nil, false, fmt.Errorf("matrix is not square: row %d has %d columns, expected %d", i, len(m[i]), n)
		}
	}

	inv, err := gaussJordanInverse(m)
	if err == nil {
		return inv, false, nil
	}

	// Ridge retry: shift the diagonal by a fraction of the average diagonal
	// magnitude, falling back to an absolute floor for zero-trace matrices.
	trace := 0.0
	for i := 0; i < n; i++ {
		trace += math.Abs(m[i][i])
	}
	ridge := 1e-8 * trace / float64(n)
	if ridge <= 0 {
		ridge = 1e-8
	}

	regularized := make([][]float64, n)
	for i := 0; i < n; i++ {
		regularized[i] = make([]float64, n)
		copy(regularized[i], m[i])
		regularized[i][i] += ridge
	}

	inv, err = gaussJordanInverse(regularized)
	if err != nil {
		return nil, true, fmt.Errorf("matrix is singular even after ridge regularization: %w", err)
	}
	return inv, true, nil
}

// gaussJordanInverse performs the raw elimination and fails on tiny pivots.
func gaussJordanInverse(m [][]float64) ([][]float64, error) {
	n := len(m)

	// Augmented matrix [m | I].
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], m[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		// Partial pivoting: pick the row with the largest magnitude in col.
		pivotRow := col
		for r := col + 1; r < n; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivotRow][col]) {
				pivotRow = r
			}
		}
		if math.Abs(aug[pivotRow][col]) < singularPivotThreshold {
			return nil, fmt.Errorf("pivot %g below threshold at column %d", aug[pivotRow][col], col)
		}
		aug[col], aug[pivotRow] = aug[pivotRow], aug[col]

		pivot := aug[col][col]
		for j := 0; j < 2*n; j++ {
			aug[col][j] /= pivot
		}

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			if factor == 0 {
				continue
			}
			for j := 0; j < 2*n; j++ {
				aug[r][j] -= factor * aug[col][j]
			}
		}
	}

	inv := make([][]float64, n)
	for i := 0; i < n; i++ {
		inv[i] = make([]float64, n)
		copy(inv[i], aug[i][n:])
	}
	return inv, nil
}
