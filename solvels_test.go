// Copyright (c) 2026 mkhts. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.24
//

package golts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func eye(n int) *mat.DiagDense {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return mat.NewDiagDense(n, w)
}

func TestSolveLSExact(t *testing.T) {
	// y = 2*x1 - 3*x2, four consistent equations
	G := mat.NewDense(4, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
		2, -1,
	})
	dr := mat.NewVecDense(4, []float64{2, -3, -1, 7})

	dx, cov, err := SolveLS(G, dr, eye(4))
	require.NoError(t, err)
	assert.InDelta(t, 2, dx.AtVec(0), 1e-10)
	assert.InDelta(t, -3, dx.AtVec(1), 1e-10)

	// Covariance is (G^T G)^-1: symmetric positive diagonal
	r, c := cov.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 2, c)
	assert.InDelta(t, cov.At(0, 1), cov.At(1, 0), 1e-12)
	assert.Greater(t, cov.At(0, 0), 0.0)
	assert.Greater(t, cov.At(1, 1), 0.0)
}

func TestSolveLSWeighted(t *testing.T) {
	// Conflicting equations: the heavy weight wins
	G := mat.NewDense(3, 1, []float64{1, 1, 1})
	dr := mat.NewVecDense(3, []float64{1, 1, 4})

	W := mat.NewDiagDense(3, []float64{1, 1, 1e6})
	dx, _, err := SolveLS(G, dr, W)
	require.NoError(t, err)
	assert.InDelta(t, 4, dx.AtVec(0), 1e-2)
}

func TestSolveLSRankDeficient(t *testing.T) {
	// Second column is twice the first
	G := mat.NewDense(4, 2, []float64{
		1, 2,
		2, 4,
		3, 6,
		-1, -2,
	})
	dr := mat.NewVecDense(4, []float64{1, 2, 3, -1})

	_, _, err := SolveLS(G, dr, eye(4))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRankDeficient)
}

func TestSolveLSDimsMismatch(t *testing.T) {
	G := mat.NewDense(4, 2, nil)
	dr := mat.NewVecDense(4, nil)
	_, _, err := SolveLS(G, dr, eye(3))
	assert.Error(t, err)
}

func TestFitRows(t *testing.T) {
	// Full data is corrupted, the chosen rows are clean
	X := mat.NewDense(5, 2, []float64{
		1, 1,
		2, -1,
		1, 0,
		0, 1,
		3, 3,
	})
	y := mat.NewVecDense(5, []float64{0, 0, 1, -1, 999})
	// Rows 2, 3: x1 - x2
	z, err := fitRows(X, y, []int{2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1, z[0], 1e-10)
	assert.InDelta(t, -1, z[1], 1e-10)

	// Too few rows
	_, err = fitRows(X, y, []int{2})
	assert.Error(t, err)
}

func TestMatrixRank(t *testing.T) {
	full := mat.NewDense(2, 2, []float64{2, 0, 0, 3})
	assert.Equal(t, 2, matrixRank(full, RANK_TOL))

	sing := mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	assert.Equal(t, 1, matrixRank(sing, RANK_TOL))
}
