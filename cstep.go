// Copyright (c) 2026 mkhts. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.23
//

package golts

import (
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// residAll computes y - X z over the full observation set.
func residAll(X *mat.Dense, y *mat.VecDense, z []float64) []float64 {
	n, p := X.Dims()
	res := make([]float64, n)
	for i := 0; i < n; i++ {
		fit := 0.0
		for j := 0; j < p; j++ {
			fit += X.At(i, j) * z[j]
		}
		res[i] = y.AtVec(i) - fit
	}
	return res
}

// cStep performs one concentration step: keep the h observations with the
// smallest absolute residuals under z, refit least squares on exactly that
// subset, and return the new fit with its trimmed objective (sum of the h
// smallest squared residuals under the NEW fit).
func cStep(X *mat.Dense, y *mat.VecDense, z []float64, h int) (zNew []float64, obj float64, err error) {

	res := residAll(X, y, z)
	keep := argsortAbs(res)[:h]
	slices.Sort(keep)

	zNew, err = fitRows(X, y, keep)
	if err != nil {
		return nil, 0, err
	}

	obj = trimmedSumSq(residAll(X, y, zNew), h)
	return zNew, obj, nil
}

// runChain iterates C-steps from the starting fit z0 until the trimmed
// objective stops decreasing (within eps) or csteps iterations are done.
// The objective sequence is non-increasing, so non-decrease is the fixed
// point; the cap only guards against numerical-noise cycling.
func runChain(X *mat.Dense, y *mat.VecDense, z0 []float64, h, csteps int, eps float64) (z []float64, obj float64, converged bool, err error) {

	z = z0
	prevObj := math.Inf(1)

	for j := 0; j < csteps; j++ {
		z, obj, err = cStep(X, y, z, h)
		if err != nil {
			return nil, 0, false, err
		}
		if j >= 1 && prevObj-obj <= eps {
			converged = true
			break
		}
		prevObj = obj
	}

	return z, obj, converged, nil
}
