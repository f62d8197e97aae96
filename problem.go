// Copyright (c) 2026 mkhts. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.22
//

package golts

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrRankDeficient is returned when a (sub)system of observation equations
// does not determine all unknowns. For a trial subset this is recoverable
// (the subset is skipped); for the final refit it is fatal.
var ErrRankDeficient = errors.New("rank deficient system")

// LtsOpt contains options and parameters for the robust LTS regression.
// These parameters control the trimming level, the multi-start search,
// and the outlier classification threshold.
type LtsOpt struct {
	Alpha   float64 // Trim fraction in [0.5, 1.0]. 1.0 disables trimming (plain least squares)
	NTrial  int     // Number of trial subsets for the multi-start search
	Cutoff  float64 // Standardized-residual cutoff for the final outlier flags
	Seed    int64   // Seed for the trial subset draws. Same seed, same result
	Workers int     // Number of parallel chains. 0 means GOMAXPROCS
}

// NewLtsOpt creates a new LtsOpt with default values
func NewLtsOpt() *LtsOpt {
	return &LtsOpt{
		Alpha:   0.5,    // Maximum breakdown point
		NTrial:  NTRIAL, // Trial subsets
		Cutoff:  CUTOFF, // Robust-statistics convention
		Seed:    0,      // Fixed seed by default (reproducible runs)
		Workers: 0,      // Use all CPUs
	}
}

// LtsSol contains the results of the robust LTS regression.
// Coeffs/Scale/Outlier/Cov come from the reweighted final fit; the Raw*
// fields keep the trimmed fit that the search itself produced.
type LtsSol struct {
	Coeffs    []float64  // Estimated parameters (slowness components for array problems)
	Cov       *mat.Dense // Formal covariance of Coeffs from the final refit (p x p)
	Scale     float64    // Robust residual scale estimate
	Outlier   []bool     // Per-observation outlier flags (true = discounted)
	Residuals []float64  // Residuals under Coeffs, all n observations
	Fitted    []float64  // Fitted values under Coeffs
	Rsquared  float64    // R^2 of the trimmed fit, clamped to [0, 1]
	Velocity  float64    // Apparent velocity 1/|s| (p = 2 only, else NaN)
	Bazimuth  float64    // Back-azimuth [deg CW from North] (p = 2 only, else NaN)
	RawCoeffs []float64  // Parameters of the best trimmed fit (before reweighting)
	RawScale  float64    // Consistency-corrected scale of the best trimmed fit
	RawObj    float64    // Trimmed objective of the best fit (sum of h smallest squared residuals)
	H         int        // Observations kept by each trimmed fit
	NUsed     int        // Observations kept by the final refit
}

// NewLtsSol creates a new empty LtsSol structure
func NewLtsSol() *LtsSol {
	return &LtsSol{
		Coeffs:    []float64{},
		Cov:       nil,
		Scale:     0,
		Outlier:   []bool{},
		Residuals: []float64{},
		Fitted:    []float64{},
		Rsquared:  0,
		RawCoeffs: []float64{},
		RawScale:  0,
		RawObj:    0,
		H:         0,
		NUsed:     0,
	}
}

// validateProblem checks the regression problem and options before any
// computation. Configuration errors are reported here, never later.
func validateProblem(X *mat.Dense, y *mat.VecDense, opt *LtsOpt) (n, p, h int, err error) {

	if X == nil || y == nil {
		return 0, 0, 0, fmt.Errorf("nil design matrix or observation vector")
	}

	n, p = X.Dims()
	if y.Len() != n {
		return 0, 0, 0, fmt.Errorf("invalid matrix size. X(%d x %d), y(%d x 1)", n, p, y.Len())
	}
	if p < 1 {
		return 0, 0, 0, fmt.Errorf("no unknowns: p=%d", p)
	}

	// The trimmed fit must stay over-determined (n > 2p per the reference algorithm)
	if n <= 2*p {
		return 0, 0, 0, fmt.Errorf("not enough observations: n=%d <= 2p=%d", n, 2*p)
	}

	if opt.Alpha < 0.5 || opt.Alpha > 1.0 {
		return 0, 0, 0, fmt.Errorf("alpha out of range [0.5, 1.0]: %f", opt.Alpha)
	}
	if opt.NTrial < 1 {
		return 0, 0, 0, fmt.Errorf("invalid number of trials: %d", opt.NTrial)
	}
	if opt.Cutoff <= 0 {
		return 0, 0, 0, fmt.Errorf("invalid outlier cutoff: %f", opt.Cutoff)
	}

	h = hcalc(opt.Alpha, n, p)
	if h <= p || h > n {
		return 0, 0, 0, fmt.Errorf("invalid subset size h=%d for n=%d, p=%d", h, n, p)
	}

	return n, p, h, nil
}
