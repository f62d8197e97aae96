// Copyright (c) 2026 mkhts. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.21
//

package golts

const (
	PI = 3.1415926535897932 // Pi

	MAD_FACTOR  = 1.4826 // Consistency factor for the median absolute value [N(0,1)]
	MEAN_FACTOR = 1.2533 // Consistency factor for the mean absolute value [N(0,1)]
)

// Tuning constants for the FAST-LTS search
const (
	NTRIAL        = 500    // Default number of trial subsets
	CSTEPS_TRIAL  = 4      // C-steps applied to every trial subset (first pass)
	CSTEPS_FINAL  = 100    // C-step cap for the refinement pool (small problems)
	POOL_SIZE     = 10     // Number of best trial fits kept for full refinement
	REW_QUANTILE  = 0.9875 // Normal quantile for the intermediate reweighting
	CUTOFF        = 2.5    // Default standardized-residual cutoff for outlier flags
	EXACT_FIT_EPS = 1e-7   // Raw scale below this means an exact fit
	RANK_TOL      = 1e-10  // Singular value tolerance for the rank check
)
