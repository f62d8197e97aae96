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
)

func TestHcalc(t *testing.T) {
	// alpha = 0.5 gives the maximum breakdown choice floor((n+p+1)/2)
	assert.Equal(t, 11, hcalc(0.5, 20, 2))
	assert.Equal(t, 6, hcalc(0.5, 10, 2))

	// n=20, p=2, alpha=0.75 keeps 15
	assert.Equal(t, 15, hcalc(0.75, 20, 2))

	// alpha = 1.0 keeps everything
	assert.Equal(t, 20, hcalc(1.0, 20, 2))
	assert.Equal(t, 55, hcalc(1.0, 55, 3))
}

func TestConsFactorLts(t *testing.T) {
	// No trimming, no correction
	assert.Equal(t, 1.0, consFactorLts(20, 20))

	// Half trimming approaches the classical LTS consistency constant 2.6477
	assert.InDelta(t, 2.6477, consFactorLts(500, 1000), 0.01)

	// 75% subsets approach 1.6489
	assert.InDelta(t, 1.6489, consFactorLts(750, 1000), 0.01)

	// Less trimming, smaller correction
	assert.Less(t, consFactorLts(900, 1000), consFactorLts(700, 1000))
	assert.Greater(t, consFactorLts(900, 1000), 1.0)
}

func TestNormalHelpers(t *testing.T) {
	// The 0.9875 reweighting quantile
	assert.InDelta(t, 2.2414, qnorm(REW_QUANTILE), 1e-3)
	assert.InDelta(t, 0.67449, qnorm(0.75), 1e-4)
	assert.InDelta(t, 0.39894, dnorm(0), 1e-5)
}

func TestCorFactors(t *testing.T) {
	// Finite-sample corrections inflate the scale, more so for small n
	for _, n := range []int{20, 50, 200} {
		for _, alpha := range []float64{0.5, 0.75, 0.875, 0.95} {
			raw := rawCorFactorLts(2, n, alpha)
			rew := rewCorFactorLts(2, n, alpha)
			assert.Greater(t, raw, 1.0, "raw n=%d alpha=%v", n, alpha)
			assert.Greater(t, rew, 1.0, "rew n=%d alpha=%v", n, alpha)
			assert.Less(t, raw, 2.0, "raw n=%d alpha=%v", n, alpha)
			assert.Less(t, rew, 2.5, "rew n=%d alpha=%v", n, alpha)
		}
	}

	// The correction vanishes for large samples
	assert.InDelta(t, 1.0, rawCorFactorLts(2, 1000000, 0.5), 0.01)
	assert.InDelta(t, 1.0, rewCorFactorLts(2, 1000000, 0.5), 0.01)

	// Smaller n needs a larger correction
	assert.Greater(t, rawCorFactorLts(2, 20, 0.5), rawCorFactorLts(2, 200, 0.5))
	assert.Greater(t, rewCorFactorLts(2, 20, 0.5), rewCorFactorLts(2, 200, 0.5))

	// p = 1 uses its own fitted constants
	assert.Greater(t, rawCorFactorLts(1, 20, 0.5), 1.0)
	assert.Greater(t, rewCorFactorLts(1, 20, 0.5), 1.0)
	assert.InDelta(t, 1.0, rawCorFactorLts(1, 1000000, 0.5), 0.01)
}
