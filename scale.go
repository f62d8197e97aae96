// Copyright (c) 2026 mkhts. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.23
//

package golts

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Implements the subset-size rule and the scale correction factors of the
// FAST-LTS algorithm (Rousseeuw & Van Driessen, 2006). The finite-sample
// constants are the no-intercept tables of Pison, Van Aelst & Willems
// (2002).

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

func qnorm(p float64) float64 {
	return stdNormal.Quantile(p)
}

func dnorm(x float64) float64 {
	return stdNormal.Prob(x)
}

// hcalc returns the number of observations kept by each trimmed fit:
// h = floor(2q - n + 2(n - q)*alpha), q = floor((n+p+1)/2).
// alpha = 0.5 gives h = floor((n+p+1)/2), the maximum breakdown choice.
func hcalc(alpha float64, n, p int) int {
	q := (n + p + 1) / 2
	return int(math.Floor(float64(2*q-n) + 2*float64(n-q)*alpha))
}

// consFactorLts is the normal-consistency factor for a scale built from
// the m smallest of n squared residuals:
// 1/sqrt(1 - (2n/m)*qa*phi(qa)), qa = qnorm((m+n)/(2n)).
// Used for both the raw (m = h) and the reweighted (m = kept rows) scale.
func consFactorLts(m, n int) float64 {
	if m == n {
		return 1
	}
	qa := qnorm(float64(m+n) / (2 * float64(n)))
	return 1 / math.Sqrt(1-(2*float64(n)*qa/float64(m))*dnorm(qa))
}

// Fitted constants for the finite-sample correction, no-intercept case.
// Each row is {c0, c1, m} in fp = 1 + c0/p^c1 evaluated at n = m*p^2.
var (
	rawQpkwad500 = [2][3]float64{
		{-0.487338281979106, 0.405511279418594, 3},
		{-0.340762058011, 0.37972360544988, 5},
	}
	rawQpkwad875 = [2][3]float64{
		{-0.251778730491252, 0.883966931611758, 3},
		{-0.146660023184295, 0.86292940340761, 5},
	}
	rewQpkwad500 = [2][3]float64{
		{-0.791986711562199, 0.49616863657583, 3},
		{-0.483382223865593, 0.480163834781523, 5},
	}
	rewQpkwad875 = [2][3]float64{
		{-0.667663124630795, 0.758971289294299, 3},
		{-0.418979011930226, 0.789229024559524, 5},
	}
)

// fpFromTable fits fp(n) = 1 - exp(c0)/n^c1 through the two tabulated
// anchor points and evaluates it at n.
func fpFromTable(tab [2][3]float64, p, n int) float64 {

	pf := float64(p)
	y1 := math.Log(-tab[0][0] / math.Pow(pf, tab[0][1]))
	y2 := math.Log(-tab[1][0] / math.Pow(pf, tab[1][1]))
	a1 := math.Log(1 / (tab[0][2] * pf * pf))
	a2 := math.Log(1 / (tab[1][2] * pf * pf))

	c1 := (y1 - y2) / (a1 - a2)
	c0 := y1 - c1*a1

	return 1 - math.Exp(c0)/math.Pow(float64(n), c1)
}

// interpAlpha interpolates the correction between the fitted 0.5 and
// 0.875 anchors, then toward 1 (no correction) above 0.875.
func interpAlpha(fp500, fp875, alpha float64) float64 {
	if alpha <= 0.875 {
		return fp500 + (fp875-fp500)/0.375*(alpha-0.5)
	}
	return fp875 + (1-fp875)/0.125*(alpha-0.875)
}

// rawCorFactorLts returns the finite-sample correction for the raw
// trimmed scale.
func rawCorFactorLts(p, n int, alpha float64) float64 {

	var fp500, fp875 float64
	if p == 1 {
		fp500 = 1 - math.Exp(-0.0181777452315321)/math.Pow(float64(n), 0.697629772271099)
		fp875 = 1 - math.Exp(-0.310122738776431)/math.Pow(float64(n), 1.06241615923172)
	} else {
		fp500 = fpFromTable(rawQpkwad500, p, n)
		fp875 = fpFromTable(rawQpkwad875, p, n)
	}

	return 1 / interpAlpha(fp500, fp875, alpha)
}

// rewCorFactorLts returns the finite-sample correction for the
// reweighted scale.
func rewCorFactorLts(p, n int, alpha float64) float64 {

	var fp500, fp875 float64
	if p == 1 {
		fp500 = 1 - math.Exp(0.6329852387657)/math.Pow(float64(n), 1.40361879788014)
		fp875 = 1 - math.Exp(-0.642240988645469)/math.Pow(float64(n), 0.926325452943084)
	} else {
		fp500 = fpFromTable(rewQpkwad500, p, n)
		fp875 = fpFromTable(rewQpkwad875, p, n)
	}

	return 1 / interpAlpha(fp500, fp875, alpha)
}
