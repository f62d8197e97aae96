// Copyright (c) 2026 mkhts. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.24
//

// Implements robust least trimmed squares (LTS) regression via the
// FAST-LTS algorithm for plane-wave array processing.

package golts

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// CalcLts performs robust LTS regression on the travel-time problem
// y = X s and classifies outlying observations.
// It runs the two-phase FAST-LTS search (many cheap trial chains, full
// C-step refinement of the best few), converts the winning trimmed
// objective into a corrected robust scale, and reports a reweighted
// least squares fit over the non-outlier observations.
//
// Parameters:
//   - X: Design matrix, n x p (co-array coordinates for slowness problems)
//   - y: Observation vector, length n (inter-element travel times)
//   - opt: Calculation options. nil means NewLtsOpt() defaults
//
// Returns:
//   - LtsSol: Parameters, covariance, robust scale, and outlier flags
//   - error: Any error encountered during processing
func CalcLts(X *mat.Dense, y *mat.VecDense, opt *LtsOpt) (*LtsSol, error) {

	if opt == nil {
		opt = NewLtsOpt()
	}

	// Check the problem and the options before any computation
	n, p, h, err := validateProblem(X, y, opt)
	if err != nil {
		return nil, fmt.Errorf("validateProblem() failed, err=%v", err)
	}

	rslt := NewLtsSol()
	rslt.H = h

	// alpha = 1.0 disables trimming: plain least squares over all rows
	if opt.Alpha == 1.0 {
		if err := solveFullFit(X, y, n, p, rslt); err != nil {
			return nil, fmt.Errorf("solveFullFit() failed, err=%v", err)
		}
		finalizeSol(X, y, rslt)
		return rslt, nil
	}

	// Standardize columns so the search works on comparable magnitudes
	std, err := standardizeData(X, y, n, p)
	if err != nil {
		return nil, fmt.Errorf("standardizeData() failed, err=%v", err)
	}

	// Multi-start search for the minimum trimmed objective
	best, obj, err := searchBestFit(std, h, opt)
	if err != nil {
		return nil, fmt.Errorf("searchBestFit() failed, err=%v", err)
	}

	// Transform the winning fit back to the original units
	for j := 0; j < p; j++ {
		best[j] *= std.mad[p] / std.mad[j]
	}
	obj *= SQ(std.mad[p])
	rslt.RawCoeffs = best
	rslt.RawObj = obj

	// Scale, outlier flags, and the reported reweighted fit
	if err := classifyAndRefit(X, y, best, n, p, h, opt, rslt); err != nil {
		return nil, fmt.Errorf("classifyAndRefit() failed, err=%v", err)
	}

	finalizeSol(X, y, rslt)
	return rslt, nil
}

// stdData is one regression problem with standardized columns.
type stdData struct {
	X    *mat.Dense
	y    *mat.VecDense
	mad  []float64 // p+1 column scales, y last
	n, p int
	eps  float64 // Fixed-point tolerance for the C-step chains
}

// standardizeData scales each column of [X|y] by 1.4826 * median of the
// absolute values, as recommended in Rousseeuw & Leroy (1987). A column
// whose median spread vanishes falls back to 1.2533 * mean of the
// absolute values; if that vanishes too the problem is degenerate.
func standardizeData(X *mat.Dense, y *mat.VecDense, n, p int) (*stdData, error) {

	std := &stdData{
		X:   mat.NewDense(n, p, nil),
		y:   mat.NewVecDense(n, nil),
		mad: make([]float64, p+1),
		n:   n,
		p:   p,
	}

	switch {
	case p < 5:
		std.eps = 1e-12
	case p <= 18:
		std.eps = 1e-14
	default:
		std.eps = 1e-16
	}

	col := make([]float64, n)
	for j := 0; j <= p; j++ {
		for i := 0; i < n; i++ {
			if j < p {
				col[i] = X.At(i, j)
			} else {
				col[i] = y.AtVec(i)
			}
		}
		m := MAD_FACTOR * medianAbs(col)
		if math.Abs(m) <= std.eps {
			s := 0.0
			for _, v := range col {
				s += math.Abs(v)
			}
			m = MEAN_FACTOR * s / float64(n)
		}
		if math.Abs(m) <= std.eps {
			return nil, fmt.Errorf("column %d has zero spread", j)
		}
		std.mad[j] = m
		for i := 0; i < n; i++ {
			if j < p {
				std.X.Set(i, j, col[i]/m)
			} else {
				std.y.SetVec(i, col[i]/m)
			}
		}
	}

	return std, nil
}

// chainRes is the outcome of one subset -> C-step chain.
type chainRes struct {
	z    []float64
	obj  float64
	ok   bool
	conv bool
}

// searchBestFit runs the two-phase FAST-LTS search on the standardized
// problem and returns the best trimmed fit and its objective.
// Phase 1 C-steps every trial subset a fixed small number of times and
// keeps only the best few by objective; phase 2 C-steps that pool to
// full convergence. Chains are independent, so each phase runs as a
// parallel map with a barrier before the pool selection.
func searchBestFit(std *stdData, h int, opt *LtsOpt) ([]float64, float64, error) {

	// Draw the starting subsets and fit them.
	// Draws stay sequential so a fixed seed reproduces the same starts.
	sampler := NewSampler(std.n, std.p, opt.NTrial, opt.Seed)
	z0s := make([][]float64, 0, opt.NTrial)
	bad := 0
	for draws := 0; len(z0s) < opt.NTrial && draws < opt.NTrial*100; draws++ {
		idx := sampler.Draw()
		if idx == nil {
			break // Exhaustive sampler produced every subset
		}
		z0, err := fitRows(std.X, std.y, idx)
		if err != nil {
			if errors.Is(err, ErrRankDeficient) {
				bad++ // Degenerate subset: discard, draw another
				continue
			}
			return nil, 0, err
		}
		z0s = append(z0s, z0)
	}
	PrintD(2, "\tstarts: %d, degenerate draws: %d\n", len(z0s), bad)
	if len(z0s) == 0 {
		return nil, 0, fmt.Errorf("all candidate subsets are rank deficient")
	}

	// Phase 1: a few C-steps per chain
	cands := make([]chainRes, len(z0s))
	runParallel(len(z0s), opt.Workers, func(i int) {
		z, obj, _, err := runChain(std.X, std.y, z0s[i], h, CSTEPS_TRIAL, std.eps)
		if err != nil {
			return // Chain degenerated, drop it
		}
		cands[i] = chainRes{z: z, obj: obj, ok: true}
	})

	// Keep the best pool by objective; ties keep start order
	pool := make([]int, 0, len(cands))
	for i := range cands {
		if cands[i].ok {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		return nil, 0, fmt.Errorf("every trial chain degenerated")
	}
	sort.SliceStable(pool, func(a, b int) bool {
		return cands[pool[a]].obj < cands[pool[b]].obj
	})
	nref := POOL_SIZE
	if std.n > 5000 {
		nref = 1
	}
	if len(pool) > nref {
		pool = pool[:nref]
	}

	// Phase 2: C-step cap, reduced for large problems to bound work
	csteps := cstepSchedule(std.n, std.p)

	finals := make([]chainRes, len(pool))
	runParallel(len(pool), opt.Workers, func(k int) {
		z, obj, conv, err := runChain(std.X, std.y, cands[pool[k]].z, h, csteps, std.eps)
		if err != nil {
			return
		}
		finals[k] = chainRes{z: z, obj: obj, ok: true, conv: conv}
	})

	// Under the full cap a chain must reach its fixed point to qualify.
	// A reduced cap only bounds work, so the best objective reached stands
	best := bestChain(finals, csteps == CSTEPS_FINAL)
	if best < 0 {
		for k := range finals {
			if finals[k].ok {
				return nil, 0, fmt.Errorf("no refinement chain converged")
			}
		}
		return nil, 0, fmt.Errorf("every refinement chain degenerated")
	}

	PrintD(2, "\tbest objective: %g (pool of %d)\n", finals[best].obj, len(pool))
	return finals[best].z, finals[best].obj, nil
}

// cstepSchedule returns the phase-2 C-step cap for an n x p problem.
// Very large problems get a hard-bounded refinement instead of iteration
// to the fixed point.
func cstepSchedule(n, p int) int {
	np := n * p
	switch {
	case np > 1000000:
		return 1
	case np > 100000:
		return 12 - int(math.Ceil(float64(np)/100000))
	default:
		return CSTEPS_FINAL
	}
}

// bestChain picks the lowest-objective usable chain, or -1 if none
// qualifies. With requireConv set, chains that never reached the C-step
// fixed point are excluded; without it (a schedule-reduced cap) the best
// objective reached is accepted as is.
func bestChain(finals []chainRes, requireConv bool) int {
	best := -1
	for k := range finals {
		if !finals[k].ok {
			continue
		}
		if requireConv && !finals[k].conv {
			continue
		}
		if best < 0 || finals[k].obj < finals[best].obj {
			best = k
		}
	}
	return best
}

// classifyAndRefit converts the best trimmed fit into the reported
// result: raw scale with consistency and finite-sample corrections,
// intermediate reweighting, final least squares refit over the kept
// rows, and the outlier flags at the configured cutoff.
func classifyAndRefit(X *mat.Dense, y *mat.VecDense, z []float64, n, p, h int, opt *LtsOpt, rslt *LtsSol) error {

	res := residAll(X, y, z)
	s0 := math.Sqrt(trimmedSumSq(res, h) / float64(h))
	s0 *= rawCorFactorLts(p, n, opt.Alpha) * consFactorLts(h, n)
	rslt.RawScale = s0

	// Exact fit: the trimmed subset lies on the model plane
	if math.Abs(s0) < EXACT_FIT_EPS {
		PrintD(1, "\texact fit found\n")
		rslt.Coeffs = z
		rslt.Scale = 0
		rslt.Residuals = res
		rslt.Outlier = make([]bool, n)
		for i := range res {
			rslt.Outlier[i] = math.Abs(res[i]) >= EXACT_FIT_EPS
			if !rslt.Outlier[i] {
				rslt.NUsed++
			}
		}
		rslt.Cov = mat.NewDense(p, p, nil)
		return nil
	}

	// Intermediate reweighting at the 0.9875 normal quantile
	q := qnorm(REW_QUANTILE)
	keep := make([]int, 0, n)
	for i := range res {
		if math.Abs(res[i]/s0) <= q {
			keep = append(keep, i)
		}
	}
	if len(keep) <= p {
		return fmt.Errorf("not enough inliers for the final refit: %d <= %d", len(keep), p)
	}

	// Final refit over the kept rows (hard-rejection weights)
	G := mat.NewDense(len(keep), p, nil)
	dr := mat.NewVecDense(len(keep), nil)
	w := make([]float64, len(keep))
	for i, r := range keep {
		for j := 0; j < p; j++ {
			G.Set(i, j, X.At(r, j))
		}
		dr.SetVec(i, y.AtVec(r))
		w[i] = 1
	}
	dx, cov, err := SolveLS(G, dr, mat.NewDiagDense(len(keep), w))
	if err != nil {
		return fmt.Errorf("final refit failed, err=%v", err)
	}
	zf := make([]float64, p)
	for j := 0; j < p; j++ {
		zf[j] = dx.AtVec(j)
	}

	// Reweighted scale with its own correction factors
	res2 := residAll(X, y, zf)
	ss := 0.0
	for _, i := range keep {
		ss += SQ(res2[i])
	}
	scale := math.Sqrt(ss / float64(len(keep)-1))
	scale *= rewCorFactorLts(p, n, opt.Alpha) * consFactorLts(len(keep), n)

	// Outlier flags at the configured cutoff
	rslt.Outlier = make([]bool, n)
	for i := range res2 {
		rslt.Outlier[i] = math.Abs(res2[i]/scale) > opt.Cutoff
		if !rslt.Outlier[i] {
			rslt.NUsed++
		}
	}

	// Formal covariance from the refit residual variance
	sig2 := ss / float64(len(keep)-p)
	covd := mat.NewDense(p, p, nil)
	covd.Scale(sig2, cov)

	rslt.Coeffs = zf
	rslt.Scale = scale
	rslt.Residuals = res2
	rslt.Cov = covd

	return nil
}

// solveFullFit is the alpha = 1.0 path: one ordinary least squares fit
// over every observation, no trimming and no outlier search.
func solveFullFit(X *mat.Dense, y *mat.VecDense, n, p int, rslt *LtsSol) error {

	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	dx, cov, err := SolveLS(X, y, mat.NewDiagDense(n, w))
	if err != nil {
		return err
	}

	zf := make([]float64, p)
	for j := 0; j < p; j++ {
		zf[j] = dx.AtVec(j)
	}
	res := residAll(X, y, zf)
	ss := 0.0
	for _, r := range res {
		ss += SQ(r)
	}
	sig2 := ss / float64(n-p)

	covd := mat.NewDense(p, p, nil)
	covd.Scale(sig2, cov)

	rslt.Coeffs = zf
	rslt.Cov = covd
	rslt.Scale = math.Sqrt(sig2)
	rslt.Residuals = res
	rslt.Outlier = make([]bool, n)
	rslt.NUsed = n
	rslt.RawCoeffs = zf
	rslt.RawObj = ss
	rslt.RawScale = rslt.Scale

	return nil
}

// finalizeSol fills the derived outputs: fitted values, R^2 of the
// trimmed fit, and the wave parameters for the 2-unknown slowness case.
func finalizeSol(X *mat.Dense, y *mat.VecDense, rslt *LtsSol) {

	n, p := X.Dims()

	rslt.Fitted = make([]float64, n)
	for i := 0; i < n; i++ {
		rslt.Fitted[i] = y.AtVec(i) - rslt.Residuals[i]
	}

	// R^2 against the h smallest squared observations, clamped to [0, 1].
	// When the trimmed observations carry no energy at all (sh = 0) there
	// is nothing to explain and R^2 is reported as 1 by convention.
	yv := make([]float64, n)
	for i := 0; i < n; i++ {
		yv[i] = y.AtVec(i)
	}
	s1 := trimmedSumSq(rslt.Residuals, rslt.H)
	sh := trimmedSumSq(yv, rslt.H)
	r2 := 1.0
	if sh > 0 {
		r2 = 1 - s1/sh
	}
	rslt.Rsquared = math.Min(1, math.Max(0, r2))

	if p == 2 {
		rslt.Velocity = SlownessToVel(rslt.Coeffs[0], rslt.Coeffs[1])
		rslt.Bazimuth = SlownessToBaz(rslt.Coeffs[0], rslt.Coeffs[1])
	} else {
		rslt.Velocity = math.NaN()
		rslt.Bazimuth = math.NaN()
	}
}

// runParallel maps fn over 0..n-1 with a bounded worker pool and waits
// for every call to finish.
func runParallel(n, workers int, fn func(int)) {

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	ch := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ch {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		ch <- i
	}
	close(ch)
	wg.Wait()
}
