// Copyright (c) 2026 mkhts. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.24
//

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	m "github.com/mkhts/golts"
)

func main() {

	// Parse command line arguments
	args, err := parseArgs()
	if err != nil {
		flag.Usage()
		os.Exit(1)
	}

	// Run the main application
	if err := runApplication(args); err != nil {
		m.PrintE(err)
		os.Exit(1)
	}
}

// Command line options
type cmdOpt struct {
	inFn   string  // Input co-array file (rows of "dE dN dt")
	outFn  string  // Output file ("" = stdout)
	alpha  float64 // Trim fraction
	ntrial int     // Number of trial subsets
	cutoff float64 // Outlier cutoff
	seed   int64   // Random seed
}

// Parse command line arguments
func parseArgs() (cmdOpt, error) {

	var args cmdOpt
	flag.StringVar(&args.inFn, "i", "", "input co-array file: one \"dE dN dt\" row per station pair")
	flag.StringVar(&args.outFn, "o", "", "output file (default: stdout)")
	flag.Float64Var(&args.alpha, "a", 0.5, "trim fraction [0.5, 1.0]")
	flag.IntVar(&args.ntrial, "t", m.NTRIAL, "number of trial subsets")
	flag.Float64Var(&args.cutoff, "c", m.CUTOFF, "standardized-residual cutoff for outlier flags")
	flag.Int64Var(&args.seed, "s", 0, "random seed")
	flag.IntVar(&m.DBG_, "x", 0, "debug level (0-4)")
	flag.Parse()

	if len(args.inFn) == 0 {
		return args, fmt.Errorf("no input file")
	}

	return args, nil
}

// Main application processing
func runApplication(args cmdOpt) error {

	// Load the co-array problem
	X, y, err := readCoArray(args.inFn)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	n, _ := X.Dims()
	m.PrintD(1, "--- co-array (%s): %d pairs ---\n", args.inFn, n)
	if m.DBG_ >= 3 {
		m.PrintA("X=\n")
		m.PrintMat(X)
		m.PrintA("y=\n")
		m.PrintMat(y)
	}

	// Prepare output
	out, err := prepareOutput(args)
	if err != nil {
		return fmt.Errorf("failed to prepare output: %w", err)
	}
	defer closeOutput(out)

	// Run the estimator
	opt := m.NewLtsOpt()
	opt.Alpha = args.alpha
	opt.NTrial = args.ntrial
	opt.Cutoff = args.cutoff
	opt.Seed = args.seed

	rslt, err := m.CalcLts(X, y, opt)
	if err != nil {
		return fmt.Errorf("CalcLts() failed: %w", err)
	}

	// Output results
	printSol(out, rslt)
	return nil
}

// Read a co-array file: whitespace separated "dE dN dt" rows, '#' comments
func readCoArray(fn string) (*mat.Dense, *mat.VecDense, error) {

	f, err := os.Open(fn)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var rows [][3]float64
	sc := bufio.NewScanner(f)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, nil, fmt.Errorf("line %d: expected 3 fields, got %d", ln, len(fields))
		}
		var row [3]float64
		for k, s := range fields {
			row[k], err = strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", ln, err)
			}
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no data rows")
	}

	X := mat.NewDense(len(rows), 2, nil)
	y := mat.NewVecDense(len(rows), nil)
	for i, row := range rows {
		X.Set(i, 0, row[0])
		X.Set(i, 1, row[1])
		y.SetVec(i, row[2])
	}
	return X, y, nil
}

// Prepare output file
func prepareOutput(args cmdOpt) (io.WriteCloser, error) {

	// Use stdout if no output file is specified
	if len(args.outFn) == 0 {
		return &nopCloser{os.Stdout}, nil
	}

	// Create output file
	f, err := os.Create(args.outFn)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// Close output file
func closeOutput(out io.WriteCloser) {
	if out != nil {
		out.Close()
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Print the estimation result
func printSol(out io.Writer, rslt *m.LtsSol) {

	fmt.Fprintf(out, "baz: %8.3f deg, vel: %8.3f, scale: %.6g, r2: %.4f\n",
		rslt.Bazimuth, rslt.Velocity, rslt.Scale, rslt.Rsquared)
	fmt.Fprintf(out, "slowness: [%.6g, %.6g]\n", rslt.Coeffs[0], rslt.Coeffs[1])
	fmt.Fprintf(out, "sigma: [%.3g, %.3g]\n",
		stddev(rslt.Cov.At(0, 0)), stddev(rslt.Cov.At(1, 1)))

	nOut := 0
	for i, f := range rslt.Outlier {
		if f {
			fmt.Fprintf(out, "outlier: pair %d, residual %.6g\n", i, rslt.Residuals[i])
			nOut++
		}
	}
	fmt.Fprintf(out, "flagged: %d / %d\n", nOut, len(rslt.Outlier))
}

// Formal 1-sigma from a covariance diagonal entry
func stddev(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
