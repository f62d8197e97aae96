// Copyright (c) 2026 mkhts. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.22
//

package golts

import (
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
)

// Sampler draws candidate starting subsets of size p from n observations.
// Every draw comes from an explicit seeded source, so identical seeds
// reproduce identical subset sequences. When the number of distinct
// p-subsets fits inside the trial budget the sampler switches to
// exhaustive enumeration instead of random draws.
type Sampler struct {
	n, p int
	rnd  *rand.Rand
	comb []int // Current combination in exhaustive mode, nil in random mode
	done bool
}

// NewSampler creates a sampler for n observations and subsets of size p
// with at most ntrial starts, seeded with the given seed.
func NewSampler(n, p, ntrial int, seed int64) *Sampler {
	s := &Sampler{
		n:   n,
		p:   p,
		rnd: rand.New(rand.NewSource(uint64(seed))),
	}
	if binomial(n, p, ntrial) <= ntrial {
		s.comb = make([]int, p) // Enumerate every subset
		for i := range s.comb {
			s.comb[i] = i
		}
	}
	return s
}

// Exhaustive reports whether the sampler enumerates all p-subsets.
func (s *Sampler) Exhaustive() bool {
	return s.comb != nil
}

// Draw returns the next candidate subset (sorted, without replacement),
// or nil when an exhaustive sampler has produced every subset.
func (s *Sampler) Draw() []int {
	if s.done {
		return nil
	}
	if s.comb != nil {
		return s.nextComb()
	}

	idx := make([]int, 0, s.p)
	for len(idx) < s.p {
		k := s.rnd.Intn(s.n)
		if !slices.Contains(idx, k) {
			idx = append(idx, k)
		}
	}
	slices.Sort(idx)
	return idx
}

// nextComb emits the current combination and advances to the next one
// in lexicographic order.
func (s *Sampler) nextComb() []int {
	out := make([]int, s.p)
	copy(out, s.comb)

	// Advance
	i := s.p - 1
	for i >= 0 && s.comb[i] == s.n-s.p+i {
		i--
	}
	if i < 0 {
		s.done = true
		return out
	}
	s.comb[i]++
	for j := i + 1; j < s.p; j++ {
		s.comb[j] = s.comb[j-1] + 1
	}
	return out
}
