// Copyright (c) 2026 mkhts. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.21
//

package golts

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

//-------------------------------------------------------------------
// Co-array geometry
//-------------------------------------------------------------------

// Station is a sensor position in a local East/North frame.
// Units are the caller's choice; slowness comes out in time unit per
// distance unit.
type Station struct {
	E float64
	N float64
}

func NewStation(e, n float64) *Station {
	return &Station{
		E: e,
		N: n,
	}
}

// CoArray builds the co-array design matrix for a plane-wave travel-time
// regression: one row per unordered station pair (i < j), columns are the
// East and North offsets of station j relative to station i. Pair order
// matches the delay vector expected by CalcLts: (0,1), (0,2), ...,
// (0,m-1), (1,2), ...
func CoArray(stations []Station) (*mat.Dense, error) {

	m := len(stations)
	if m < 2 {
		return nil, fmt.Errorf("not enough stations: %d", m)
	}

	X := mat.NewDense(m*(m-1)/2, 2, nil)
	k := 0
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			X.Set(k, 0, stations[j].E-stations[i].E)
			X.Set(k, 1, stations[j].N-stations[i].N)
			k++
		}
	}
	return X, nil
}

// SlownessToVel converts a slowness vector to apparent velocity.
func SlownessToVel(sx, sy float64) float64 {
	return 1 / math.Sqrt(SQ(sx)+SQ(sy))
}

// SlownessToBaz converts a slowness vector to back-azimuth in degrees
// clockwise from North: atan2(sx, sy) mapped to [0, 360).
func SlownessToBaz(sx, sy float64) float64 {
	az := math.Mod(ToDeg(math.Atan2(sx, sy))-360, 360)
	if az < 0 {
		az += 360
	}
	return az
}
