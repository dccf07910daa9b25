package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/strikesim/strikesim/pkg/core"
)

// PathLineString converts a movement path to a simplefeatures LineString
// for WKB storage. A path that does not form a valid linestring (a
// single coordinate) degrades to the empty linestring.
func PathLineString(path core.Polyline) geom.LineString {
	flat := make([]float64, 0, len(path)*2)
	for _, p := range path {
		flat = append(flat, p.Lon, p.Lat)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}
	}
	return ls
}

// PathPosition returns the ground position of a unit that has been
// moving along path at speedMps for elapsed seconds. The path is walked
// leg by leg; a unit that reaches the end patrols back and forth.
func PathPosition(path core.Polyline, speedMps, elapsedSec float64) core.Position2D {
	if len(path) == 0 {
		return core.Position2D{}
	}
	if len(path) == 1 || speedMps <= 0 || elapsedSec <= 0 {
		return path[0]
	}

	legs := make([]float64, len(path)-1)
	var total float64
	for i := 0; i < len(path)-1; i++ {
		legs[i] = GroundDistance(path[i], path[i+1])
		total += legs[i]
	}
	if total == 0 {
		return path[0]
	}

	// Ping-pong along the path.
	traveled := speedMps * elapsedSec
	cycle := 2 * total
	traveled = traveled - float64(int(traveled/cycle))*cycle
	forward := true
	if traveled > total {
		traveled = cycle - traveled
		forward = !forward
	}

	for i, leg := range legs {
		if traveled <= leg {
			frac := 0.0
			if leg > 0 {
				frac = traveled / leg
			}
			a, b := path[i], path[i+1]
			return core.Position2D{
				Lon: a.Lon + (b.Lon-a.Lon)*frac,
				Lat: a.Lat + (b.Lat-a.Lat)*frac,
			}
		}
		traveled -= leg
	}
	return path[len(path)-1]
}
