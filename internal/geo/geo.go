// Package geo provides the geodesic math used for all range and
// detection-radius comparisons. Distances are computed on the WGS84
// ellipsoid (geocentric for slant ranges, great-circle for ground
// ranges), never flat-Euclidean: at continental scale the difference
// decides whether a threat is inside a battery's envelope.
package geo

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/strikesim/strikesim/pkg/core"
)

// EarthRadiusM is the mean earth radius used for great-circle math.
const EarthRadiusM = 6371000.0

// lonLatToXYZ converts geodetic lon/lat/alt to WGS84 geocentric (ECEF) meters.
var lonLatToXYZ = wgs84.LonLat().To(wgs84.XYZ())

// ECEF returns the WGS84 geocentric coordinates of a geodetic position,
// in meters.
func ECEF(p core.Position3D) (x, y, z float64) {
	return lonLatToXYZ(p.Lon, p.Lat, p.Alt)
}

// SlantDistance returns the 3-D straight-line distance between two
// geodetic positions, in meters, computed through geocentric space.
func SlantDistance(a, b core.Position3D) float64 {
	ax, ay, az := ECEF(a)
	bx, by, bz := ECEF(b)
	dx, dy, dz := ax-bx, ay-by, az-bz
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// GroundDistance returns the great-circle distance between two ground
// positions, in meters.
func GroundDistance(a, b core.Position2D) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusM * 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
}

// MetersPerDegree returns the local length of one degree of latitude and
// longitude at the given latitude.
func MetersPerDegree(lat float64) (latM, lonM float64) {
	latM = 2 * math.Pi * EarthRadiusM / 360
	lonM = latM * math.Cos(lat*math.Pi/180)
	if lonM < 1 {
		lonM = 1 // degenerate near the poles; avoid division blowups
	}
	return latM, lonM
}

// Offset moves a position by east/north/up meters using the local
// meters-per-degree scale at its latitude.
func Offset(p core.Position3D, east, north, up float64) core.Position3D {
	latM, lonM := MetersPerDegree(p.Lat)
	return core.Position3D{
		Lon: p.Lon + east/lonM,
		Lat: p.Lat + north/latM,
		Alt: p.Alt + up,
	}
}

// LocalVector returns the east/north/up vector, in meters, from one
// position to another, using the local tangent plane at the origin.
func LocalVector(from, to core.Position3D) core.Vector3 {
	latM, lonM := MetersPerDegree(from.Lat)
	return core.Vector3{
		X: (to.Lon - from.Lon) * lonM,
		Y: (to.Lat - from.Lat) * latM,
		Z: to.Alt - from.Alt,
	}
}

// Point4326 builds a simplefeatures XYZ point in EPSG:4326 for storage
// as WKB. Positions are validated upstream; a non-finite coordinate
// degrades to the empty point instead of failing the writer.
func Point4326(p core.Position3D) geom.Point {
	pt, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.Lon, Y: p.Lat},
		Z:    p.Alt,
		Type: geom.DimXYZ,
	})
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ)
	}
	return pt
}

// PositionFromPoint converts a stored point back to a geodetic position.
func PositionFromPoint(pt geom.Point) (core.Position3D, bool) {
	coords, ok := pt.Coordinates()
	if !ok {
		return core.Position3D{}, false
	}
	return core.Position3D{Lon: coords.X, Lat: coords.Y, Alt: coords.Z}, true
}
