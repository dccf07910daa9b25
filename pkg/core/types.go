// Package core defines the domain types shared between the simulation
// services and the storage backends. It has no GIS or database dependencies
// so it can be imported from anywhere in the tree.
package core

import "math"

// Position3D is a geodetic position: longitude and latitude in decimal
// degrees (WGS84), altitude in meters above sea level.
type Position3D struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
	Alt float64 `json:"alt"`
}

// Position2D is a geodetic ground position without altitude.
type Position2D struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Polyline is an ordered list of ground positions, used for movement
// paths of mobile installations.
type Polyline []Position2D

// Vector3 is a velocity or force vector in a local east/north/up frame,
// meters per second or newtons depending on context.
type Vector3 struct {
	X float64 `json:"x"` // east
	Y float64 `json:"y"` // north
	Z float64 `json:"z"` // up
}

// Magnitude returns the euclidean length of the vector.
func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns a unit vector in the same direction, or the zero
// vector if the magnitude is zero.
func (v Vector3) Normalize() Vector3 {
	mag := v.Magnitude()
	if mag == 0 {
		return Vector3{}
	}
	return Vector3{X: v.X / mag, Y: v.Y / mag, Z: v.Z / mag}
}

// Add returns the component-wise sum of two vectors.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns the component-wise difference of two vectors.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns the vector multiplied by a scalar.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// IsFinite reports whether all components are finite numbers. A vector
// that fails this check indicates corrupted projectile state.
func (v Vector3) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// IsFinite reports whether all coordinates are finite numbers.
func (p Position3D) IsFinite() bool {
	return !math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0) &&
		!math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Alt) && !math.IsInf(p.Alt, 0)
}

// Ground returns the position with altitude stripped.
func (p Position3D) Ground() Position2D {
	return Position2D{Lon: p.Lon, Lat: p.Lat}
}
