// Package physics implements the force model and the integration step
// for projectile flight. It is purely computational and fully
// deterministic: the same inputs always produce the same outputs.
package physics

import (
	"math"

	"github.com/strikesim/strikesim/internal/geo"
	"github.com/strikesim/strikesim/pkg/core"
)

// Constants is the atmosphere and gravity model configuration.
type Constants struct {
	// GravityMps2 is gravitational acceleration at sea level.
	GravityMps2 float64
	// AirDensitySeaLevel is sea-level air density in kg/m³.
	AirDensitySeaLevel float64
	// ScaleHeightM is the exponential atmosphere scale height.
	ScaleHeightM float64
	// EarthRadiusM attenuates gravity with altitude.
	EarthRadiusM float64
}

// Default returns the standard constants: g=9.81 m/s², sea-level air
// density 1.225 kg/m³, scale height 8500 m.
func Default() Constants {
	return Constants{
		GravityMps2:        9.81,
		AirDensitySeaLevel: 1.225,
		ScaleHeightM:       8500,
		EarthRadiusM:       6371000,
	}
}

// seaWaterDensity is used for the submerged part of an underwater launch.
const seaWaterDensity = 1025.0

// Density returns the fluid density at the given altitude. Below sea
// level the medium is water, above it an exponential atmosphere.
func (c Constants) Density(altM float64) float64 {
	if altM < 0 {
		return seaWaterDensity
	}
	return c.AirDensitySeaLevel * math.Exp(-altM/c.ScaleHeightM)
}

// GravityAt returns gravitational acceleration at the given altitude,
// attenuated by the inverse-square falloff from the earth's surface.
func (c Constants) GravityAt(altM float64) float64 {
	if altM <= 0 {
		return c.GravityMps2
	}
	r := c.EarthRadiusM / (c.EarthRadiusM + altM)
	return c.GravityMps2 * r * r
}

// DragForce returns the aerodynamic (or hydrodynamic) drag force in
// newtons: 0.5·ρ·v²·Cd·A, acting opposite the velocity.
func (c Constants) DragForce(vel core.Vector3, altM, dragCoeff, areaM2 float64) core.Vector3 {
	speed := vel.Magnitude()
	if speed == 0 {
		return core.Vector3{}
	}
	mag := 0.5 * c.Density(altM) * speed * speed * dragCoeff * areaM2
	return vel.Normalize().Scale(-mag)
}

// Step advances position and velocity by one semi-implicit Euler step of
// dt seconds under the given thrust force (newtons). The updated
// velocity is used to advance the position, which keeps long ballistic
// arcs stable at the 100 ms tick.
func (c Constants) Step(
	pos core.Position3D,
	vel core.Vector3,
	massKg, dragCoeff, areaM2 float64,
	thrustN core.Vector3,
	dt float64,
) (core.Position3D, core.Vector3) {
	g := c.GravityAt(pos.Alt)
	gravity := core.Vector3{Z: -g * massKg}
	drag := c.DragForce(vel, pos.Alt, dragCoeff, areaM2)

	net := thrustN.Add(gravity).Add(drag)

	// Submerged bodies get buoyancy; volume is approximated from mass.
	if pos.Alt < 0 {
		volume := massKg / 1000.0
		net = net.Add(core.Vector3{Z: seaWaterDensity * volume * g})
	}

	accel := net.Scale(1.0 / massKg)
	newVel := vel.Add(accel.Scale(dt))
	newPos := geo.Offset(pos, newVel.X*dt, newVel.Y*dt, newVel.Z*dt)
	return newPos, newVel
}
