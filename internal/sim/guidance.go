package sim

import (
	"math"

	"github.com/strikesim/strikesim/internal/geo"
	"github.com/strikesim/strikesim/pkg/core"
)

// Boost-phase altitude bands for attack rounds. Above terminalPhaseAltM
// the round is in ballistic descent and gets no thrust.
const (
	initialBoostAltM  = 1000.0
	midCourseAltM     = 10000.0
	terminalPhaseAltM = 50000.0

	underwaterBoostSec = 3.0
)

// thrustRatio returns the fraction of rated thrust applied at the given
// point in flight. The same ratio drives fuel consumption.
func thrustRatio(kind core.ProjectileKind, altM, elapsedSec float64) float64 {
	if kind == core.KindDefense {
		return 1.0
	}
	if altM < 0 {
		if elapsedSec < underwaterBoostSec {
			return 0.5
		}
		return 0.9
	}
	switch {
	case altM < initialBoostAltM:
		return 1.0
	case altM < midCourseAltM:
		return 0.9
	case altM < terminalPhaseAltM:
		return 0.7
	default:
		return 0 // ballistic descent
	}
}

// attackThrustDirection shapes the boost arc of an attack round: straight
// up through the initial boost, then pitched over toward the target at a
// climb angle between 30 and 60 degrees.
func attackThrustDirection(pos, target core.Position3D) core.Vector3 {
	up := core.Vector3{Z: 1}
	if pos.Alt < initialBoostAltM {
		return up
	}

	toTarget := geo.LocalVector(pos, target)
	horizontal := math.Hypot(toTarget.X, toTarget.Y)
	if horizontal == 0 {
		return up
	}

	angleDeg := math.Abs(toTarget.Z) / horizontal
	angleDeg = math.Atan(angleDeg) * 180 / math.Pi
	if angleDeg < 30 {
		angleDeg = 30
	} else if angleDeg > 60 {
		angleDeg = 60
	}
	angleRad := angleDeg * math.Pi / 180

	dir := core.Vector3{
		X: toTarget.X / horizontal * math.Cos(angleRad),
		Y: toTarget.Y / horizontal * math.Cos(angleRad),
		Z: math.Sin(angleRad),
	}
	return dir.Normalize()
}

// defenseThrustDirection steers an interceptor toward its target with a
// velocity lead: the aim point is the target's last known position
// advanced along its velocity for the estimated closing time.
func defenseThrustDirection(own *core.Projectile, target core.Projectile) core.Vector3 {
	dist := geo.SlantDistance(own.Position, target.Position)

	ownSpeed := own.Velocity.Magnitude()
	if ownSpeed < 1 {
		ownSpeed = own.Platform.MaxSpeedMps
	}
	leadSec := dist / ownSpeed
	if leadSec > 30 {
		leadSec = 30
	}

	aim := geo.Offset(target.Position,
		target.Velocity.X*leadSec,
		target.Velocity.Y*leadSec,
		target.Velocity.Z*leadSec)

	dir := geo.LocalVector(own.Position, aim)
	if dir.Magnitude() == 0 {
		return core.Vector3{Z: 1}
	}
	return dir.Normalize()
}

// thrustForce returns the thrust vector in newtons for one tick, or the
// zero vector when no thrust applies (empty tank, terminal descent).
func (e *Engine) thrustForce(p *core.Projectile, snapshot map[string]core.Projectile, elapsedSec float64) (core.Vector3, float64) {
	if p.FuelRemaining <= 0 {
		return core.Vector3{}, 0
	}

	ratio := thrustRatio(p.Kind, p.Position.Alt, elapsedSec)
	if ratio == 0 {
		return core.Vector3{}, 0
	}

	var dir core.Vector3
	switch {
	case p.Position.Alt < 0:
		dir = core.Vector3{Z: 1}
	case p.Kind == core.KindDefense:
		if target, ok := snapshot[p.TargetProjectileID]; ok && target.Active() {
			dir = defenseThrustDirection(p, target)
		} else {
			// Target already gone; coast toward the briefed point.
			dir = attackThrustDirection(p.Position, p.TargetPosition)
		}
	default:
		dir = attackThrustDirection(p.Position, p.TargetPosition)
	}

	return dir.Scale(p.Platform.ThrustN * ratio), ratio
}
