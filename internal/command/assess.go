package command

import (
	"math"

	"github.com/strikesim/strikesim/internal/geo"
	"github.com/strikesim/strikesim/pkg/core"
)

// ThreatLevel ranks how soon a threat lands.
type ThreatLevel string

const (
	LevelLow      ThreatLevel = "low"
	LevelMedium   ThreatLevel = "medium"
	LevelHigh     ThreatLevel = "high"
	LevelCritical ThreatLevel = "critical"
)

// Time-to-impact thresholds in seconds.
const (
	criticalTTISec = 60
	highTTISec     = 180
	mediumTTISec   = 600
)

// fallbackTTISec is used when the velocity estimate is unusable.
const fallbackTTISec = 100.0

// assessLevel maps time-to-impact to a threat level. Only high and
// critical threats are engaged.
func assessLevel(timeToImpactSec float64) ThreatLevel {
	switch {
	case timeToImpactSec < criticalTTISec:
		return LevelCritical
	case timeToImpactSec < highTTISec:
		return LevelHigh
	case timeToImpactSec < mediumTTISec:
		return LevelMedium
	default:
		return LevelLow
	}
}

// predictImpact extrapolates the threat's descent flat-out along its
// estimated velocity: time to fall the current altitude, then that much
// horizontal drift.
func predictImpact(pos core.Position3D, vel core.Vector3) (core.Position3D, float64) {
	// A climbing round gets the fallback; the descent estimate takes
	// over once the velocity estimate turns downward.
	tti := fallbackTTISec
	if vel.Z < 0 {
		tti = pos.Alt / -vel.Z
	}

	impact := geo.Offset(pos, vel.X*tti, vel.Y*tti, 0)
	impact.Alt = 0
	return impact, tti
}

// engageable reports whether the level warrants a fire order.
func (l ThreatLevel) engageable() bool {
	return l == LevelHigh || l == LevelCritical
}

// estimateVelocity derives a velocity from two correlated position
// estimates separated by dtSec of simulated time.
func estimateVelocity(from, to core.Position3D, dtSec float64) core.Vector3 {
	if dtSec <= 0 {
		return core.Vector3{}
	}
	d := geo.LocalVector(from, to)
	v := d.Scale(1.0 / dtSec)
	if !v.IsFinite() || v.Magnitude() > 10000 {
		return core.Vector3{}
	}
	return v
}

// interceptPoint is the briefed meeting point for a fire order: the
// midpoint between battery and threat.
func interceptPoint(battery, threat core.Position3D) core.Position3D {
	return core.Position3D{
		Lon: (battery.Lon + threat.Lon) / 2,
		Lat: (battery.Lat + threat.Lat) / 2,
		Alt: math.Max(0, (battery.Alt+threat.Alt)/2),
	}
}
