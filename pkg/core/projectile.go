package core

import "time"

// ProjectileKind distinguishes attack rounds from interceptors.
type ProjectileKind string

const (
	KindAttack  ProjectileKind = "attack"
	KindDefense ProjectileKind = "defense"
)

// ProjectileStatus is the lifecycle state of a projectile. A projectile
// transitions into a terminal status exactly once and is immutable after.
type ProjectileStatus string

const (
	StatusActive        ProjectileStatus = "active"
	StatusDestroyed     ProjectileStatus = "destroyed"
	StatusDetonated     ProjectileStatus = "detonated"
	StatusFuelExhausted ProjectileStatus = "fuel_exhausted"
)

// Terminal reports whether the status is one from which no further
// physical update occurs.
func (s ProjectileStatus) Terminal() bool {
	switch s {
	case StatusDestroyed, StatusDetonated, StatusFuelExhausted:
		return true
	}
	return false
}

// PlatformType holds the physical characteristics shared by every round
// launched from a platform of this class.
type PlatformType struct {
	Nickname            string  `json:"nickname"`
	Category            Role    `json:"category"`
	MaxSpeedMps         float64 `json:"maxSpeedMps"`
	MaxRangeM           float64 `json:"maxRangeM"`
	MaxAltitudeM        float64 `json:"maxAltitudeM"`
	BlastRadiusM        float64 `json:"blastRadiusM"`
	FuelCapacityKg      float64 `json:"fuelCapacityKg"`
	FuelConsumptionKgps float64 `json:"fuelConsumptionKgps"`
	ThrustN             float64 `json:"thrustN"`
	MassKg              float64 `json:"massKg"`
	DragCoefficient     float64 `json:"dragCoefficient"`
	CrossSectionM2      float64 `json:"crossSectionM2"`
	AccuracyPercent     float64 `json:"accuracyPercent"`
	ReloadTimeSec       float64 `json:"reloadTimeSec"`

	// Detection systems only.
	DetectionRangeM float64 `json:"detectionRangeM"`
	SweepRateDegSec float64 `json:"sweepRateDegSec"`
}

// Projectile is the authoritative physical state of one in-flight round.
// It is created on launch and mutated only by the trajectory engine.
type Projectile struct {
	ID       string         `json:"id"`
	Callsign string         `json:"callsign"`
	Kind     ProjectileKind `json:"kind"`
	Platform PlatformType   `json:"platform"`

	LaunchPosition Position3D `json:"launchPosition"`
	LaunchTime     time.Time  `json:"launchTime"`
	LaunchTick     uint64     `json:"launchTick"`
	TargetPosition Position3D `json:"targetPosition"`

	Position      Position3D       `json:"position"`
	Velocity      Vector3          `json:"velocity"`
	FuelRemaining float64          `json:"fuelRemaining"`
	Status        ProjectileStatus `json:"status"`

	// Defense rounds only: id of the projectile this one is steering
	// toward. Resolved by lookup at intercept time, never a pointer.
	TargetProjectileID string `json:"targetProjectileId,omitempty"`

	// Defense rounds only: the engagement attempt that fired this round.
	EngagementID  string `json:"engagementId,omitempty"`
	AttemptID     string `json:"attemptId,omitempty"`
	AttemptNumber int    `json:"attemptNumber,omitempty"`
}

// Active reports whether the projectile is still flying.
func (p *Projectile) Active() bool {
	return p.Status == StatusActive
}

// TrackPoint is one recorded position sample of a projectile, written to
// the store once per tick while the projectile is active.
type TrackPoint struct {
	ProjectileID  string     `json:"projectileId"`
	Tick          uint64     `json:"tick"`
	Time          time.Time  `json:"time"`
	Position      Position3D `json:"position"`
	Velocity      Vector3    `json:"velocity"`
	FuelRemaining float64    `json:"fuelRemaining"`
}

// OutcomeRecord is the durable terminal record for a projectile. Writes
// are monotonic: once a projectile has an outcome it never changes.
type OutcomeRecord struct {
	ProjectileID   string           `json:"projectileId"`
	Callsign       string           `json:"callsign"`
	Kind           ProjectileKind   `json:"kind"`
	Status         ProjectileStatus `json:"status"`
	Position       Position3D       `json:"position"`
	Tick           uint64           `json:"tick"`
	Time           time.Time        `json:"time"`
	BlastRadiusM   float64          `json:"blastRadiusM"`
	TargetAchieved bool             `json:"targetAchieved"`
	InterceptorID  string           `json:"interceptorId,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}
