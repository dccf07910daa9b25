package core

import "time"

// Role is the closed set of installation categories.
type Role string

const (
	RoleLaunchPlatform Role = "launch_platform"
	RoleDetection      Role = "detection_system"
	RoleCounterDefense Role = "counter_defense"
)

// Valid reports whether the role is one of the known categories.
func (r Role) Valid() bool {
	switch r {
	case RoleLaunchPlatform, RoleDetection, RoleCounterDefense:
		return true
	}
	return false
}

// InstallationStatus is the operational state of an installation.
type InstallationStatus string

const (
	InstallationActive   InstallationStatus = "active"
	InstallationInactive InstallationStatus = "inactive"
	InstallationDamaged  InstallationStatus = "damaged"
)

// Installation is a fixed or mobile ground/sea asset: a launch platform,
// a detection system, or a counter-defense battery.
type Installation struct {
	Callsign string             `json:"callsign"`
	Role     Role               `json:"role"`
	Platform PlatformType       `json:"platform"`
	Position Position3D         `json:"position"`
	Status   InstallationStatus `json:"status"`

	// Mobile installations follow MovePath at MoveSpeedMps; empty path
	// means the installation is static.
	Mobile       bool     `json:"mobile"`
	MovePath     Polyline `json:"movePath,omitempty"`
	MoveSpeedMps float64  `json:"moveSpeedMps,omitempty"`

	// Counter-defense batteries only. AmmoCount is owned exclusively by
	// the installation's battery controller once the scenario starts.
	AmmoCount int `json:"ammoCount"`
}

// DetectionEvent is one sensor's report of a projectile at a point in
// time. Write-once, append-only.
type DetectionEvent struct {
	InstallationCallsign string     `json:"installationCallsign"`
	ProjectileID         string     `json:"projectileId"`
	Position             Position3D `json:"position"` // estimated, not true
	Confidence           float64    `json:"confidence"`
	SignalStrengthDb     float64    `json:"signalStrengthDb"`
	Tick                 uint64     `json:"tick"`
	Time                 time.Time  `json:"time"`
}

// Scenario names one simulation run. All stored records reference it.
type Scenario struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Theater   string    `json:"theater"`
	StartTime time.Time `json:"startTime"`
}
