// Package streaming defines the message-bus topics and their payload
// types. Payload fields are the authoritative contract between services;
// malformed payloads are rejected here, at the bus boundary, not deep in
// business logic.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/strikesim/strikesim/pkg/core"
)

// Topic names. Fire orders are partitioned per battery; use FireOrderTopic.
const (
	TopicLaunchRequest      = "launch.request"
	TopicProjectilePosition = "projectile.position"
	TopicProjectileTerminal = "projectile.terminal"
	TopicRadarDetection     = "radar.detection"
	TopicEngagementResult   = "engagement.result"
)

// FireOrderTopic returns the per-battery fire order topic.
func FireOrderTopic(callsign string) string {
	return fmt.Sprintf("battery.%s.fire_order", callsign)
}

// LaunchRequest asks the trajectory engine to create a projectile.
type LaunchRequest struct {
	PlatformNickname string  `json:"platform_nickname"`
	Callsign         string  `json:"callsign"`
	LaunchLat        float64 `json:"launch_lat"`
	LaunchLon        float64 `json:"launch_lon"`
	LaunchAlt        float64 `json:"launch_alt"`
	TargetLat        float64 `json:"target_lat"`
	TargetLon        float64 `json:"target_lon"`
	TargetAlt        float64 `json:"target_alt"`
	Kind             string  `json:"kind"`

	// Defense rounds only.
	TargetProjectileID string `json:"target_projectile_id,omitempty"`
	EngagementID       string `json:"engagement_id,omitempty"`
	AttemptID          string `json:"attempt_id,omitempty"`
	AttemptNumber      int    `json:"attempt_number,omitempty"`
}

// PositionUpdate is published every tick for each active projectile.
type PositionUpdate struct {
	ID            string  `json:"id"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	Alt           float64 `json:"alt"`
	Vx            float64 `json:"vx"`
	Vy            float64 `json:"vy"`
	Vz            float64 `json:"vz"`
	FuelRemaining float64 `json:"fuel_remaining"`
	Status        string  `json:"status"`
	Kind          string  `json:"kind"`
	Tick          uint64  `json:"tick"`
}

// TerminalEvent is published exactly once per projectile, on its
// transition to a terminal status.
type TerminalEvent struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Position     core.Position3D `json:"position"`
	Tick         uint64          `json:"tick"`
	Timestamp    int64           `json:"timestamp"`
	BlastRadiusM float64         `json:"blast_radius,omitempty"`

	// Set when the terminal transition was an intercept.
	InterceptorID string `json:"interceptor_id,omitempty"`
	EngagementID  string `json:"engagement_id,omitempty"`
	AttemptID     string `json:"attempt_id,omitempty"`
}

// Detection is one radar's report of a projectile.
type Detection struct {
	InstallationCallsign string  `json:"installation_id"`
	ProjectileID         string  `json:"projectile_id"`
	Lat                  float64 `json:"lat"`
	Lon                  float64 `json:"lon"`
	Alt                  float64 `json:"alt"`
	Confidence           float64 `json:"confidence"`
	SignalStrengthDb     float64 `json:"signal_strength_db"`
	Tick                 uint64  `json:"tick"`
	Timestamp            int64   `json:"timestamp"`
}

// FireOrder is the coordinator's instruction to one battery.
type FireOrder struct {
	EngagementID       string          `json:"engagement_id"`
	AttemptID          string          `json:"attempt_id"`
	AttemptNumber      int             `json:"attempt_number"`
	TargetProjectileID string          `json:"target_projectile_id"`
	InterceptPoint     core.Position3D `json:"intercept_point"`
}

// EngagementResult reports the outcome of one attempt back to the
// coordinator. Attempted results come from the battery; successful and
// failed (missed) results come from the trajectory engine.
type EngagementResult struct {
	EngagementID    string           `json:"engagement_id"`
	AttemptID       string           `json:"attempt_id"`
	AttemptNumber   int              `json:"attempt_number"`
	BatteryCallsign string           `json:"battery_callsign,omitempty"`
	Outcome         string           `json:"outcome"`
	FailureReason   string           `json:"failure_reason,omitempty"`
	InterceptPoint  *core.Position3D `json:"intercept_point,omitempty"`
}

// Envelope wraps a payload with its topic for external ingestion.
type Envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}
