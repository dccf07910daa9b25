package core

import "time"

// AttemptOutcome is the result of one battery's fire-and-resolve cycle.
type AttemptOutcome string

const (
	AttemptAttempted  AttemptOutcome = "attempted"
	AttemptSuccessful AttemptOutcome = "successful"
	AttemptFailed     AttemptOutcome = "failed"
)

// Failure reasons carried on failed attempts.
const (
	FailureNoAmmo   = "no_ammo"
	FailureCooldown = "cooldown"
	FailureMissed   = "missed"
)

// EngagementState is the coordinator's per-threat state machine.
type EngagementState string

const (
	ThreatUnassessed EngagementState = "unassessed"
	ThreatAssessed   EngagementState = "assessed"
	ThreatEngaged    EngagementState = "engaged"
	ThreatResolved   EngagementState = "resolved"
)

// Resolution is the final disposition of an engagement.
type Resolution string

const (
	ResolutionIntercepted Resolution = "intercepted"
	ResolutionLeaked      Resolution = "leaked"
)

// Engagement binds one target projectile to a bounded sequence of
// intercept attempts. It is created on the first fire order for a target
// and closed on success or when the attempt cap is exhausted.
type Engagement struct {
	ID                 string          `json:"id"`
	TargetProjectileID string          `json:"targetProjectileId"`
	State              EngagementState `json:"state"`
	Resolution         Resolution      `json:"resolution,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	ResolvedAt         time.Time       `json:"resolvedAt,omitempty"`
	AttemptCount       int             `json:"attemptCount"`
}

// EngagementAttempt is one battery's single fire-and-resolve cycle
// against a target.
type EngagementAttempt struct {
	ID              string         `json:"id"`
	EngagementID    string         `json:"engagementId"`
	Number          int            `json:"number"`
	BatteryCallsign string         `json:"batteryCallsign"`
	LaunchTime      time.Time      `json:"launchTime"`
	Outcome         AttemptOutcome `json:"outcome"`
	FailureReason   string         `json:"failureReason,omitempty"`
	InterceptPoint  *Position3D    `json:"interceptPoint,omitempty"`
}
