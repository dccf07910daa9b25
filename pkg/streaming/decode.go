package streaming

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTopic is returned when an envelope names a topic this module
// has no payload type for.
var ErrUnknownTopic = errors.New("unknown topic")

// ErrInvalidPayload is returned when a payload is structurally valid JSON
// but fails field validation.
var ErrInvalidPayload = errors.New("invalid payload")

// Decode parses and validates an envelope, returning the typed payload
// for its topic.
func Decode(env Envelope) (any, error) {
	switch env.Topic {
	case TopicLaunchRequest:
		var p LaunchRequest
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Topic, err)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil
	case TopicProjectilePosition:
		var p PositionUpdate
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Topic, err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: position update missing id", ErrInvalidPayload)
		}
		return p, nil
	case TopicProjectileTerminal:
		var p TerminalEvent
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Topic, err)
		}
		if p.ID == "" || p.Status == "" {
			return nil, fmt.Errorf("%w: terminal event missing id or status", ErrInvalidPayload)
		}
		return p, nil
	case TopicRadarDetection:
		var p Detection
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Topic, err)
		}
		if p.InstallationCallsign == "" || p.ProjectileID == "" {
			return nil, fmt.Errorf("%w: detection missing installation or projectile id", ErrInvalidPayload)
		}
		return p, nil
	case TopicEngagementResult:
		var p EngagementResult
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Topic, err)
		}
		if p.EngagementID == "" || p.Outcome == "" {
			return nil, fmt.Errorf("%w: engagement result missing id or outcome", ErrInvalidPayload)
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, env.Topic)
}

// Validate checks the fields a launch request cannot do without.
func (r LaunchRequest) Validate() error {
	if r.PlatformNickname == "" {
		return fmt.Errorf("%w: launch request missing platform nickname", ErrInvalidPayload)
	}
	if r.Kind != "attack" && r.Kind != "defense" {
		return fmt.Errorf("%w: launch request kind %q", ErrInvalidPayload, r.Kind)
	}
	if r.Kind == "defense" && r.TargetProjectileID == "" {
		return fmt.Errorf("%w: defense launch without target projectile id", ErrInvalidPayload)
	}
	if r.LaunchLat < -90 || r.LaunchLat > 90 || r.TargetLat < -90 || r.TargetLat > 90 {
		return fmt.Errorf("%w: latitude out of range", ErrInvalidPayload)
	}
	if r.LaunchLon < -180 || r.LaunchLon > 180 || r.TargetLon < -180 || r.TargetLon > 180 {
		return fmt.Errorf("%w: longitude out of range", ErrInvalidPayload)
	}
	return nil
}
