package store

import "github.com/strikesim/strikesim/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Scenario management
	StartScenario(s *core.Scenario) error
	EndScenario() error

	// Asset registration
	AddPlatformType(p *core.PlatformType) error
	AddInstallation(inst *core.Installation) error

	// Flight recording
	RecordLaunch(p *core.Projectile) error
	RecordTrackPoint(tp *core.TrackPoint) error
	RecordOutcome(o *core.OutcomeRecord) error

	// Sensor and engagement recording
	RecordDetection(d *core.DetectionEvent) error
	RecordEngagement(e *core.Engagement) error
	RecordAttempt(a *core.EngagementAttempt) error
}

// Exportable is an optional interface for backends that produce a
// standalone results file at scenario end.
type Exportable interface {
	ExportedFilePath() string
}
