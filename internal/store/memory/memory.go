// internal/store/memory/memory.go
package memory

import (
	"sync"

	"github.com/strikesim/strikesim/internal/config"
	"github.com/strikesim/strikesim/pkg/core"
)

// ProjectileRecord groups a projectile's launch with its track and outcome
type ProjectileRecord struct {
	Launch  core.Projectile
	Track   []core.TrackPoint
	Outcome *core.OutcomeRecord
}

// EngagementRecord groups an engagement with its attempts
type EngagementRecord struct {
	Engagement core.Engagement
	Attempts   []core.EngagementAttempt
}

// Backend stores scenario data in memory and exports to JSON
type Backend struct {
	cfg      config.MemoryConfig
	scenario *core.Scenario

	platforms     map[string]core.PlatformType // keyed by Nickname
	installations map[string]core.Installation // keyed by Callsign
	projectiles   map[string]*ProjectileRecord // keyed by projectile ID
	engagements   map[string]*EngagementRecord // keyed by engagement ID
	detections    []core.DetectionEvent

	idCounter    uint
	exportedPath string
	mu           sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:           cfg,
		platforms:     make(map[string]core.PlatformType),
		installations: make(map[string]core.Installation),
		projectiles:   make(map[string]*ProjectileRecord),
		engagements:   make(map[string]*EngagementRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartScenario begins recording a new scenario
func (b *Backend) StartScenario(s *core.Scenario) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter
	b.scenario = s

	// Reset all collections
	b.platforms = make(map[string]core.PlatformType)
	b.installations = make(map[string]core.Installation)
	b.projectiles = make(map[string]*ProjectileRecord)
	b.engagements = make(map[string]*EngagementRecord)
	b.detections = nil

	return nil
}

// EndScenario finalizes and exports the scenario data
func (b *Backend) EndScenario() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.exportJSON()
}

// AddPlatformType registers a platform profile
func (b *Backend) AddPlatformType(p *core.PlatformType) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.platforms[p.Nickname] = *p
	return nil
}

// AddInstallation registers an installation
func (b *Backend) AddInstallation(inst *core.Installation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.installations[inst.Callsign] = *inst
	return nil
}

// RecordLaunch registers a projectile entering flight
func (b *Backend) RecordLaunch(p *core.Projectile) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.projectiles[p.ID] = &ProjectileRecord{Launch: *p}
	return nil
}

// RecordTrackPoint appends a position sample to the projectile's track
func (b *Backend) RecordTrackPoint(tp *core.TrackPoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.projectiles[tp.ProjectileID]
	if !ok {
		rec = &ProjectileRecord{}
		b.projectiles[tp.ProjectileID] = rec
	}
	rec.Track = append(rec.Track, *tp)
	return nil
}

// RecordOutcome stores the terminal record for a projectile.
// Writes are monotonic: the first outcome for a projectile wins.
func (b *Backend) RecordOutcome(o *core.OutcomeRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.projectiles[o.ProjectileID]
	if !ok {
		rec = &ProjectileRecord{}
		b.projectiles[o.ProjectileID] = rec
	}
	if rec.Outcome != nil {
		return nil
	}
	outcome := *o
	rec.Outcome = &outcome
	return nil
}

// RecordDetection appends a sensor report
func (b *Backend) RecordDetection(d *core.DetectionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.detections = append(b.detections, *d)
	return nil
}

// RecordEngagement upserts an engagement by its ID
func (b *Backend) RecordEngagement(e *core.Engagement) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.engagements[e.ID]
	if !ok {
		rec = &EngagementRecord{}
		b.engagements[e.ID] = rec
	}
	rec.Engagement = *e
	return nil
}

// RecordAttempt upserts an attempt by its ID within its engagement
func (b *Backend) RecordAttempt(a *core.EngagementAttempt) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.engagements[a.EngagementID]
	if !ok {
		rec = &EngagementRecord{}
		b.engagements[a.EngagementID] = rec
	}
	for i := range rec.Attempts {
		if rec.Attempts[i].ID == a.ID {
			rec.Attempts[i] = *a
			return nil
		}
	}
	rec.Attempts = append(rec.Attempts, *a)
	return nil
}

// GetProjectile returns a copy of the stored record for a projectile.
func (b *Backend) GetProjectile(id string) (ProjectileRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.projectiles[id]
	if !ok {
		return ProjectileRecord{}, false
	}
	return *rec, true
}

// GetEngagement returns a copy of the stored record for an engagement.
func (b *Backend) GetEngagement(id string) (EngagementRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.engagements[id]
	if !ok {
		return EngagementRecord{}, false
	}
	return *rec, true
}

// DetectionCount returns the number of recorded sensor reports.
func (b *Backend) DetectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.detections)
}

// ExportedFilePath returns the path of the last exported results file.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exportedPath
}
