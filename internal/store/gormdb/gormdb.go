// Package gormdb implements the store.Backend interface using GORM
// (Postgres or SQLite) with internal queues and a background DB writer
// goroutine.
package gormdb

import (
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/strikesim/strikesim/internal/cache"
	"github.com/strikesim/strikesim/internal/logging"
	"github.com/strikesim/strikesim/internal/model"
	"github.com/strikesim/strikesim/internal/model/convert"
	"github.com/strikesim/strikesim/internal/queue"
	"github.com/strikesim/strikesim/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	SiteCache  *cache.SiteCache
	LogManager *logging.SlogManager

	// WriteInterval is how often the background writer drains the
	// queues. Zero selects the default of 2 seconds.
	WriteInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Launches    *queue.Buffer[model.Launch]
	TrackPoints *queue.Buffer[model.TrackPoint]
	Detections  *queue.Buffer[model.Detection]
	Attempts    *queue.Buffer[model.EngagementAttempt]
	Outcomes    *queue.Buffer[model.Outcome]
}

func newQueues() *queues {
	return &queues{
		Launches:    queue.New[model.Launch](),
		TrackPoints: queue.New[model.TrackPoint](),
		Detections:  queue.New[model.Detection](),
		Attempts:    queue.New[model.EngagementAttempt](),
		Outcomes:    queue.New[model.Outcome](),
	}
}

// QueueLengths reports current write queue depths for monitoring.
type QueueLengths struct {
	Launches    int
	TrackPoints int
	Detections  int
	Attempts    int
	Outcomes    int
}

// Backend implements store.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps       Dependencies
	queues     *queues
	scenarioID atomic.Uint64
	stopChan   chan struct{}
	dbReady    bool

	lastWriteDuration atomic.Int64 // nanoseconds
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB
// writer goroutine. A DB connection must be injected via Dependencies.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database connection provided")
	}
	if b.deps.WriteInterval <= 0 {
		b.deps.WriteInterval = 2 * time.Second
	}

	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	b.startDBWriter()
	return nil
}

// setupDB migrates tables and creates default instance info if missing.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.LogManager.Logger()

	if !db.Migrator().HasTable(&model.SimInfo{}) {
		if err := db.AutoMigrate(&model.SimInfo{}); err != nil {
			log.Error("Failed to create sim_info table", "error", err)
			return fmt.Errorf("failed to auto-migrate SimInfo: %w", err)
		}
		if err := db.Create(&model.SimInfo{
			InstanceName: "strikesim",
			Description:  "engagement simulation recorder",
		}).Error; err != nil {
			return fmt.Errorf("failed to create sim_info entry: %w", err)
		}
	}

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS extension: %w", err)
		}
		log.Info("PostGIS extension created")
	}

	log.Info("Migrating schema")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("Database setup complete")
	return nil
}

// Close drains the queues one final time and stops the writer goroutine.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
	}
	b.drainQueues()
	return nil
}

// StartScenario creates the scenario row and stores its ID for the writer.
func (b *Backend) StartScenario(s *core.Scenario) error {
	gormScenario := convert.CoreToScenario(*s, 0)
	if err := b.deps.DB.Create(&gormScenario).Error; err != nil {
		return fmt.Errorf("failed to insert new scenario: %w", err)
	}

	s.ID = gormScenario.ID
	b.scenarioID.Store(uint64(gormScenario.ID))
	return nil
}

// SetScenarioID sets the current scenario ID for the DB writer.
func (b *Backend) SetScenarioID(id uint) {
	b.scenarioID.Store(uint64(id))
}

// EndScenario drains any queued records so the run is fully persisted.
func (b *Backend) EndScenario() error {
	b.drainQueues()
	return nil
}

// AddPlatformType inserts a platform profile synchronously; platform
// registration is low-volume and happens before the run starts.
func (b *Backend) AddPlatformType(p *core.PlatformType) error {
	gormObj := convert.CoreToPlatformType(*p)
	gormObj.ScenarioID = uint(b.scenarioID.Load())
	if err := b.deps.DB.Create(&gormObj).Error; err != nil {
		return fmt.Errorf("failed to insert platform type: %w", err)
	}
	return nil
}

// AddInstallation inserts an installation synchronously.
func (b *Backend) AddInstallation(inst *core.Installation) error {
	gormObj := convert.CoreToInstallation(*inst)
	gormObj.ScenarioID = uint(b.scenarioID.Load())
	if err := b.deps.DB.Create(&gormObj).Error; err != nil {
		return fmt.Errorf("failed to insert installation: %w", err)
	}
	return nil
}

// RecordLaunch converts a launched projectile and pushes to the write queue.
func (b *Backend) RecordLaunch(p *core.Projectile) error {
	gormObj := convert.CoreToLaunch(*p)
	b.queues.Launches.Add(gormObj)
	return nil
}

// RecordTrackPoint converts and queues a track point.
func (b *Backend) RecordTrackPoint(tp *core.TrackPoint) error {
	gormObj := convert.CoreToTrackPoint(*tp)
	b.queues.TrackPoints.Add(gormObj)
	return nil
}

// RecordOutcome converts and queues a terminal record. Monotonicity is
// enforced by the unique index on projectile_id: later writes for the
// same projectile are dropped at insert time.
func (b *Backend) RecordOutcome(o *core.OutcomeRecord) error {
	gormObj := convert.CoreToOutcome(*o)
	b.queues.Outcomes.Add(gormObj)
	return nil
}

// RecordDetection converts and queues a sensor report.
func (b *Backend) RecordDetection(d *core.DetectionEvent) error {
	gormObj := convert.CoreToDetection(*d)
	b.queues.Detections.Add(gormObj)
	return nil
}

// RecordEngagement upserts an engagement synchronously (not queued)
// because engagement state transitions are low-volume and the command
// module reads them back.
func (b *Backend) RecordEngagement(e *core.Engagement) error {
	gormObj := convert.CoreToEngagement(*e)
	gormObj.ScenarioID = uint(b.scenarioID.Load())

	var existing model.Engagement
	err := b.deps.DB.Where("engagement_id = ?", gormObj.EngagementID).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			if err := b.deps.DB.Create(&gormObj).Error; err != nil {
				return fmt.Errorf("failed to insert engagement: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to look up engagement: %w", err)
	}

	gormObj.ID = existing.ID
	gormObj.CreatedAt = existing.CreatedAt
	if err := b.deps.DB.Save(&gormObj).Error; err != nil {
		return fmt.Errorf("failed to update engagement: %w", err)
	}
	return nil
}

// RecordAttempt converts and queues an engagement attempt.
func (b *Backend) RecordAttempt(a *core.EngagementAttempt) error {
	gormObj := convert.CoreToAttempt(*a)
	b.queues.Attempts.Add(gormObj)
	return nil
}

// Lengths returns current write queue depths.
func (b *Backend) Lengths() QueueLengths {
	return QueueLengths{
		Launches:    b.queues.Launches.Len(),
		TrackPoints: b.queues.TrackPoints.Len(),
		Detections:  b.queues.Detections.Len(),
		Attempts:    b.queues.Attempts.Len(),
		Outcomes:    b.queues.Outcomes.Len(),
	}
}

// LastWriteDuration returns how long the most recent drain cycle took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWriteDuration.Load())
}

// writeQueue writes all items from a queue to the database in a transaction.
// conflict, when non-nil, is applied so duplicate-key rows are skipped
// instead of failing the whole batch.
func writeQueue[T any](db *gorm.DB, q *queue.Buffer[T], name string, log func(string, ...any), prepare func([]T), conflict *clause.OnConflict) {
	items := q.Drain()
	if len(items) == 0 {
		return
	}

	tx := db.Begin()
	if conflict != nil {
		tx = tx.Clauses(*conflict)
	}
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log("DB write failed", "records", name, "error", err)
		tx.Rollback()
		q.Add(items...)
		return
	}

	tx.Commit()
}

// drainQueues performs one full write cycle over all queues.
func (b *Backend) drainQueues() {
	if !b.dbReady {
		return
	}

	log := b.deps.LogManager.Logger().Error
	start := time.Now()

	// Read scenarioID once per write cycle
	scenarioID := uint(b.scenarioID.Load())

	stampLaunches := func(items []model.Launch) {
		for i := range items {
			items[i].ScenarioID = scenarioID
		}
	}
	stampTrackPoints := func(items []model.TrackPoint) {
		for i := range items {
			items[i].ScenarioID = scenarioID
		}
	}
	stampDetections := func(items []model.Detection) {
		for i := range items {
			items[i].ScenarioID = scenarioID
		}
	}
	stampAttempts := func(items []model.EngagementAttempt) {
		for i := range items {
			items[i].ScenarioID = scenarioID
		}
	}
	stampOutcomes := func(items []model.Outcome) {
		for i := range items {
			items[i].ScenarioID = scenarioID
		}
	}

	writeQueue(b.deps.DB, b.queues.Launches, "launches", log, stampLaunches, nil)
	writeQueue(b.deps.DB, b.queues.TrackPoints, "track points", log, stampTrackPoints, nil)
	writeQueue(b.deps.DB, b.queues.Detections, "detections", log, stampDetections, nil)

	// Attempts are upserted by their UUID so a redelivered result updates
	// the queued row instead of duplicating it.
	writeQueue(b.deps.DB, b.queues.Attempts, "attempts", log, stampAttempts, &clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}},
		UpdateAll: true,
	})

	// First terminal record for a projectile wins.
	writeQueue(b.deps.DB, b.queues.Outcomes, "outcomes", log, stampOutcomes, &clause.OnConflict{
		Columns:   []clause.Column{{Name: "projectile_id"}},
		DoNothing: true,
	})

	b.lastWriteDuration.Store(int64(time.Since(start)))
}

// startDBWriter starts the background goroutine that periodically drains
// queues into the DB.
func (b *Backend) startDBWriter() {
	go func() {
		ticker := time.NewTicker(b.deps.WriteInterval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				b.drainQueues()
			}
		}
	}()
}
