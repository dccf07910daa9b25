package gormdb

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikesim/strikesim/internal/cache"
	"github.com/strikesim/strikesim/internal/database"
	"github.com/strikesim/strikesim/internal/logging"
	"github.com/strikesim/strikesim/internal/model"
	"github.com/strikesim/strikesim/pkg/core"
)

var dbCounter int

// newTestBackend creates a backend on a private in-memory SQLite DB.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	dbCounter++
	dsn := fmt.Sprintf("file:gormdb_test_%d?mode=memory&cache=shared", dbCounter)
	db, err := database.GetSqliteDBStandalone(dsn)
	require.NoError(t, err)

	b := New(Dependencies{
		DB:            db,
		SiteCache:     cache.NewSiteCache(),
		LogManager:    logging.NewSlogManager(),
		WriteInterval: time.Hour, // drain manually via EndScenario
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })

	return b
}

func TestInit_RequiresDB(t *testing.T) {
	b := New(Dependencies{LogManager: logging.NewSlogManager()})
	err := b.Init()
	assert.Error(t, err)
}

func TestStartScenario_AssignsID(t *testing.T) {
	b := newTestBackend(t)

	s := &core.Scenario{Name: "migration-check", StartTime: time.Now()}
	require.NoError(t, b.StartScenario(s))
	assert.NotZero(t, s.ID)

	var row model.Scenario
	require.NoError(t, b.deps.DB.First(&row, s.ID).Error)
	assert.Equal(t, "migration-check", row.Name)
	assert.WithinDuration(t, s.StartTime, row.StartTime, time.Second)
}

func TestAddInstallation_Synchronous(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.StartScenario(&core.Scenario{Name: "assets"}))

	inst := &core.Installation{
		Callsign:  "alpha-battery",
		Role:      core.RoleCounterDefense,
		Position:  core.Position3D{Lon: 121.5, Lat: 25.0, Alt: 10},
		Status:    core.InstallationActive,
		AmmoCount: 6,
	}
	require.NoError(t, b.AddInstallation(inst))

	var row model.Installation
	require.NoError(t, b.deps.DB.Where("callsign = ?", "alpha-battery").First(&row).Error)
	assert.Equal(t, string(core.RoleCounterDefense), row.Role)
	assert.Equal(t, 6, row.AmmoCount)
}

func TestRecordLaunch_BatchedWrite(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.StartScenario(&core.Scenario{Name: "launches"}))

	b.RecordLaunch(&core.Projectile{ID: "p-1", Callsign: "north-site", Kind: core.KindAttack, LaunchTime: time.Now()})
	b.RecordLaunch(&core.Projectile{ID: "p-2", Callsign: "north-site", Kind: core.KindAttack, LaunchTime: time.Now()})

	// Queued, not yet written
	assert.Equal(t, 2, b.Lengths().Launches)

	require.NoError(t, b.EndScenario())
	assert.Equal(t, 0, b.Lengths().Launches)

	var count int64
	b.deps.DB.Model(&model.Launch{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestRecordTrackPoints_StampedWithScenario(t *testing.T) {
	b := newTestBackend(t)
	s := &core.Scenario{Name: "tracks"}
	require.NoError(t, b.StartScenario(s))

	for tick := uint64(1); tick <= 5; tick++ {
		b.RecordTrackPoint(&core.TrackPoint{
			ProjectileID: "p-1",
			Tick:         tick,
			Time:         time.Now(),
			Position:     core.Position3D{Lon: 121, Lat: 24, Alt: float64(tick) * 100},
			Velocity:     core.Vector3{X: 200},
		})
	}
	require.NoError(t, b.EndScenario())

	var rows []model.TrackPoint
	require.NoError(t, b.deps.DB.Where("projectile_id = ?", "p-1").Order("tick").Find(&rows).Error)
	require.Len(t, rows, 5)
	for i, row := range rows {
		assert.Equal(t, s.ID, row.ScenarioID)
		assert.Equal(t, int64(i+1), row.Tick)
	}
	assert.InDelta(t, 500, rows[4].ElevationM, 1e-9)
}

func TestRecordOutcome_FirstWriteWins(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.StartScenario(&core.Scenario{Name: "outcomes"}))

	b.RecordOutcome(&core.OutcomeRecord{ProjectileID: "p-1", Status: core.StatusDestroyed, Tick: 10, Time: time.Now()})
	require.NoError(t, b.EndScenario())

	// Later conflicting write is dropped at insert time
	b.RecordOutcome(&core.OutcomeRecord{ProjectileID: "p-1", Status: core.StatusDetonated, Tick: 11, Time: time.Now()})
	require.NoError(t, b.EndScenario())

	var rows []model.Outcome
	require.NoError(t, b.deps.DB.Where("projectile_id = ?", "p-1").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, string(core.StatusDestroyed), rows[0].Status)
	assert.Equal(t, int64(10), rows[0].Tick)
}

func TestRecordEngagement_Upsert(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.StartScenario(&core.Scenario{Name: "engagements"}))

	require.NoError(t, b.RecordEngagement(&core.Engagement{
		ID:                 "e-1",
		TargetProjectileID: "p-1",
		State:              core.ThreatEngaged,
	}))
	require.NoError(t, b.RecordEngagement(&core.Engagement{
		ID:                 "e-1",
		TargetProjectileID: "p-1",
		State:              core.ThreatResolved,
		Resolution:         core.ResolutionIntercepted,
		ResolvedAt:         time.Now(),
		AttemptCount:       2,
	}))

	var rows []model.Engagement
	require.NoError(t, b.deps.DB.Where("engagement_id = ?", "e-1").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, string(core.ThreatResolved), rows[0].State)
	assert.Equal(t, string(core.ResolutionIntercepted), rows[0].Resolution)
	assert.Equal(t, 2, rows[0].AttemptCount)
	assert.True(t, rows[0].ResolvedAt.Valid)
}

func TestRecordAttempt_RedeliveryUpdates(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.StartScenario(&core.Scenario{Name: "attempts"}))

	b.RecordAttempt(&core.EngagementAttempt{ID: "at-1", EngagementID: "e-1", Number: 1, Outcome: core.AttemptAttempted, LaunchTime: time.Now()})
	require.NoError(t, b.EndScenario())

	b.RecordAttempt(&core.EngagementAttempt{ID: "at-1", EngagementID: "e-1", Number: 1, Outcome: core.AttemptFailed, FailureReason: core.FailureMissed, LaunchTime: time.Now()})
	require.NoError(t, b.EndScenario())

	var rows []model.EngagementAttempt
	require.NoError(t, b.deps.DB.Where("attempt_id = ?", "at-1").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, string(core.AttemptFailed), rows[0].Outcome)
	assert.Equal(t, core.FailureMissed, rows[0].FailureReason)
}

func TestDetections_Queued(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.StartScenario(&core.Scenario{Name: "detections"}))

	b.RecordDetection(&core.DetectionEvent{
		InstallationCallsign: "radar-1",
		ProjectileID:         "p-1",
		Confidence:           0.4,
		Tick:                 7,
		Time:                 time.Now(),
	})
	require.NoError(t, b.EndScenario())

	var row model.Detection
	require.NoError(t, b.deps.DB.Where("radar_callsign = ?", "radar-1").First(&row).Error)
	assert.Equal(t, "p-1", row.TargetProjectileID)
	assert.InDelta(t, 0.4, row.Confidence, 1e-9)
}
