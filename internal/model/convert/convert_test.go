package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/strikesim/strikesim/pkg/core"
)

func TestInstallation_RoundTrip(t *testing.T) {
	inst := core.Installation{
		Callsign: "alpha-battery",
		Role:     core.RoleCounterDefense,
		Platform: core.PlatformType{Nickname: "interceptor-mk2"},
		Position: core.Position3D{Lon: 121.5, Lat: 25.0, Alt: 12},
		Status:   core.InstallationActive,
		Mobile:   true,
		MovePath: core.Polyline{
			{Lon: 121.5, Lat: 25.0},
			{Lon: 121.6, Lat: 25.1},
		},
		MoveSpeedMps: 8,
		AmmoCount:    6,
	}

	gormObj := CoreToInstallation(inst)
	back := InstallationToCore(gormObj)

	assert.Equal(t, inst.Callsign, back.Callsign)
	assert.Equal(t, inst.Role, back.Role)
	assert.Equal(t, inst.Platform.Nickname, back.Platform.Nickname)
	assert.InDelta(t, inst.Position.Lon, back.Position.Lon, 1e-9)
	assert.InDelta(t, inst.Position.Lat, back.Position.Lat, 1e-9)
	assert.Equal(t, inst.Status, back.Status)
	assert.True(t, back.Mobile)
	assert.Len(t, back.MovePath, 2)
	assert.InDelta(t, 121.6, back.MovePath[1].Lon, 1e-9)
	assert.Equal(t, 6, back.AmmoCount)
}

func TestInstallation_EmptyMovePath(t *testing.T) {
	inst := core.Installation{Callsign: "static-radar", Role: core.RoleDetection}

	gormObj := CoreToInstallation(inst)
	back := InstallationToCore(gormObj)

	assert.Nil(t, back.MovePath)
}

func TestTrackPoint_RoundTrip(t *testing.T) {
	tp := core.TrackPoint{
		ProjectileID:  "c1a7e2f0-0000-0000-0000-000000000001",
		Tick:          42,
		Time:          time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Position:      core.Position3D{Lon: 120.1, Lat: 24.3, Alt: 8500},
		Velocity:      core.Vector3{X: 300, Y: -40, Z: 12},
		FuelRemaining: 31.5,
	}

	gormObj := CoreToTrackPoint(tp)
	assert.InDelta(t, tp.Velocity.Magnitude(), gormObj.SpeedMps, 1e-9)
	assert.InDelta(t, 8500, gormObj.ElevationM, 1e-9)

	back := TrackPointToCore(gormObj)
	assert.Equal(t, tp.ProjectileID, back.ProjectileID)
	assert.Equal(t, tp.Tick, back.Tick)
	assert.InDelta(t, tp.Position.Alt, back.Position.Alt, 1e-9)
	assert.InDelta(t, tp.Velocity.Y, back.Velocity.Y, 1e-9)
	assert.InDelta(t, tp.FuelRemaining, back.FuelRemaining, 1e-9)
}

func TestEngagement_ResolvedAtNullability(t *testing.T) {
	open := core.Engagement{ID: "e-1", State: core.ThreatEngaged}
	gormOpen := CoreToEngagement(open)
	assert.False(t, gormOpen.ResolvedAt.Valid, "zero ResolvedAt maps to NULL")

	resolved := core.Engagement{
		ID:         "e-2",
		State:      core.ThreatResolved,
		Resolution: core.ResolutionIntercepted,
		ResolvedAt: time.Now(),
	}
	gormResolved := CoreToEngagement(resolved)
	assert.True(t, gormResolved.ResolvedAt.Valid)

	back := EngagementToCore(gormResolved)
	assert.Equal(t, core.ResolutionIntercepted, back.Resolution)
	assert.False(t, back.ResolvedAt.IsZero())
}

func TestOutcome_DiagnosticsJSON(t *testing.T) {
	o := core.OutcomeRecord{
		ProjectileID: "p-1",
		Status:       core.StatusDestroyed,
		Notes:        "state diverged, force terminated",
	}

	gormObj := CoreToOutcome(o)
	assert.JSONEq(t, `{"notes":"state diverged, force terminated"}`, string(gormObj.Diagnostics))

	empty := CoreToOutcome(core.OutcomeRecord{ProjectileID: "p-2"})
	assert.Equal(t, "{}", string(empty.Diagnostics))
}

func TestLaunch_DefenseFields(t *testing.T) {
	p := core.Projectile{
		ID:                 "d-1",
		Callsign:           "alpha-battery",
		Kind:               core.KindDefense,
		Platform:           core.PlatformType{Nickname: "interceptor-mk2"},
		LaunchTick:         100,
		TargetProjectileID: "a-1",
		EngagementID:       "e-1",
		AttemptID:          "at-1",
	}

	gormObj := CoreToLaunch(p)
	assert.Equal(t, "defense", gormObj.Kind)
	assert.Equal(t, "a-1", gormObj.TargetProjectileID)
	assert.Equal(t, "e-1", gormObj.EngagementID)
	assert.Equal(t, "at-1", gormObj.AttemptID)
	assert.Equal(t, int64(100), gormObj.Tick)
}
