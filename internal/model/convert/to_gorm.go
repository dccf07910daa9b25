// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"

	"github.com/strikesim/strikesim/internal/geo"
	"github.com/strikesim/strikesim/internal/model"
	"github.com/strikesim/strikesim/pkg/core"
	"gorm.io/datatypes"
)

// diagnosticsToJSON converts a diagnostics map to datatypes.JSON for DB storage.
func diagnosticsToJSON(notes string) datatypes.JSON {
	if notes == "" {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(map[string]string{"notes": notes})
	return datatypes.JSON(data)
}

// CoreToScenario converts a core.Scenario to a GORM model.Scenario.
func CoreToScenario(s core.Scenario, tickMs uint) model.Scenario {
	return model.Scenario{
		Name:      s.Name,
		Theater:   s.Theater,
		StartTime: s.StartTime,
		TickMs:    tickMs,
	}
}

// CoreToPlatformType converts a core.PlatformType to a GORM model.PlatformType.
func CoreToPlatformType(p core.PlatformType) model.PlatformType {
	return model.PlatformType{
		Nickname:            p.Nickname,
		Category:            string(p.Category),
		MaxSpeedMps:         p.MaxSpeedMps,
		MaxRangeM:           p.MaxRangeM,
		MaxAltitudeM:        p.MaxAltitudeM,
		BlastRadiusM:        p.BlastRadiusM,
		FuelCapacityKg:      p.FuelCapacityKg,
		FuelConsumptionKgps: p.FuelConsumptionKgps,
		ThrustN:             p.ThrustN,
		MassKg:              p.MassKg,
		DragCoefficient:     p.DragCoefficient,
		CrossSectionM2:      p.CrossSectionM2,
		AccuracyPercent:     p.AccuracyPercent,
		ReloadTimeSec:       p.ReloadTimeSec,
		DetectionRangeM:     p.DetectionRangeM,
		SweepRateDegSec:     p.SweepRateDegSec,
	}
}

// CoreToInstallation converts a core.Installation to a GORM model.Installation.
func CoreToInstallation(inst core.Installation) model.Installation {
	return model.Installation{
		Callsign:         inst.Callsign,
		Role:             string(inst.Role),
		PlatformNickname: inst.Platform.Nickname,
		Position:         geo.Point4326(inst.Position),
		Status:           string(inst.Status),
		Mobile:           inst.Mobile,
		MovePath:         geo.PathLineString(inst.MovePath),
		MoveSpeedMps:     inst.MoveSpeedMps,
		AmmoCount:        inst.AmmoCount,
	}
}

// CoreToLaunch converts a launched core.Projectile to a GORM model.Launch.
func CoreToLaunch(p core.Projectile) model.Launch {
	return model.Launch{
		Time:               p.LaunchTime,
		ProjectileID:       p.ID,
		Callsign:           p.Callsign,
		Kind:               string(p.Kind),
		PlatformNickname:   p.Platform.Nickname,
		Tick:               int64(p.LaunchTick),
		LaunchPosition:     geo.Point4326(p.LaunchPosition),
		TargetPosition:     geo.Point4326(p.TargetPosition),
		TargetProjectileID: p.TargetProjectileID,
		EngagementID:       p.EngagementID,
		AttemptID:          p.AttemptID,
	}
}

// CoreToTrackPoint converts a core.TrackPoint to a GORM model.TrackPoint.
func CoreToTrackPoint(tp core.TrackPoint) model.TrackPoint {
	return model.TrackPoint{
		Time:          tp.Time,
		Tick:          int64(tp.Tick),
		ProjectileID:  tp.ProjectileID,
		Position:      geo.Point4326(tp.Position),
		ElevationM:    tp.Position.Alt,
		VelocityEast:  tp.Velocity.X,
		VelocityNorth: tp.Velocity.Y,
		VelocityUp:    tp.Velocity.Z,
		SpeedMps:      tp.Velocity.Magnitude(),
		FuelRemaining: tp.FuelRemaining,
	}
}

// CoreToDetection converts a core.DetectionEvent to a GORM model.Detection.
func CoreToDetection(d core.DetectionEvent) model.Detection {
	return model.Detection{
		Time:               d.Time,
		Tick:               int64(d.Tick),
		RadarCallsign:      d.InstallationCallsign,
		TargetProjectileID: d.ProjectileID,
		Position:           geo.Point4326(d.Position),
		SignalStrengthDb:   d.SignalStrengthDb,
		Confidence:         d.Confidence,
	}
}

// CoreToEngagement converts a core.Engagement to a GORM model.Engagement.
func CoreToEngagement(e core.Engagement) model.Engagement {
	var resolvedAt sql.NullTime
	if !e.ResolvedAt.IsZero() {
		resolvedAt = sql.NullTime{Time: e.ResolvedAt, Valid: true}
	}

	return model.Engagement{
		EngagementID:       e.ID,
		TargetProjectileID: e.TargetProjectileID,
		State:              string(e.State),
		Resolution:         string(e.Resolution),
		AttemptCount:       e.AttemptCount,
		ResolvedAt:         resolvedAt,
	}
}

// CoreToAttempt converts a core.EngagementAttempt to a GORM model.EngagementAttempt.
func CoreToAttempt(a core.EngagementAttempt) model.EngagementAttempt {
	return model.EngagementAttempt{
		Time:            a.LaunchTime,
		AttemptID:       a.ID,
		EngagementID:    a.EngagementID,
		Number:          a.Number,
		BatteryCallsign: a.BatteryCallsign,
		Outcome:         string(a.Outcome),
		FailureReason:   a.FailureReason,
	}
}

// CoreToOutcome converts a core.OutcomeRecord to a GORM model.Outcome.
func CoreToOutcome(o core.OutcomeRecord) model.Outcome {
	return model.Outcome{
		Time:           o.Time,
		ProjectileID:   o.ProjectileID,
		Callsign:       o.Callsign,
		Kind:           string(o.Kind),
		Status:         string(o.Status),
		Tick:           int64(o.Tick),
		Position:       geo.Point4326(o.Position),
		ElevationM:     o.Position.Alt,
		BlastRadiusM:   o.BlastRadiusM,
		TargetAchieved: o.TargetAchieved,
		InterceptorID:  o.InterceptorID,
		Diagnostics:    diagnosticsToJSON(o.Notes),
	}
}
