// Package convert provides functions to convert GORM models to core models
package convert

import (
	"github.com/strikesim/strikesim/internal/model"
	"github.com/strikesim/strikesim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// pointToPosition3D converts a geom.Point to a core.Position3D
func pointToPosition3D(p geom.Point) core.Position3D {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Position3D{}
	}
	return core.Position3D{Lon: coord.XY.X, Lat: coord.XY.Y, Alt: coord.Z}
}

// lineStringToPolyline converts a geom.LineString to a core.Polyline
func lineStringToPolyline(ls geom.LineString) core.Polyline {
	seq := ls.Coordinates()
	if seq.Length() == 0 {
		return nil
	}
	polyline := make(core.Polyline, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		pt := seq.GetXY(i)
		polyline[i] = core.Position2D{Lon: pt.X, Lat: pt.Y}
	}
	return polyline
}

// ScenarioToCore converts a GORM model.Scenario to a core.Scenario.
func ScenarioToCore(s model.Scenario) core.Scenario {
	return core.Scenario{
		ID:        s.ID,
		Name:      s.Name,
		Theater:   s.Theater,
		StartTime: s.StartTime,
	}
}

// PlatformTypeToCore converts a GORM model.PlatformType to a core.PlatformType.
func PlatformTypeToCore(p model.PlatformType) core.PlatformType {
	return core.PlatformType{
		Nickname:            p.Nickname,
		Category:            core.Role(p.Category),
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

// InstallationToCore converts a GORM model.Installation to a core.Installation.
// The platform profile is resolved separately via the site cache.
func InstallationToCore(inst model.Installation) core.Installation {
	return core.Installation{
		Callsign:     inst.Callsign,
		Role:         core.Role(inst.Role),
		Platform:     core.PlatformType{Nickname: inst.PlatformNickname},
		Position:     pointToPosition3D(inst.Position),
		Status:       core.InstallationStatus(inst.Status),
		Mobile:       inst.Mobile,
		MovePath:     lineStringToPolyline(inst.MovePath),
		MoveSpeedMps: inst.MoveSpeedMps,
		AmmoCount:    inst.AmmoCount,
	}
}

// TrackPointToCore converts a GORM model.TrackPoint to a core.TrackPoint.
func TrackPointToCore(tp model.TrackPoint) core.TrackPoint {
	pos := pointToPosition3D(tp.Position)
	pos.Alt = tp.ElevationM
	return core.TrackPoint{
		ProjectileID:  tp.ProjectileID,
		Tick:          uint64(tp.Tick),
		Time:          tp.Time,
		Position:      pos,
		Velocity:      core.Vector3{X: tp.VelocityEast, Y: tp.VelocityNorth, Z: tp.VelocityUp},
		FuelRemaining: tp.FuelRemaining,
	}
}

// DetectionToCore converts a GORM model.Detection to a core.DetectionEvent.
func DetectionToCore(d model.Detection) core.DetectionEvent {
	return core.DetectionEvent{
		InstallationCallsign: d.RadarCallsign,
		ProjectileID:         d.TargetProjectileID,
		Position:             pointToPosition3D(d.Position),
		Confidence:           d.Confidence,
		SignalStrengthDb:     d.SignalStrengthDb,
		Tick:                 uint64(d.Tick),
		Time:                 d.Time,
	}
}

// EngagementToCore converts a GORM model.Engagement to a core.Engagement.
func EngagementToCore(e model.Engagement) core.Engagement {
	out := core.Engagement{
		ID:                 e.EngagementID,
		TargetProjectileID: e.TargetProjectileID,
		State:              core.EngagementState(e.State),
		Resolution:         core.Resolution(e.Resolution),
		CreatedAt:          e.CreatedAt,
		AttemptCount:       e.AttemptCount,
	}
	if e.ResolvedAt.Valid {
		out.ResolvedAt = e.ResolvedAt.Time
	}
	return out
}

// AttemptToCore converts a GORM model.EngagementAttempt to a core.EngagementAttempt.
func AttemptToCore(a model.EngagementAttempt) core.EngagementAttempt {
	return core.EngagementAttempt{
		ID:              a.AttemptID,
		EngagementID:    a.EngagementID,
		Number:          a.Number,
		BatteryCallsign: a.BatteryCallsign,
		LaunchTime:      a.Time,
		Outcome:         core.AttemptOutcome(a.Outcome),
		FailureReason:   a.FailureReason,
	}
}

// OutcomeToCore converts a GORM model.Outcome to a core.OutcomeRecord.
func OutcomeToCore(o model.Outcome) core.OutcomeRecord {
	pos := pointToPosition3D(o.Position)
	pos.Alt = o.ElevationM
	return core.OutcomeRecord{
		ProjectileID:   o.ProjectileID,
		Callsign:       o.Callsign,
		Kind:           core.ProjectileKind(o.Kind),
		Status:         core.ProjectileStatus(o.Status),
		Position:       pos,
		Tick:           uint64(o.Tick),
		Time:           o.Time,
		BlastRadiusM:   o.BlastRadiusM,
		TargetAchieved: o.TargetAchieved,
		InterceptorID:  o.InterceptorID,
	}
}
