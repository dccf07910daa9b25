package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// Time columns carry no dialect-specific column type: the same models
// must scan back through both postgres and the sqlite fallback.

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&SimInfo{},
	&Scenario{},
	&PlatformType{},
	&Installation{},
	&Launch{},
	&TrackPoint{},
	&Detection{},
	&Engagement{},
	&EngagementAttempt{},
	&Outcome{},
	&SimPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// SimInfo contains information about the simulator instance
type SimInfo struct {
	gorm.Model
	InstanceName string `json:"instanceName" gorm:"size:127"`
	Description  string `json:"description" gorm:"size:255"`
}

func (*SimInfo) TableName() string {
	return "sim_infos"
}

// SimPerformance is the model for per-cycle engine performance metrics
type SimPerformance struct {
	Time                time.Time         `json:"time" gorm:"index:idx_time"`
	ScenarioID          uint              `json:"scenarioId" gorm:"index:idx_simperformance_scenario_id"`
	Scenario            Scenario          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ScenarioID;"`
	Tick                int64             `json:"tick"`
	ActiveProjectiles   uint16            `json:"activeProjectiles"`
	TrackedThreats      uint16            `json:"trackedThreats"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	TickDurationMs      float32           `json:"tickDurationMs"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*SimPerformance) TableName() string {
	return "sim_performances"
}

// WriteQueueLengths is the model for the write queue lengths
type WriteQueueLengths struct {
	Launches    uint16 `json:"launches"`
	TrackPoints uint16 `json:"trackPoints"`
	Detections  uint16 `json:"detections"`
	Engagements uint16 `json:"engagements"`
	Attempts    uint16 `json:"attempts"`
	Outcomes    uint16 `json:"outcomes"`
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Scenario is the main model for one simulation run
type Scenario struct {
	gorm.Model
	Name      string    `json:"name" gorm:"size:200"`
	Theater   string    `json:"theater" gorm:"size:127"`
	StartTime time.Time `json:"startTime" gorm:"index:idx_scenario_start"`
	TickMs    uint      `json:"tickMs" gorm:"default:100"`
	Tag       string    `json:"tag" gorm:"size:127"`

	PlatformTypes []PlatformType
	Installations []Installation
	Launches      []Launch
	Engagements   []Engagement
	Outcomes      []Outcome
}

func (*Scenario) TableName() string {
	return "scenarios"
}

// PlatformType is the physical profile shared by every round or sensor
// of one platform class
type PlatformType struct {
	gorm.Model
	ScenarioID          uint     `json:"scenarioId" gorm:"index:idx_platformtype_scenario_id"`
	Scenario            Scenario `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ScenarioID;"`
	Nickname            string   `json:"nickname" gorm:"size:64;index:idx_platformtype_nickname"`
	Category            string   `json:"category" gorm:"size:32"`
	MaxSpeedMps         float64  `json:"maxSpeedMps"`
	MaxRangeM           float64  `json:"maxRangeM"`
	MaxAltitudeM        float64  `json:"maxAltitudeM"`
	BlastRadiusM        float64  `json:"blastRadiusM"`
	FuelCapacityKg      float64  `json:"fuelCapacityKg"`
	FuelConsumptionKgps float64  `json:"fuelConsumptionKgps"`
	ThrustN             float64  `json:"thrustN"`
	MassKg              float64  `json:"massKg"`
	DragCoefficient     float64  `json:"dragCoefficient"`
	CrossSectionM2      float64  `json:"crossSectionM2"`
	AccuracyPercent     float64  `json:"accuracyPercent"`
	ReloadTimeSec       float64  `json:"reloadTimeSec"`
	DetectionRangeM     float64  `json:"detectionRangeM"`
	SweepRateDegSec     float64  `json:"sweepRateDegSec"`
}

func (*PlatformType) TableName() string {
	return "platform_types"
}

// Installation is a launch platform, detection system, or counter-defense battery.
// Uses composite primary key (ScenarioID, Callsign).
type Installation struct {
	ScenarioID       uint           `json:"scenarioId" gorm:"primaryKey;autoIncrement:false"`
	Callsign         string         `json:"callsign" gorm:"primaryKey;size:64"`
	Scenario         Scenario       `gorm:"foreignkey:ScenarioID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"deletedAt" gorm:"index"`
	Role             string         `json:"role" gorm:"size:32"`
	PlatformNickname string         `json:"platformNickname" gorm:"size:64"`
	Position         geom.Point     `json:"position"` // lon/lat with altitude as Z
	Status           string         `json:"status" gorm:"size:16;default:active"`
	Mobile           bool           `json:"mobile" gorm:"default:false"`
	MovePath         geom.LineString `json:"movePath"` // patrol path for mobile installations
	MoveSpeedMps     float64        `json:"moveSpeedMps"`
	AmmoCount        int            `json:"ammoCount"`
}

func (*Installation) TableName() string {
	return "installations"
}

// Launch records one projectile entering the simulation
type Launch struct {
	ID               uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time             time.Time  `json:"time"`
	ScenarioID       uint       `json:"scenarioId" gorm:"index:idx_launch_scenario_id"`
	Scenario         Scenario   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ScenarioID;"`
	ProjectileID     string     `json:"projectileId" gorm:"size:36;index:idx_launch_projectile_id"`
	Callsign         string     `json:"callsign" gorm:"size:64"`
	Kind             string     `json:"kind" gorm:"size:16"`
	PlatformNickname string     `json:"platformNickname" gorm:"size:64"`
	Tick             int64      `json:"tick"`
	LaunchPosition   geom.Point `json:"launchPosition"`
	TargetPosition   geom.Point `json:"targetPosition"`

	// Defense rounds only
	TargetProjectileID string `json:"targetProjectileId" gorm:"size:36;default:NULL"`
	EngagementID       string `json:"engagementId" gorm:"size:36;default:NULL"`
	AttemptID          string `json:"attemptId" gorm:"size:36;default:NULL"`
}

func (*Launch) TableName() string {
	return "launches"
}

// TrackPoint is one per-tick position sample of an active projectile
type TrackPoint struct {
	ID            uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time          time.Time  `json:"time"`
	ScenarioID    uint       `json:"scenarioId" gorm:"index:idx_trackpoint_scenario_id"`
	Scenario      Scenario   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ScenarioID;"`
	Tick          int64      `json:"tick" gorm:"index:idx_trackpoint_tick"`
	ProjectileID  string     `json:"projectileId" gorm:"size:36;index:idx_trackpoint_projectile_id"`
	Position      geom.Point `json:"position"` // lon/lat as 2D point
	ElevationM    float64    `json:"elevationM"`
	VelocityEast  float64    `json:"velocityEast"`
	VelocityNorth float64    `json:"velocityNorth"`
	VelocityUp    float64    `json:"velocityUp"`
	SpeedMps      float64    `json:"speedMps"`
	FuelRemaining float64    `json:"fuelRemaining"`
}

func (*TrackPoint) TableName() string {
	return "track_points"
}

// Detection is one sensor report of a tracked projectile
type Detection struct {
	ID                 uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time               time.Time  `json:"time"`
	ScenarioID         uint       `json:"scenarioId" gorm:"index:idx_detection_scenario_id"`
	Scenario           Scenario   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ScenarioID;"`
	Tick               int64      `json:"tick"`
	RadarCallsign      string     `json:"radarCallsign" gorm:"size:64;index:idx_detection_radar_callsign"`
	TargetProjectileID string     `json:"targetProjectileId" gorm:"size:36;index:idx_detection_target_id"`
	Position           geom.Point `json:"position"` // estimated position, not true
	SignalStrengthDb   float64    `json:"signalStrengthDb"`
	Confidence         float64    `json:"confidence"`
}

func (*Detection) TableName() string {
	return "detections"
}

// Engagement binds one threat to a bounded sequence of intercept attempts
type Engagement struct {
	ID                 uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	ScenarioID         uint           `json:"scenarioId" gorm:"index:idx_engagement_scenario_id"`
	Scenario           Scenario       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ScenarioID;"`
	EngagementID       string         `json:"engagementId" gorm:"size:36;uniqueIndex:idx_engagement_uuid"`
	TargetProjectileID string         `json:"targetProjectileId" gorm:"size:36;index:idx_engagement_target_id"`
	State              string         `json:"state" gorm:"size:16"`
	Resolution         string         `json:"resolution" gorm:"size:16;default:NULL"`
	AttemptCount       int            `json:"attemptCount"`
	ResolvedAt         sql.NullTime   `json:"resolvedAt" gorm:"default:NULL"`
	Attempts           []EngagementAttempt `gorm:"foreignkey:EngagementID;references:EngagementID"`
}

func (*Engagement) TableName() string {
	return "engagements"
}

// EngagementAttempt is a single battery fire-and-resolve cycle
type EngagementAttempt struct {
	ID              uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time            time.Time `json:"time"`
	ScenarioID      uint      `json:"scenarioId" gorm:"index:idx_attempt_scenario_id"`
	AttemptID       string    `json:"attemptId" gorm:"size:36;uniqueIndex:idx_attempt_uuid"`
	EngagementID    string    `json:"engagementId" gorm:"size:36;index:idx_attempt_engagement_id"`
	Number          int       `json:"number"`
	BatteryCallsign string    `json:"batteryCallsign" gorm:"size:64"`
	Outcome         string    `json:"outcome" gorm:"size:16"`
	FailureReason   string    `json:"failureReason" gorm:"size:32;default:NULL"`
	InterceptorID   string    `json:"interceptorId" gorm:"size:36;default:NULL"`
}

func (*EngagementAttempt) TableName() string {
	return "engagement_attempts"
}

// Outcome is the durable terminal record for a projectile.
// Once written for a projectile it never changes.
type Outcome struct {
	ID             uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time           time.Time      `json:"time"`
	ScenarioID     uint           `json:"scenarioId" gorm:"index:idx_outcome_scenario_id"`
	Scenario       Scenario       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ScenarioID;"`
	ProjectileID   string         `json:"projectileId" gorm:"size:36;uniqueIndex:idx_outcome_projectile_id"`
	Callsign       string         `json:"callsign" gorm:"size:64"`
	Kind           string         `json:"kind" gorm:"size:16"`
	Status         string         `json:"status" gorm:"size:24"`
	Tick           int64          `json:"tick"`
	Position       geom.Point     `json:"position"`
	ElevationM     float64        `json:"elevationM"`
	BlastRadiusM   float64        `json:"blastRadiusM"`
	TargetAchieved bool           `json:"targetAchieved" gorm:"default:false"`
	InterceptorID  string         `json:"interceptorId" gorm:"size:36;default:NULL"`
	Diagnostics    datatypes.JSON `json:"diagnostics" gorm:"type:jsonb;default:'{}'"`
}

func (*Outcome) TableName() string {
	return "outcomes"
}
