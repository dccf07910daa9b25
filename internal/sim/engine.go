// Package sim implements the trajectory engine: the single owner of all
// in-flight projectile state. Projectiles are created on launch, advanced
// on a fixed tick, and transition to a terminal status exactly once.
package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/strikesim/strikesim/internal/bus"
	"github.com/strikesim/strikesim/internal/cache"
	"github.com/strikesim/strikesim/internal/geo"
	"github.com/strikesim/strikesim/internal/logging"
	"github.com/strikesim/strikesim/internal/physics"
	"github.com/strikesim/strikesim/internal/scenario"
	"github.com/strikesim/strikesim/internal/store"
	"github.com/strikesim/strikesim/pkg/core"
	"github.com/strikesim/strikesim/pkg/streaming"
)

// initialSpeedCapMps bounds the launch speed regardless of platform rating.
const initialSpeedCapMps = 1000.0

// underwaterLaunchSpeedMps is the initial upward speed of a submerged launch.
const underwaterLaunchSpeedMps = 50.0

// Dependencies holds everything the engine needs injected.
type Dependencies struct {
	Bus        *bus.Bus
	Store      store.Backend
	Sites      *cache.SiteCache
	Scenario   *scenario.Context
	LogManager *logging.SlogManager

	Physics physics.Constants

	// TickMs is the simulated duration of one tick in milliseconds.
	// Zero selects the default of 100 ms.
	TickMs int

	// StallSpeedMps is the speed below which a descending, fuel-empty
	// round is declared fuel_exhausted. Zero selects 25 m/s.
	StallSpeedMps float64

	// TickWorkers bounds the per-tick update fan-out. Zero selects 8.
	TickWorkers int
}

// Engine advances all active projectiles once per tick and publishes the
// tick's events after every update has been applied.
type Engine struct {
	deps Dependencies
	dt   float64 // tick duration in seconds

	lastTickNs atomic.Int64

	mu          sync.Mutex
	projectiles map[string]*core.Projectile
}

// New creates a trajectory engine. Call Subscribe to attach it to the
// bus and Run to start the tick loop.
func New(deps Dependencies) *Engine {
	if deps.TickMs <= 0 {
		deps.TickMs = 100
	}
	if deps.StallSpeedMps <= 0 {
		deps.StallSpeedMps = 25.0
	}
	if deps.TickWorkers <= 0 {
		deps.TickWorkers = 8
	}
	return &Engine{
		deps:        deps,
		dt:          float64(deps.TickMs) / 1000.0,
		projectiles: make(map[string]*core.Projectile),
	}
}

// Subscribe attaches the engine to the launch request topic. Launch
// requests are processed between ticks, never during one.
func (e *Engine) Subscribe() {
	e.deps.Bus.Subscribe(streaming.TopicLaunchRequest, "engine", e.handleLaunchRequest, bus.Buffered(256), bus.Logged())
}

func (e *Engine) handleLaunchRequest(msg bus.Message) error {
	req, ok := msg.Payload.(streaming.LaunchRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T on %s", msg.Payload, msg.Topic)
	}
	_, err := e.Launch(req)
	return err
}

// Launch validates a launch request and creates the projectile. An
// unknown platform or a dead target is rejected with no state mutated.
func (e *Engine) Launch(req streaming.LaunchRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	platform, ok := e.deps.Sites.GetPlatform(req.PlatformNickname)
	if !ok {
		return "", fmt.Errorf("platform %q not found", req.PlatformNickname)
	}

	kind := core.ProjectileKind(req.Kind)

	e.mu.Lock()
	defer e.mu.Unlock()

	if kind == core.KindDefense {
		target, exists := e.projectiles[req.TargetProjectileID]
		if !exists || !target.Active() {
			return "", fmt.Errorf("target projectile %q is not active", req.TargetProjectileID)
		}
	}

	id := uuid.New().String()
	launchPos := core.Position3D{Lon: req.LaunchLon, Lat: req.LaunchLat, Alt: req.LaunchAlt}
	targetPos := core.Position3D{Lon: req.TargetLon, Lat: req.TargetLat, Alt: req.TargetAlt}

	p := &core.Projectile{
		ID:             id,
		Callsign:       fmt.Sprintf("%s_%s", req.Callsign, id[:8]),
		Kind:           kind,
		Platform:       platform,
		LaunchPosition: launchPos,
		LaunchTime:     time.Now(),
		LaunchTick:     uint64(e.deps.Scenario.Tick()),
		TargetPosition: targetPos,
		Position:       launchPos,
		Velocity:       initialVelocity(launchPos, targetPos, platform.MaxSpeedMps),
		FuelRemaining:  platform.FuelCapacityKg,
		Status:         core.StatusActive,

		TargetProjectileID: req.TargetProjectileID,
		EngagementID:       req.EngagementID,
		AttemptID:          req.AttemptID,
		AttemptNumber:      req.AttemptNumber,
	}

	e.projectiles[id] = p

	if err := e.deps.Store.RecordLaunch(p); err != nil {
		e.deps.LogManager.Logger().Error("Failed to record launch", "projectileId", id, "error", err)
	}
	e.deps.LogManager.Logger().Info("Projectile launched",
		"projectileId", id,
		"callsign", p.Callsign,
		"kind", string(kind),
		"platform", platform.Nickname,
	)
	return id, nil
}

// initialVelocity points the round at its target at launch, capped at
// 1000 m/s. Submerged launches start with a fixed upward speed instead.
func initialVelocity(launch, target core.Position3D, maxSpeedMps float64) core.Vector3 {
	if launch.Alt < 0 {
		return core.Vector3{Z: underwaterLaunchSpeedMps}
	}

	speed := maxSpeedMps
	if speed > initialSpeedCapMps {
		speed = initialSpeedCapMps
	}

	dir := geo.LocalVector(launch, target)
	if dir.Magnitude() == 0 {
		return core.Vector3{Z: speed}
	}
	return dir.Normalize().Scale(speed)
}

// Get returns a copy of a projectile's current state.
func (e *Engine) Get(id string) (core.Projectile, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.projectiles[id]
	if !ok {
		return core.Projectile{}, false
	}
	return *p, true
}

// ActiveCount returns the number of projectiles still flying.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, p := range e.projectiles {
		if p.Active() {
			n++
		}
	}
	return n
}

// LastTickDuration returns how long the most recent tick took to compute.
func (e *Engine) LastTickDuration() time.Duration {
	return time.Duration(e.lastTickNs.Load())
}

// Run drives the tick loop until ctx is cancelled. One wall-clock tick
// advances the simulation by TickMs of simulated time.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(e.deps.TickMs) * time.Millisecond)
	defer ticker.Stop()

	e.deps.LogManager.Logger().Info("Trajectory engine started", "tickMs", e.deps.TickMs)
	for {
		select {
		case <-ctx.Done():
			e.deps.LogManager.Logger().Info("Trajectory engine stopped")
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}
