package sim

import (
	"fmt"
	"time"

	"github.com/strikesim/strikesim/internal/geo"
	"github.com/strikesim/strikesim/internal/worker"
	"github.com/strikesim/strikesim/pkg/core"
	"github.com/strikesim/strikesim/pkg/streaming"
)

// seabedAltM is the depth at which a submerged round detonates.
const seabedAltM = -300.0

// stepResult is one projectile's computed state for the tick. Status is
// StatusActive while the round keeps flying.
type stepResult struct {
	id             string
	pos            core.Position3D
	vel            core.Vector3
	fuel           float64
	status         core.ProjectileStatus
	notes          string
	targetAchieved bool
}

// terminal is a projectile that reached a terminal status this tick,
// copied out for publishing after the lock is released.
type terminal struct {
	proj           core.Projectile
	notes          string
	targetAchieved bool
	interceptorID  string
}

// Tick advances every active projectile by one step. Updates are
// computed against the prior tick's snapshot and applied together;
// only the intercept check compares the freshly computed positions.
func (e *Engine) Tick() {
	tick := uint64(e.deps.Scenario.AdvanceTick())
	now := time.Now()
	defer func() { e.lastTickNs.Store(int64(time.Since(now))) }()

	e.deps.Sites.AdvanceMobiles(float64(tick) * e.dt)

	// Prior-tick snapshot. Every update this tick reads from it, so no
	// projectile observes another's same-tick state.
	e.mu.Lock()
	snapshot := make(map[string]core.Projectile, len(e.projectiles))
	activeIDs := make([]string, 0, len(e.projectiles))
	for id, p := range e.projectiles {
		snapshot[id] = *p
		if p.Active() {
			activeIDs = append(activeIDs, id)
		}
	}
	e.mu.Unlock()

	if len(activeIDs) == 0 {
		return
	}

	// Fan the independent updates out over the worker pool. Each index
	// is written by exactly one worker.
	results := make([]stepResult, len(activeIDs))
	indices := make([]int, len(activeIDs))
	for i := range indices {
		indices[i] = i
	}
	worker.ForEach(e.deps.TickWorkers, indices, func(i int) {
		results[i] = e.step(snapshot, snapshot[activeIDs[i]], tick)
	})

	var (
		terminals []terminal
		updated   []core.Projectile
		stepped   []*core.Projectile
	)
	stepByID := make(map[string]stepResult, len(results))

	e.mu.Lock()
	// Commit kinematics only. Step-phase terminal statuses (ground,
	// seabed, fuel) are held back until the intercept pass has seen
	// this tick's positions: an intercept in the same tick outranks
	// them all.
	for _, r := range results {
		p, ok := e.projectiles[r.id]
		if !ok || !p.Active() {
			continue
		}
		p.Position = r.pos
		p.Velocity = r.vel
		p.FuelRemaining = r.fuel
		stepped = append(stepped, p)
		stepByID[r.id] = r
	}

	// Intercept pass: the one place current-tick positions of two
	// projectiles are compared. Both go terminal in the same tick.
	for _, p := range e.projectiles {
		if p.Kind != core.KindDefense || !p.Active() || p.TargetProjectileID == "" {
			continue
		}
		target, ok := e.projectiles[p.TargetProjectileID]
		if !ok || !target.Active() {
			continue
		}
		dist := geo.SlantDistance(p.Position, target.Position)
		if dist > p.Platform.BlastRadiusM {
			continue
		}

		target.Status = core.StatusDestroyed
		p.Status = core.StatusDetonated
		terminals = append(terminals,
			terminal{
				proj:          *target,
				notes:         fmt.Sprintf("intercepted %.1fm from interceptor", dist),
				interceptorID: p.ID,
			},
			terminal{
				proj:           *p,
				notes:          fmt.Sprintf("intercept detonation %.1fm from target", dist),
				targetAchieved: true,
			},
		)
	}

	// Step-phase terminals apply only to rounds the intercept pass
	// left flying.
	for _, p := range stepped {
		r := stepByID[p.ID]
		if r.status != core.StatusActive && p.Active() {
			p.Status = r.status
			terminals = append(terminals, terminal{proj: *p, notes: r.notes, targetAchieved: r.targetAchieved})
		}
		updated = append(updated, *p)
	}
	e.mu.Unlock()

	e.publishTick(tick, now, updated, terminals)
}

// step computes one projectile's next state from the snapshot. It never
// touches shared engine state.
func (e *Engine) step(snapshot map[string]core.Projectile, p core.Projectile, tick uint64) stepResult {
	elapsedSec := float64(tick-p.LaunchTick) * e.dt

	thrust, ratio := e.thrustForce(&p, snapshot, elapsedSec)

	pos, vel := e.deps.Physics.Step(
		p.Position, p.Velocity,
		p.Platform.MassKg, p.Platform.DragCoefficient, p.Platform.CrossSectionM2,
		thrust, e.dt,
	)

	fuel := p.FuelRemaining
	if ratio > 0 {
		fuel -= p.Platform.FuelConsumptionKgps * ratio * e.dt
		if fuel < 0 {
			fuel = 0
		}
	}

	r := stepResult{id: p.ID, pos: pos, vel: vel, fuel: fuel, status: core.StatusActive}

	// Malformed state is fatal for this round only.
	if !pos.IsFinite() || !vel.IsFinite() {
		r.pos = p.Position
		r.vel = p.Velocity
		r.status = core.StatusDestroyed
		r.notes = "force-terminated: non-finite position or velocity"
		return r
	}

	switch {
	case pos.Alt <= seabedAltM && vel.Z < 0:
		r.status = core.StatusDetonated
		r.notes = "hit seabed"

	case pos.Alt <= 0 && vel.Z < 0 && p.LaunchPosition.Alt >= 0:
		r.status = core.StatusDetonated
		r.notes = "hit ground/water"

	case p.Kind == core.KindAttack && pos.Alt > 0 && e.nearTarget(p, pos, vel):
		dist := geo.GroundDistance(pos.Ground(), p.TargetPosition.Ground())
		r.status = core.StatusDetonated
		r.targetAchieved = true
		r.notes = fmt.Sprintf("target achieved, detonated %.1fm from target", dist)

	case fuel <= 0 && vel.Z < 0 && vel.Magnitude() < e.deps.StallSpeedMps:
		// Past apex with no residual energy. A fast ballistic coast
		// keeps flying until the ground impact check fires instead.
		r.status = core.StatusFuelExhausted
		r.notes = "ran out of fuel"
	}

	return r
}

// nearTarget reports whether an attack round is above its briefed target,
// descending, and horizontally within its blast radius.
func (e *Engine) nearTarget(p core.Projectile, pos core.Position3D, vel core.Vector3) bool {
	if vel.Z >= 0 || pos.Alt <= p.TargetPosition.Alt {
		return false
	}
	return geo.GroundDistance(pos.Ground(), p.TargetPosition.Ground()) <= p.Platform.BlastRadiusM
}

// publishTick emits this tick's events and records. Publishing happens
// outside the state lock and never blocks on slow consumers.
func (e *Engine) publishTick(tick uint64, now time.Time, updated []core.Projectile, terminals []terminal) {
	log := e.deps.LogManager.Logger()

	for _, p := range updated {
		tp := core.TrackPoint{
			ProjectileID:  p.ID,
			Tick:          tick,
			Time:          now,
			Position:      p.Position,
			Velocity:      p.Velocity,
			FuelRemaining: p.FuelRemaining,
		}
		if err := e.deps.Store.RecordTrackPoint(&tp); err != nil {
			log.Error("Failed to record track point", "projectileId", p.ID, "error", err)
		}

		if p.Active() {
			e.deps.Bus.Publish(streaming.TopicProjectilePosition, streaming.PositionUpdate{
				ID:            p.ID,
				Lat:           p.Position.Lat,
				Lon:           p.Position.Lon,
				Alt:           p.Position.Alt,
				Vx:            p.Velocity.X,
				Vy:            p.Velocity.Y,
				Vz:            p.Velocity.Z,
				FuelRemaining: p.FuelRemaining,
				Status:        string(p.Status),
				Kind:          string(p.Kind),
				Tick:          tick,
			})
		}
	}

	for _, t := range terminals {
		p := t.proj
		log.Info("Projectile terminal",
			"projectileId", p.ID,
			"callsign", p.Callsign,
			"status", string(p.Status),
			"tick", tick,
		)

		outcome := core.OutcomeRecord{
			ProjectileID:   p.ID,
			Callsign:       p.Callsign,
			Kind:           p.Kind,
			Status:         p.Status,
			Position:       p.Position,
			Tick:           tick,
			Time:           now,
			BlastRadiusM:   p.Platform.BlastRadiusM,
			TargetAchieved: t.targetAchieved,
			InterceptorID:  t.interceptorID,
			Notes:          t.notes,
		}
		if err := e.deps.Store.RecordOutcome(&outcome); err != nil {
			log.Error("Failed to record outcome", "projectileId", p.ID, "error", err)
		}

		e.deps.Bus.Publish(streaming.TopicProjectileTerminal, streaming.TerminalEvent{
			ID:            p.ID,
			Status:        string(p.Status),
			Position:      p.Position,
			Tick:          tick,
			Timestamp:     now.UnixMilli(),
			BlastRadiusM:  p.Platform.BlastRadiusM,
			InterceptorID: t.interceptorID,
			EngagementID:  p.EngagementID,
			AttemptID:     p.AttemptID,
		})

		// Defense rounds settle their attempt: the intercept closes it
		// as successful, any other terminal status is a miss.
		if p.Kind == core.KindDefense && p.EngagementID != "" {
			result := streaming.EngagementResult{
				EngagementID:  p.EngagementID,
				AttemptID:     p.AttemptID,
				AttemptNumber: p.AttemptNumber,
			}
			if t.targetAchieved {
				result.Outcome = string(core.AttemptSuccessful)
				pt := p.Position
				result.InterceptPoint = &pt
			} else {
				result.Outcome = string(core.AttemptFailed)
				result.FailureReason = core.FailureMissed
			}
			e.deps.Bus.Publish(streaming.TopicEngagementResult, result)
		}
	}
}
