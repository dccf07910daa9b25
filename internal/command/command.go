// Package command implements the threat correlation and engagement
// coordinator. It consumes radar detections, merges multi-sensor reports
// of the same projectile, scores and selects interceptor batteries, and
// drives each engagement through bounded retries to a final resolution.
package command

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strikesim/strikesim/internal/bus"
	"github.com/strikesim/strikesim/internal/cache"
	"github.com/strikesim/strikesim/internal/geo"
	"github.com/strikesim/strikesim/internal/logging"
	"github.com/strikesim/strikesim/internal/store"
	"github.com/strikesim/strikesim/pkg/core"
	"github.com/strikesim/strikesim/pkg/streaming"
)

// Dependencies holds everything the coordinator needs injected.
type Dependencies struct {
	Bus        *bus.Bus
	Store      store.Backend
	Sites      *cache.SiteCache
	LogManager *logging.SlogManager

	// TickMs converts event tick numbers to simulated time. Zero
	// selects 100.
	TickMs int

	// MaxAttempts caps fire orders per engagement. Zero selects 3.
	MaxAttempts int

	// CorrelationWindowMs merges detections of one projectile. Zero
	// selects 1000.
	CorrelationWindowMs uint64

	// CooldownMultiplier scales battery reload times. Zero selects 1.
	CooldownMultiplier float64

	// Battery scoring weights. All zero selects 0.5/0.3/0.2.
	AccuracyWeight  float64
	AmmoWeight      float64
	ReadinessWeight float64
}

// threat is the coordinator's view of one attack projectile.
type threat struct {
	projectileID string
	state        core.EngagementState
	level        ThreatLevel

	// Best estimate from the current correlation window.
	estPos        core.Position3D
	estConf       float64
	velocity      core.Vector3
	windowStartMs uint64
	haveWindow    bool

	// Previous committed window, for velocity estimation.
	prevPos  core.Position3D
	prevMs   uint64
	havePrev bool

	engagement       *core.Engagement
	issued           int
	used             map[string]bool
	pendingAttemptID string
}

// batteryView is the coordinator's local model of a counter-defense
// battery. The battery controller owns the real ammunition count; this
// view only steers selection. Position and platform are resolved
// through the site cache at selection time so mobile batteries are
// scored from where they currently stand.
type batteryView struct {
	callsign        string
	ammo            int
	initialAmmo     int
	cooldownUntilMs uint64
}

// Coordinator is the engagement decision-maker.
type Coordinator struct {
	deps Dependencies

	mu           sync.Mutex
	threats      map[string]*threat
	batteries    map[string]*batteryView
	byEngagement map[string]string // engagement id -> projectile id
	processed    map[string]bool   // attempt id + outcome, for redelivery
	simMs        uint64
}

// New builds a coordinator over the counter-defense batteries currently
// registered in the site cache.
func New(deps Dependencies) *Coordinator {
	if deps.TickMs <= 0 {
		deps.TickMs = 100
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = 3
	}
	if deps.CorrelationWindowMs == 0 {
		deps.CorrelationWindowMs = 1000
	}
	if deps.CooldownMultiplier <= 0 {
		deps.CooldownMultiplier = 1.0
	}
	if deps.AccuracyWeight == 0 && deps.AmmoWeight == 0 && deps.ReadinessWeight == 0 {
		deps.AccuracyWeight = 0.5
		deps.AmmoWeight = 0.3
		deps.ReadinessWeight = 0.2
	}

	c := &Coordinator{
		deps:         deps,
		threats:      make(map[string]*threat),
		batteries:    make(map[string]*batteryView),
		byEngagement: make(map[string]string),
		processed:    make(map[string]bool),
	}
	for _, inst := range deps.Sites.InstallationsByRole(core.RoleCounterDefense) {
		c.batteries[inst.Callsign] = &batteryView{
			callsign:    inst.Callsign,
			ammo:        inst.AmmoCount,
			initialAmmo: inst.AmmoCount,
		}
	}
	return c
}

// Subscribe attaches the coordinator to its topics.
func (c *Coordinator) Subscribe() {
	c.deps.Bus.Subscribe(streaming.TopicRadarDetection, "command", c.handleDetection, bus.Buffered(1024), bus.Logged())
	c.deps.Bus.Subscribe(streaming.TopicEngagementResult, "command", c.handleResult, bus.Buffered(256), bus.Logged())
	c.deps.Bus.Subscribe(streaming.TopicProjectileTerminal, "command", c.handleTerminal, bus.Buffered(256), bus.Logged())
}

// handleDetection folds one radar report into the threat picture and
// reconsiders engagement for the threat it belongs to.
func (c *Coordinator) handleDetection(msg bus.Message) error {
	d, ok := msg.Payload.(streaming.Detection)
	if !ok {
		return fmt.Errorf("unexpected payload type %T on %s", msg.Payload, msg.Topic)
	}

	simMs := d.Tick * uint64(c.deps.TickMs)
	pos := core.Position3D{Lon: d.Lon, Lat: d.Lat, Alt: d.Alt}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceClock(simMs)

	t, exists := c.threats[d.ProjectileID]
	if !exists {
		t = &threat{
			projectileID: d.ProjectileID,
			state:        core.ThreatUnassessed,
			used:         make(map[string]bool),
		}
		c.threats[d.ProjectileID] = t
	}
	if t.state == core.ThreatResolved {
		return nil
	}

	c.correlate(t, pos, d.Confidence, simMs)

	_, tti := predictImpact(t.estPos, t.velocity)
	t.level = assessLevel(tti)
	if t.state == core.ThreatUnassessed {
		t.state = core.ThreatAssessed
	}

	if t.state == core.ThreatAssessed && t.level.engageable() {
		c.considerEngagement(t)
	}
	return nil
}

// correlate merges a detection into the threat's current correlation
// window, keeping the highest-confidence estimate. A detection past the
// window commits it and starts the next one.
func (c *Coordinator) correlate(t *threat, pos core.Position3D, confidence float64, simMs uint64) {
	if t.haveWindow && simMs-t.windowStartMs <= c.deps.CorrelationWindowMs {
		if confidence > t.estConf {
			t.estPos = pos
			t.estConf = confidence
		}
		return
	}

	if t.haveWindow {
		if t.havePrev {
			dtSec := float64(t.windowStartMs-t.prevMs) / 1000.0
			if v := estimateVelocity(t.prevPos, t.estPos, dtSec); v.Magnitude() > 0 {
				t.velocity = v
			}
		}
		t.prevPos = t.estPos
		t.prevMs = t.windowStartMs
		t.havePrev = true
	}

	t.estPos = pos
	t.estConf = confidence
	t.windowStartMs = simMs
	t.haveWindow = true
}

// considerEngagement selects a battery and issues a fire order. No
// eligible battery leaves the threat assessed; it is reconsidered on the
// next detection cycle. Callers hold c.mu.
func (c *Coordinator) considerEngagement(t *threat) {
	if t.pendingAttemptID != "" || t.issued >= c.deps.MaxAttempts {
		return
	}
	if t.estPos.Alt <= 0 {
		return
	}

	best, launchPos := c.selectBattery(t)
	if best == nil {
		c.deps.LogManager.Logger().Debug("No eligible battery", "projectileId", t.projectileID)
		return
	}

	now := time.Now()
	if t.engagement == nil {
		t.engagement = &core.Engagement{
			ID:                 uuid.New().String(),
			TargetProjectileID: t.projectileID,
			State:              core.ThreatEngaged,
			CreatedAt:          now,
		}
		c.byEngagement[t.engagement.ID] = t.projectileID
	}
	t.engagement.State = core.ThreatEngaged
	t.state = core.ThreatEngaged

	t.issued++
	attemptID := uuid.New().String()
	t.pendingAttemptID = attemptID
	t.used[best.callsign] = true
	t.engagement.AttemptCount = t.issued

	if err := c.deps.Store.RecordEngagement(t.engagement); err != nil {
		c.deps.LogManager.Logger().Error("Failed to record engagement", "engagementId", t.engagement.ID, "error", err)
	}

	ip := interceptPoint(launchPos, t.estPos)
	c.deps.LogManager.Logger().Info("Fire order issued",
		"engagementId", t.engagement.ID,
		"projectileId", t.projectileID,
		"battery", best.callsign,
		"attempt", t.issued,
	)
	c.deps.Bus.Publish(streaming.FireOrderTopic(best.callsign), streaming.FireOrder{
		EngagementID:       t.engagement.ID,
		AttemptID:          attemptID,
		AttemptNumber:      t.issued,
		TargetProjectileID: t.projectileID,
		InterceptPoint:     ip,
	})
}

// selectBattery scores the eligible counter-defense batteries and
// returns the best together with its current position, or nil when none
// qualifies. Each candidate is re-read from the site cache. Callers
// hold c.mu.
func (c *Coordinator) selectBattery(t *threat) (*batteryView, core.Position3D) {
	var (
		best      *batteryView
		bestPos   core.Position3D
		bestScore float64
		bestDist  float64
	)
	for _, b := range c.batteries {
		inst, ok := c.deps.Sites.GetInstallation(b.callsign)
		if !ok || inst.Status != core.InstallationActive || b.ammo <= 0 {
			continue
		}
		if t.used[b.callsign] {
			continue
		}
		if b.cooldownUntilMs > c.simMs {
			continue
		}

		ip := interceptPoint(inst.Position, t.estPos)
		dist := geo.SlantDistance(inst.Position, ip)
		if dist > inst.Platform.MaxRangeM || ip.Alt > inst.Platform.MaxAltitudeM {
			continue
		}

		score := c.score(b, inst.Platform.AccuracyPercent)
		if best == nil || score > bestScore || (score == bestScore && dist < bestDist) {
			best = b
			bestPos = inst.Position
			bestScore = score
			bestDist = dist
		}
	}
	return best, bestPos
}

// score weighs a battery's accuracy, remaining ammunition fraction, and
// readiness. An eligible battery has zero residual cooldown, so the
// time-to-launch divisor only matters when the policy changes.
func (c *Coordinator) score(b *batteryView, accuracyPercent float64) float64 {
	accuracy := accuracyPercent / 100.0
	ammoFraction := 0.0
	if b.initialAmmo > 0 {
		ammoFraction = float64(b.ammo) / float64(b.initialAmmo)
	}
	readiness := 1.0
	timeToLaunchSec := 0.0
	if b.cooldownUntilMs > c.simMs {
		timeToLaunchSec = float64(b.cooldownUntilMs-c.simMs) / 1000.0
		readiness = 0
	}

	weighted := c.deps.AccuracyWeight*accuracy +
		c.deps.AmmoWeight*ammoFraction +
		c.deps.ReadinessWeight*readiness
	return weighted / (timeToLaunchSec + 1)
}

// handleResult consumes attempt outcomes from batteries and the engine.
// Redelivered results are absorbed by the attempt id.
func (c *Coordinator) handleResult(msg bus.Message) error {
	res, ok := msg.Payload.(streaming.EngagementResult)
	if !ok {
		return fmt.Errorf("unexpected payload type %T on %s", msg.Payload, msg.Topic)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := res.AttemptID + "|" + res.Outcome
	if c.processed[key] {
		return nil
	}
	c.processed[key] = true

	projectileID, ok := c.byEngagement[res.EngagementID]
	if !ok {
		return nil
	}
	t := c.threats[projectileID]
	if t == nil || t.engagement == nil {
		return nil
	}

	switch core.AttemptOutcome(res.Outcome) {
	case core.AttemptAttempted:
		c.recordAttempt(t, res, core.AttemptAttempted, "")
		if b, ok := c.batteries[res.BatteryCallsign]; ok {
			b.ammo--
			if inst, ok := c.deps.Sites.GetInstallation(b.callsign); ok {
				cooldownMs := uint64(inst.Platform.ReloadTimeSec * c.deps.CooldownMultiplier * 1000)
				b.cooldownUntilMs = c.simMs + cooldownMs
			}
		}

	case core.AttemptSuccessful:
		c.recordAttempt(t, res, core.AttemptSuccessful, "")
		c.resolve(t, core.ResolutionIntercepted)

	case core.AttemptFailed:
		c.recordAttempt(t, res, core.AttemptFailed, res.FailureReason)
		t.pendingAttemptID = ""
		if t.issued >= c.deps.MaxAttempts {
			c.resolve(t, core.ResolutionLeaked)
		} else {
			t.state = core.ThreatAssessed
			t.engagement.State = core.ThreatAssessed
		}
	}
	return nil
}

// recordAttempt persists one attempt outcome. Callers hold c.mu.
func (c *Coordinator) recordAttempt(t *threat, res streaming.EngagementResult, outcome core.AttemptOutcome, reason string) {
	attempt := core.EngagementAttempt{
		ID:              res.AttemptID,
		EngagementID:    res.EngagementID,
		Number:          res.AttemptNumber,
		BatteryCallsign: res.BatteryCallsign,
		LaunchTime:      time.Now(),
		Outcome:         outcome,
		FailureReason:   reason,
		InterceptPoint:  res.InterceptPoint,
	}
	if err := c.deps.Store.RecordAttempt(&attempt); err != nil {
		c.deps.LogManager.Logger().Error("Failed to record attempt", "attemptId", res.AttemptID, "error", err)
	}
}

// resolve closes an engagement permanently. Callers hold c.mu.
func (c *Coordinator) resolve(t *threat, resolution core.Resolution) {
	if t.state == core.ThreatResolved {
		return
	}
	t.state = core.ThreatResolved
	t.pendingAttemptID = ""

	if t.engagement != nil {
		t.engagement.State = core.ThreatResolved
		t.engagement.Resolution = resolution
		t.engagement.ResolvedAt = time.Now()
		if err := c.deps.Store.RecordEngagement(t.engagement); err != nil {
			c.deps.LogManager.Logger().Error("Failed to record engagement", "engagementId", t.engagement.ID, "error", err)
		}
	}

	c.deps.LogManager.Logger().Info("Engagement resolved",
		"projectileId", t.projectileID,
		"resolution", string(resolution),
	)
}

// handleTerminal settles threats whose target reached the ground on its
// own: an engaged or assessed threat that lands has leaked.
func (c *Coordinator) handleTerminal(msg bus.Message) error {
	ev, ok := msg.Payload.(streaming.TerminalEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T on %s", msg.Payload, msg.Topic)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceClock(ev.Tick * uint64(c.deps.TickMs))

	t, exists := c.threats[ev.ID]
	if !exists || t.state == core.ThreatResolved {
		return nil
	}

	if ev.InterceptorID != "" {
		c.resolve(t, core.ResolutionIntercepted)
		return nil
	}
	if t.engagement != nil {
		c.resolve(t, core.ResolutionLeaked)
		return nil
	}
	// Never engaged; just forget it.
	delete(c.threats, ev.ID)
	return nil
}

// advanceClock moves the coordinator's simulated clock forward. Callers
// hold c.mu. Out-of-order events never move it backwards.
func (c *Coordinator) advanceClock(simMs uint64) {
	if simMs > c.simMs {
		c.simMs = simMs
	}
}

// ThreatState returns the coordinator's state for a projectile.
func (c *Coordinator) ThreatState(projectileID string) (core.EngagementState, ThreatLevel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.threats[projectileID]
	if !ok {
		return "", "", false
	}
	return t.state, t.level, true
}

// ActiveThreats counts threats not yet resolved.
func (c *Coordinator) ActiveThreats() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.threats {
		if t.state != core.ThreatResolved {
			n++
		}
	}
	return n
}
