// Package battery implements the per-installation battery controller.
// Each counter-defense battery owns its ammunition count and cooldown
// timer exclusively; fire orders are settled by a single check-and-debit
// keyed by attempt id so a redelivered order can never double-spend.
package battery

import (
	"fmt"
	"sync"
	"time"

	"github.com/strikesim/strikesim/internal/bus"
	"github.com/strikesim/strikesim/internal/cache"
	"github.com/strikesim/strikesim/internal/logging"
	"github.com/strikesim/strikesim/pkg/core"
	"github.com/strikesim/strikesim/pkg/streaming"
)

// Dependencies holds everything a battery controller needs injected.
type Dependencies struct {
	Bus        *bus.Bus
	LogManager *logging.SlogManager

	// Sites resolves the battery's current position at launch time.
	// Nil falls back to the position the controller was built with.
	Sites *cache.SiteCache

	// CooldownMultiplier scales the platform reload time. Zero
	// selects 1.
	CooldownMultiplier float64
}

// Controller runs one battery. It does not decide intercept success;
// the trajectory engine's terminal events settle that downstream.
type Controller struct {
	deps Dependencies
	inst core.Installation

	clock func() time.Time

	mu            sync.Mutex
	ammo          int
	cooldownUntil time.Time
	processed     map[string]bool
}

// New creates a controller for one counter-defense installation.
func New(inst core.Installation, deps Dependencies) *Controller {
	if deps.CooldownMultiplier <= 0 {
		deps.CooldownMultiplier = 1.0
	}
	return &Controller{
		deps:      deps,
		inst:      inst,
		clock:     time.Now,
		ammo:      inst.AmmoCount,
		processed: make(map[string]bool),
	}
}

// NewAll creates one controller per counter-defense installation in the
// site cache.
func NewAll(sites *cache.SiteCache, deps Dependencies) []*Controller {
	deps.Sites = sites
	var out []*Controller
	for _, inst := range sites.InstallationsByRole(core.RoleCounterDefense) {
		out = append(out, New(inst, deps))
	}
	return out
}

// Subscribe attaches the controller to its per-battery fire order topic.
func (c *Controller) Subscribe() {
	c.deps.Bus.Subscribe(streaming.FireOrderTopic(c.inst.Callsign), "battery", c.handleFireOrder, bus.Buffered(64), bus.Logged())
}

// Callsign returns the battery's installation callsign.
func (c *Controller) Callsign() string {
	return c.inst.Callsign
}

// Ammo returns the remaining round count.
func (c *Controller) Ammo() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ammo
}

// CooldownRemaining returns how long until the battery can fire again.
func (c *Controller) CooldownRemaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.cooldownUntil.Sub(c.clock()); d > 0 {
		return d
	}
	return 0
}

// handleFireOrder settles one fire order. The check-and-debit and the
// idempotency mark happen under one lock acquisition; everything after
// is fire-and-forget publishing.
func (c *Controller) handleFireOrder(msg bus.Message) error {
	order, ok := msg.Payload.(streaming.FireOrder)
	if !ok {
		return fmt.Errorf("unexpected payload type %T on %s", msg.Payload, msg.Topic)
	}

	c.mu.Lock()
	if c.processed[order.AttemptID] {
		c.mu.Unlock()
		return nil
	}
	c.processed[order.AttemptID] = true

	now := c.clock()
	var failure string
	switch {
	case c.ammo <= 0:
		failure = core.FailureNoAmmo
	case now.Before(c.cooldownUntil):
		failure = core.FailureCooldown
	default:
		c.ammo--
		reload := time.Duration(c.inst.Platform.ReloadTimeSec * c.deps.CooldownMultiplier * float64(time.Second))
		c.cooldownUntil = now.Add(reload)
	}
	ammoLeft := c.ammo
	c.mu.Unlock()

	log := c.deps.LogManager.Logger()
	if failure != "" {
		// Fails closed: no launch request, only the result.
		log.Info("Fire order refused",
			"battery", c.inst.Callsign,
			"attemptId", order.AttemptID,
			"reason", failure,
		)
		c.deps.Bus.Publish(streaming.TopicEngagementResult, streaming.EngagementResult{
			EngagementID:    order.EngagementID,
			AttemptID:       order.AttemptID,
			AttemptNumber:   order.AttemptNumber,
			BatteryCallsign: c.inst.Callsign,
			Outcome:         string(core.AttemptFailed),
			FailureReason:   failure,
		})
		return nil
	}

	log.Info("Interceptor away",
		"battery", c.inst.Callsign,
		"attemptId", order.AttemptID,
		"targetProjectileId", order.TargetProjectileID,
		"ammoLeft", ammoLeft,
	)

	// Mobile batteries launch from wherever they stand now, not from
	// where they were registered.
	launchPos := c.inst.Position
	if c.deps.Sites != nil {
		if inst, ok := c.deps.Sites.GetInstallation(c.inst.Callsign); ok {
			launchPos = inst.Position
		}
	}

	c.deps.Bus.Publish(streaming.TopicLaunchRequest, streaming.LaunchRequest{
		PlatformNickname:   c.inst.Platform.Nickname,
		Callsign:           c.inst.Callsign,
		LaunchLat:          launchPos.Lat,
		LaunchLon:          launchPos.Lon,
		LaunchAlt:          launchPos.Alt,
		TargetLat:          order.InterceptPoint.Lat,
		TargetLon:          order.InterceptPoint.Lon,
		TargetAlt:          order.InterceptPoint.Alt,
		Kind:               string(core.KindDefense),
		TargetProjectileID: order.TargetProjectileID,
		EngagementID:       order.EngagementID,
		AttemptID:          order.AttemptID,
		AttemptNumber:      order.AttemptNumber,
	})

	c.deps.Bus.Publish(streaming.TopicEngagementResult, streaming.EngagementResult{
		EngagementID:    order.EngagementID,
		AttemptID:       order.AttemptID,
		AttemptNumber:   order.AttemptNumber,
		BatteryCallsign: c.inst.Callsign,
		Outcome:         string(core.AttemptAttempted),
	})
	return nil
}
