package battery

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikesim/strikesim/internal/bus"
	"github.com/strikesim/strikesim/internal/cache"
	"github.com/strikesim/strikesim/internal/logging"
	"github.com/strikesim/strikesim/pkg/core"
	"github.com/strikesim/strikesim/pkg/streaming"
)

func samInstallation() core.Installation {
	return core.Installation{
		Callsign: "PATRIOT_ALPHA",
		Role:     core.RoleCounterDefense,
		Status:   core.InstallationActive,
		Position: core.Position3D{Lon: 14.0, Lat: 55.0, Alt: 20},
		Platform: core.PlatformType{
			Nickname:        "interceptor-mk2",
			Category:        core.RoleCounterDefense,
			MaxSpeedMps:     1200,
			ReloadTimeSec:   30,
			AccuracyPercent: 0.85,
		},
		AmmoCount: 2,
	}
}

type collector struct {
	launches []streaming.LaunchRequest
	results  []streaming.EngagementResult
}

func (c *collector) subscribe(b *bus.Bus) {
	b.Subscribe(streaming.TopicLaunchRequest, "test", func(msg bus.Message) error {
		c.launches = append(c.launches, msg.Payload.(streaming.LaunchRequest))
		return nil
	})
	b.Subscribe(streaming.TopicEngagementResult, "test", func(msg bus.Message) error {
		c.results = append(c.results, msg.Payload.(streaming.EngagementResult))
		return nil
	})
}

func order(attemptID string, attemptNum int) streaming.FireOrder {
	return streaming.FireOrder{
		EngagementID:       "eng-1",
		AttemptID:          attemptID,
		AttemptNumber:      attemptNum,
		TargetProjectileID: "threat-1",
		InterceptPoint:     core.Position3D{Lon: 14.5, Lat: 55.2, Alt: 8000},
	}
}

func newTestController(t *testing.T) (*Controller, *collector) {
	t.Helper()
	b, err := bus.New(logging.NewBusLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(b.Close)

	ctrl := New(samInstallation(), Dependencies{
		Bus:        b,
		LogManager: logging.NewSlogManager(),
	})

	col := &collector{}
	col.subscribe(b)
	return ctrl, col
}

func fire(t *testing.T, ctrl *Controller, o streaming.FireOrder) {
	t.Helper()
	msg := bus.Message{Topic: streaming.FireOrderTopic(ctrl.Callsign()), Payload: o}
	require.NoError(t, ctrl.handleFireOrder(msg))
}

func TestFireOrder_LaunchesAndReportsAttempted(t *testing.T) {
	ctrl, col := newTestController(t)

	fire(t, ctrl, order("att-1", 1))

	require.Len(t, col.launches, 1)
	lr := col.launches[0]
	assert.Equal(t, "interceptor-mk2", lr.PlatformNickname)
	assert.Equal(t, "PATRIOT_ALPHA", lr.Callsign)
	assert.Equal(t, string(core.KindDefense), lr.Kind)
	assert.Equal(t, "threat-1", lr.TargetProjectileID)
	assert.Equal(t, "eng-1", lr.EngagementID)
	assert.Equal(t, "att-1", lr.AttemptID)
	assert.Equal(t, 1, lr.AttemptNumber)
	assert.Equal(t, 14.0, lr.LaunchLon)
	assert.Equal(t, 55.0, lr.LaunchLat)
	assert.Equal(t, 14.5, lr.TargetLon)
	assert.Equal(t, 8000.0, lr.TargetAlt)

	require.Len(t, col.results, 1)
	assert.Equal(t, string(core.AttemptAttempted), col.results[0].Outcome)
	assert.Equal(t, "PATRIOT_ALPHA", col.results[0].BatteryCallsign)
	assert.Empty(t, col.results[0].FailureReason)

	assert.Equal(t, 1, ctrl.Ammo())
}

func TestFireOrder_RedeliveryDoesNotDoubleDebit(t *testing.T) {
	ctrl, col := newTestController(t)

	fire(t, ctrl, order("att-1", 1))
	fire(t, ctrl, order("att-1", 1))

	assert.Len(t, col.launches, 1)
	assert.Len(t, col.results, 1)
	assert.Equal(t, 1, ctrl.Ammo())
}

func TestFireOrder_NoAmmoFailsClosed(t *testing.T) {
	ctrl, col := newTestController(t)
	ctrl.mu.Lock()
	ctrl.ammo = 0
	ctrl.mu.Unlock()

	fire(t, ctrl, order("att-1", 1))

	assert.Empty(t, col.launches)
	require.Len(t, col.results, 1)
	assert.Equal(t, string(core.AttemptFailed), col.results[0].Outcome)
	assert.Equal(t, core.FailureNoAmmo, col.results[0].FailureReason)
	assert.Equal(t, "PATRIOT_ALPHA", col.results[0].BatteryCallsign)
}

func TestFireOrder_CooldownFailsClosed(t *testing.T) {
	ctrl, col := newTestController(t)

	fire(t, ctrl, order("att-1", 1))
	fire(t, ctrl, order("att-2", 2))

	assert.Len(t, col.launches, 1)
	require.Len(t, col.results, 2)
	assert.Equal(t, string(core.AttemptFailed), col.results[1].Outcome)
	assert.Equal(t, core.FailureCooldown, col.results[1].FailureReason)
	// The refused attempt did not spend a round.
	assert.Equal(t, 1, ctrl.Ammo())
}

func TestFireOrder_CooldownExpires(t *testing.T) {
	ctrl, col := newTestController(t)

	now := time.Now()
	ctrl.clock = func() time.Time { return now }
	fire(t, ctrl, order("att-1", 1))

	ctrl.clock = func() time.Time { return now.Add(31 * time.Second) }
	fire(t, ctrl, order("att-2", 2))

	assert.Len(t, col.launches, 2)
	assert.Equal(t, 0, ctrl.Ammo())
}

func TestFireOrder_BadPayloadRejected(t *testing.T) {
	ctrl, _ := newTestController(t)
	err := ctrl.handleFireOrder(bus.Message{Topic: "x", Payload: "nonsense"})
	assert.Error(t, err)
}

func TestCooldownRemaining(t *testing.T) {
	ctrl, _ := newTestController(t)

	now := time.Now()
	ctrl.clock = func() time.Time { return now }
	assert.Equal(t, time.Duration(0), ctrl.CooldownRemaining())

	fire(t, ctrl, order("att-1", 1))
	assert.Equal(t, 30*time.Second, ctrl.CooldownRemaining())

	ctrl.clock = func() time.Time { return now.Add(40 * time.Second) }
	assert.Equal(t, time.Duration(0), ctrl.CooldownRemaining())
}

func TestCooldownMultiplier(t *testing.T) {
	b, err := bus.New(logging.NewBusLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(b.Close)

	ctrl := New(samInstallation(), Dependencies{
		Bus:                b,
		LogManager:         logging.NewSlogManager(),
		CooldownMultiplier: 0.5,
	})

	now := time.Now()
	ctrl.clock = func() time.Time { return now }
	fire(t, ctrl, order("att-1", 1))
	assert.Equal(t, 15*time.Second, ctrl.CooldownRemaining())
}

func TestFireOrder_MobileBatteryLaunchesFromCurrentPosition(t *testing.T) {
	b, err := bus.New(logging.NewBusLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(b.Close)

	inst := samInstallation()
	inst.Mobile = true
	inst.MoveSpeedMps = 1000
	inst.MovePath = core.Polyline{{Lon: 14.0, Lat: 55.0}, {Lon: 14.0, Lat: 56.0}}

	sites := cache.NewSiteCache()
	sites.AddInstallation(inst)

	ctrls := NewAll(sites, Dependencies{Bus: b, LogManager: logging.NewSlogManager()})
	require.Len(t, ctrls, 1)

	col := &collector{}
	col.subscribe(b)

	sites.AdvanceMobiles(30)
	fire(t, ctrls[0], order("att-1", 1))

	require.Len(t, col.launches, 1)
	assert.Equal(t, 14.0, col.launches[0].LaunchLon)
	assert.Greater(t, col.launches[0].LaunchLat, 55.1, "launch position tracks the patrol, not the registration point")
}

func TestNewAll_BuildsOnePerBattery(t *testing.T) {
	b, err := bus.New(logging.NewBusLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(b.Close)

	sites := cache.NewSiteCache()
	alpha := samInstallation()
	bravo := samInstallation()
	bravo.Callsign = "PATRIOT_BRAVO"
	radar := samInstallation()
	radar.Callsign = "EYES_ONLY"
	radar.Role = core.RoleDetection
	sites.AddInstallation(alpha)
	sites.AddInstallation(bravo)
	sites.AddInstallation(radar)

	ctrls := NewAll(sites, Dependencies{Bus: b, LogManager: logging.NewSlogManager()})
	require.Len(t, ctrls, 2)
	callsigns := map[string]bool{}
	for _, c := range ctrls {
		callsigns[c.Callsign()] = true
	}
	assert.True(t, callsigns["PATRIOT_ALPHA"])
	assert.True(t, callsigns["PATRIOT_BRAVO"])
}
