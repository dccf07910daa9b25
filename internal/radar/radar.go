// Package radar implements the detection subsystem. Every radar
// installation evaluates incoming position broadcasts independently; a
// successful draw against the detection probability produces a
// DetectionEvent with an estimated (not true) position.
package radar

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/strikesim/strikesim/internal/bus"
	"github.com/strikesim/strikesim/internal/cache"
	"github.com/strikesim/strikesim/internal/geo"
	"github.com/strikesim/strikesim/internal/logging"
	"github.com/strikesim/strikesim/internal/store"
	"github.com/strikesim/strikesim/internal/worker"
	"github.com/strikesim/strikesim/pkg/core"
	"github.com/strikesim/strikesim/pkg/streaming"
)

const (
	// defaultSignalDb is the reference signal strength at 1 km.
	defaultSignalDb = -50.0

	// altNormM normalizes the altitude factor: rounds at or above 10 km
	// present the full radar cross section.
	altNormM = 10000.0

	// maxPositionErrorM bounds the estimated-position error at the
	// lowest confidence.
	maxPositionErrorM = 500.0
)

// Track accumulates one projectile's detection history across all radars.
type Track struct {
	ProjectileID   string
	Position       core.Position3D
	Velocity       core.Vector3
	FirstSeen      time.Time
	LastSeen       time.Time
	DetectionCount int
	Confidence     float64
}

// site is one detection installation's per-projectile scan clock,
// expressed in simulated milliseconds. The installation itself is
// resolved through the site cache on every evaluation so mobile radars
// scan from their current position.
type site struct {
	callsign   string
	intervalMs uint64

	mu         sync.Mutex
	lastScanMs map[string]uint64
}

// Dependencies holds everything the detection subsystem needs injected.
type Dependencies struct {
	Bus        *bus.Bus
	Store      store.Backend
	Sites      *cache.SiteCache
	LogManager *logging.SlogManager

	// TickMs converts broadcast tick numbers to simulated time for the
	// sweep-rate gate. Zero selects 100.
	TickMs int

	// Workers bounds the parallel per-installation evaluation fan-out.
	// Zero selects 10.
	Workers int

	// BaseSensitivity is the base detection probability before range,
	// altitude and signal factors. Zero selects 0.8.
	BaseSensitivity float64

	// JitterSigma is the standard deviation of the gaussian noise added
	// to the detection probability.
	JitterSigma float64

	// ScanInterval is the re-detection interval for radars whose
	// platform lists no sweep rate. Zero selects 1 s.
	ScanInterval time.Duration

	// TrackTimeout drops tracks with no update. Zero selects 30 s.
	TrackTimeout time.Duration

	// Seed makes the probability draws reproducible. Zero seeds from
	// the wall clock.
	Seed int64
}

// Subsystem consumes position broadcasts and emits radar detections.
type Subsystem struct {
	deps  Dependencies
	sites []*site

	rngMu sync.Mutex
	rng   *rand.Rand

	mu     sync.Mutex
	tracks map[string]*Track

	detections int
}

// New builds the subsystem from the detection installations currently in
// the site cache.
func New(deps Dependencies) *Subsystem {
	if deps.TickMs <= 0 {
		deps.TickMs = 100
	}
	if deps.Workers <= 0 {
		deps.Workers = 10
	}
	if deps.BaseSensitivity <= 0 {
		deps.BaseSensitivity = 0.8
	}
	if deps.ScanInterval <= 0 {
		deps.ScanInterval = time.Second
	}
	if deps.TrackTimeout <= 0 {
		deps.TrackTimeout = 30 * time.Second
	}
	seed := deps.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Subsystem{
		deps:   deps,
		rng:    rand.New(rand.NewSource(seed)),
		tracks: make(map[string]*Track),
	}
	for _, inst := range deps.Sites.InstallationsByRole(core.RoleDetection) {
		s.sites = append(s.sites, &site{
			callsign:   inst.Callsign,
			intervalMs: updateIntervalMs(inst.Platform.SweepRateDegSec, uint64(deps.ScanInterval/time.Millisecond)),
			lastScanMs: make(map[string]uint64),
		})
	}
	return s
}

// updateIntervalMs derives a radar's re-detection interval from its sweep
// rate: 1000 ms at the 60 deg/s reference, clamped to [100 ms, 5 s].
// Platforms without a sweep rate use the configured fallback.
func updateIntervalMs(sweepRateDegSec float64, fallbackMs uint64) uint64 {
	if sweepRateDegSec <= 0 {
		return fallbackMs
	}
	interval := 1000.0 * (60.0 / sweepRateDegSec)
	if interval < 100 {
		interval = 100
	}
	if interval > 5000 {
		interval = 5000
	}
	return uint64(interval)
}

// Subscribe attaches the subsystem to the position and terminal topics.
func (s *Subsystem) Subscribe() {
	s.deps.Bus.Subscribe(streaming.TopicProjectilePosition, "radar", s.handlePosition, bus.Buffered(1024), bus.Logged())
	s.deps.Bus.Subscribe(streaming.TopicProjectileTerminal, "radar", s.handleTerminal, bus.Buffered(256))
}

// handlePosition upserts the projectile's track and fans the detection
// evaluation out over all radar installations.
func (s *Subsystem) handlePosition(msg bus.Message) error {
	update, ok := msg.Payload.(streaming.PositionUpdate)
	if !ok {
		return nil
	}
	// Interceptors are friendly; radars track attack rounds only.
	if update.Kind != string(core.KindAttack) {
		return nil
	}

	now := time.Now()
	pos := core.Position3D{Lon: update.Lon, Lat: update.Lat, Alt: update.Alt}
	vel := core.Vector3{X: update.Vx, Y: update.Vy, Z: update.Vz}

	s.mu.Lock()
	track, exists := s.tracks[update.ID]
	if exists {
		track.Position = pos
		track.Velocity = vel
		track.LastSeen = now
	} else {
		track = &Track{
			ProjectileID: update.ID,
			Position:     pos,
			Velocity:     vel,
			FirstSeen:    now,
			LastSeen:     now,
		}
		s.tracks[update.ID] = track
	}
	s.mu.Unlock()

	s.evaluateAll(track, update.Tick, now)
	return nil
}

func (s *Subsystem) handleTerminal(msg bus.Message) error {
	ev, ok := msg.Payload.(streaming.TerminalEvent)
	if !ok {
		return nil
	}
	s.dropTrack(ev.ID)
	return nil
}

// evaluateAll runs the per-installation detection checks in parallel and
// publishes whatever they found.
func (s *Subsystem) evaluateAll(track *Track, tick uint64, now time.Time) {
	simMs := tick * uint64(s.deps.TickMs)

	var (
		mu     sync.Mutex
		events []core.DetectionEvent
	)
	evaluate := func(st *site) {
		if ev, ok := s.evaluate(st, track, tick, simMs, now); ok {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}
	}

	worker.ForEach(s.deps.Workers, s.sites, evaluate)

	for _, ev := range events {
		s.emit(ev)
	}
}

// evaluate is one radar's check against one track: gating, sweep-rate
// limit, then the probability draw. The installation is re-read from
// the cache so a patrolling radar gates on where it stands now.
func (s *Subsystem) evaluate(st *site, track *Track, tick uint64, simMs uint64, now time.Time) (core.DetectionEvent, bool) {
	inst, ok := s.deps.Sites.GetInstallation(st.callsign)
	if !ok || inst.Status != core.InstallationActive {
		return core.DetectionEvent{}, false
	}

	dist := geo.SlantDistance(inst.Position, track.Position)
	if dist > inst.Platform.DetectionRangeM {
		return core.DetectionEvent{}, false
	}
	if track.Position.Alt > inst.Platform.MaxAltitudeM {
		return core.DetectionEvent{}, false
	}

	// Sweep-rate gate: this radar re-detects the same projectile at
	// most once per update interval of simulated time.
	st.mu.Lock()
	last, seen := st.lastScanMs[track.ProjectileID]
	if seen && simMs-last < st.intervalMs {
		st.mu.Unlock()
		return core.DetectionEvent{}, false
	}
	st.mu.Unlock()

	probability := s.detectionProbability(inst.Platform.DetectionRangeM, dist, track.Position.Alt)
	if s.draw() >= probability {
		return core.DetectionEvent{}, false
	}

	st.mu.Lock()
	st.lastScanMs[track.ProjectileID] = simMs
	st.mu.Unlock()

	s.mu.Lock()
	track.DetectionCount++
	track.Confidence = math.Min(0.95, 0.3+float64(track.DetectionCount)*0.1)
	confidence := track.Confidence
	truePos := track.Position
	s.mu.Unlock()

	return core.DetectionEvent{
		InstallationCallsign: st.callsign,
		ProjectileID:         track.ProjectileID,
		Position:             s.estimatePosition(truePos, confidence),
		Confidence:           confidence,
		SignalStrengthDb:     signalStrengthDb(dist),
		Tick:                 tick,
		Time:                 now,
	}, true
}

// detectionProbability follows the installed radar model: base
// sensitivity scaled by range, altitude and signal factors, plus
// gaussian noise, clamped to [0, 1].
func (s *Subsystem) detectionProbability(detectionRangeM, dist, altM float64) float64 {
	rangeFactor := 1.0 - dist/detectionRangeM
	altFactor := math.Min(1.0, altM/altNormM)
	signalFactor := 1.0 + defaultSignalDb/100.0

	p := s.deps.BaseSensitivity * rangeFactor * altFactor * signalFactor
	if s.deps.JitterSigma > 0 {
		p += s.gauss() * s.deps.JitterSigma
	}
	return math.Max(0.0, math.Min(1.0, p))
}

// estimatePosition perturbs the true position by an error that shrinks
// as confidence accumulates.
func (s *Subsystem) estimatePosition(truePos core.Position3D, confidence float64) core.Position3D {
	errScale := (1.0 - confidence) * maxPositionErrorM
	s.rngMu.Lock()
	east := s.rng.NormFloat64() * errScale
	north := s.rng.NormFloat64() * errScale
	s.rngMu.Unlock()
	return geo.Offset(truePos, east, north, 0)
}

// signalStrengthDb attenuates the reference signal with distance.
func signalStrengthDb(distM float64) float64 {
	km := math.Max(1.0, distM/1000.0)
	return defaultSignalDb - 20.0*math.Log10(km)
}

func (s *Subsystem) draw() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

func (s *Subsystem) gauss() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.NormFloat64()
}

// emit records a detection and publishes it on the bus.
func (s *Subsystem) emit(ev core.DetectionEvent) {
	s.mu.Lock()
	s.detections++
	s.mu.Unlock()

	if err := s.deps.Store.RecordDetection(&ev); err != nil {
		s.deps.LogManager.Logger().Error("Failed to record detection",
			"radar", ev.InstallationCallsign,
			"projectileId", ev.ProjectileID,
			"error", err,
		)
	}

	s.deps.Bus.Publish(streaming.TopicRadarDetection, streaming.Detection{
		InstallationCallsign: ev.InstallationCallsign,
		ProjectileID:         ev.ProjectileID,
		Lat:                  ev.Position.Lat,
		Lon:                  ev.Position.Lon,
		Alt:                  ev.Position.Alt,
		Confidence:           ev.Confidence,
		SignalStrengthDb:     ev.SignalStrengthDb,
		Tick:                 ev.Tick,
		Timestamp:            ev.Time.UnixMilli(),
	})
}

// dropTrack removes a projectile from all tracking state.
func (s *Subsystem) dropTrack(projectileID string) {
	s.mu.Lock()
	delete(s.tracks, projectileID)
	s.mu.Unlock()
	for _, st := range s.sites {
		st.mu.Lock()
		delete(st.lastScanMs, projectileID)
		st.mu.Unlock()
	}
}

// CleanupStaleTracks drops tracks with no position update for the
// configured timeout. Returns the number removed.
func (s *Subsystem) CleanupStaleTracks(now time.Time) int {
	s.mu.Lock()
	var stale []string
	for id, track := range s.tracks {
		if now.Sub(track.LastSeen) > s.deps.TrackTimeout {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		s.dropTrack(id)
	}
	return len(stale)
}

// ActiveTracks returns the number of projectiles currently tracked.
func (s *Subsystem) ActiveTracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracks)
}

// DetectionCount returns the total detections emitted so far.
func (s *Subsystem) DetectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detections
}

// GetTrack returns a copy of a projectile's track.
func (s *Subsystem) GetTrack(projectileID string) (Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracks[projectileID]
	if !ok {
		return Track{}, false
	}
	return *t, true
}

// Run drives the periodic stale-track cleanup until ctx is cancelled.
func (s *Subsystem) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.CleanupStaleTracks(time.Now()); n > 0 {
				s.deps.LogManager.Logger().Debug("Dropped stale tracks", "count", n)
			}
		}
	}
}
