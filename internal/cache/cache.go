package cache

import (
	"sync"

	"github.com/strikesim/strikesim/internal/geo"
	"github.com/strikesim/strikesim/pkg/core"
)

// SiteCache caches installations and platform types registered for the
// current scenario to avoid db reads on the hot path. Latency in these
// calls is critical to keep the tick loop on schedule.
type SiteCache struct {
	m             sync.Mutex
	installations map[string]core.Installation
	platforms     map[string]core.PlatformType
}

func NewSiteCache() *SiteCache {
	return &SiteCache{
		installations: make(map[string]core.Installation),
		platforms:     make(map[string]core.PlatformType),
	}
}

func (c *SiteCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.installations = make(map[string]core.Installation)
	c.platforms = make(map[string]core.PlatformType)
}

func (c *SiteCache) GetInstallation(callsign string) (core.Installation, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if inst, ok := c.installations[callsign]; ok {
		return inst, true
	}
	return core.Installation{}, false
}

func (c *SiteCache) GetPlatform(nickname string) (core.PlatformType, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if p, ok := c.platforms[nickname]; ok {
		return p, true
	}
	return core.PlatformType{}, false
}

func (c *SiteCache) AddInstallation(inst core.Installation) {
	c.m.Lock()
	defer c.m.Unlock()
	c.installations[inst.Callsign] = inst
}

func (c *SiteCache) AddPlatform(p core.PlatformType) {
	c.m.Lock()
	defer c.m.Unlock()
	c.platforms[p.Nickname] = p
}

// Installations returns a snapshot of all cached installations.
func (c *SiteCache) Installations() []core.Installation {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]core.Installation, 0, len(c.installations))
	for _, inst := range c.installations {
		out = append(out, inst)
	}
	return out
}

// InstallationsByRole returns a snapshot of cached installations holding the given role.
func (c *SiteCache) InstallationsByRole(role core.Role) []core.Installation {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]core.Installation, 0, len(c.installations))
	for _, inst := range c.installations {
		if inst.Role == role {
			out = append(out, inst)
		}
	}
	return out
}

// AdvanceMobiles moves every mobile installation along its patrol path
// to where it stands after elapsedSec of scenario time. Static
// installations and empty paths are untouched.
func (c *SiteCache) AdvanceMobiles(elapsedSec float64) {
	c.m.Lock()
	defer c.m.Unlock()
	for callsign, inst := range c.installations {
		if !inst.Mobile || len(inst.MovePath) == 0 {
			continue
		}
		ground := geo.PathPosition(inst.MovePath, inst.MoveSpeedMps, elapsedSec)
		inst.Position.Lon = ground.Lon
		inst.Position.Lat = ground.Lat
		c.installations[callsign] = inst
	}
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
