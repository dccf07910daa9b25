package scenario

import (
	"sync"
	"sync/atomic"

	"github.com/strikesim/strikesim/pkg/core"
)

// Context holds the current scenario and tick state shared across the
// engine, radar, and command subsystems.
type Context struct {
	mu       sync.RWMutex
	scenario *core.Scenario

	tick atomic.Int64
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		scenario: &core.Scenario{Name: "No scenario loaded"},
	}
}

// Get returns the current scenario
func (sc *Context) Get() *core.Scenario {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.scenario
}

// Set replaces the current scenario and resets the tick counter
func (sc *Context) Set(s *core.Scenario) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.scenario = s
	sc.tick.Store(0)
}

// Tick returns the current tick number
func (sc *Context) Tick() int64 {
	return sc.tick.Load()
}

// AdvanceTick increments and returns the tick number
func (sc *Context) AdvanceTick() int64 {
	return sc.tick.Add(1)
}
