package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/strikesim/strikesim/pkg/core"
	"github.com/strikesim/strikesim/pkg/streaming"
)

// ScheduledLaunch fires one launch request when the scenario clock
// reaches AtTick.
type ScheduledLaunch struct {
	AtTick uint64                  `json:"atTick"`
	Launch streaming.LaunchRequest `json:"launch"`
}

// File is a scenario definition: the theater, its assets, and the
// scripted launch schedule.
type File struct {
	Name          string              `json:"name"`
	Theater       string              `json:"theater"`
	Platforms     []core.PlatformType `json:"platforms"`
	Installations []core.Installation `json:"installations"`
	Schedule      []ScheduledLaunch   `json:"schedule"`
}

// LoadFile reads and validates a scenario definition. The schedule is
// returned sorted by tick.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	sort.SliceStable(f.Schedule, func(i, j int) bool {
		return f.Schedule[i].AtTick < f.Schedule[j].AtTick
	})
	return &f, nil
}

// Validate rejects scenarios with missing names, unknown roles, or
// launches referencing platforms and callsigns the scenario never
// defines.
func (f *File) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("scenario has no name")
	}

	platforms := make(map[string]bool, len(f.Platforms))
	for _, p := range f.Platforms {
		if p.Nickname == "" {
			return fmt.Errorf("platform with empty nickname")
		}
		if platforms[p.Nickname] {
			return fmt.Errorf("duplicate platform nickname %q", p.Nickname)
		}
		platforms[p.Nickname] = true
	}

	callsigns := make(map[string]bool, len(f.Installations))
	for _, inst := range f.Installations {
		if inst.Callsign == "" {
			return fmt.Errorf("installation with empty callsign")
		}
		if callsigns[inst.Callsign] {
			return fmt.Errorf("duplicate installation callsign %q", inst.Callsign)
		}
		if !inst.Role.Valid() {
			return fmt.Errorf("installation %q has unknown role %q", inst.Callsign, inst.Role)
		}
		callsigns[inst.Callsign] = true
	}

	for i, s := range f.Schedule {
		if err := s.Launch.Validate(); err != nil {
			return fmt.Errorf("schedule entry %d: %w", i, err)
		}
		if !platforms[s.Launch.PlatformNickname] {
			return fmt.Errorf("schedule entry %d references unknown platform %q", i, s.Launch.PlatformNickname)
		}
	}
	return nil
}
