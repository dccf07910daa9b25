package cache

import (
	"sync"
	"testing"

	"github.com/strikesim/strikesim/pkg/core"
)

func TestSiteCache_AddAndGetInstallation(t *testing.T) {
	c := NewSiteCache()

	inst := core.Installation{Callsign: "alpha-battery", Role: core.RoleCounterDefense}
	c.AddInstallation(inst)

	got, ok := c.GetInstallation("alpha-battery")
	if !ok {
		t.Fatal("expected installation to be cached")
	}
	if got.Callsign != "alpha-battery" {
		t.Errorf("expected callsign alpha-battery, got %s", got.Callsign)
	}

	if _, ok := c.GetInstallation("unknown"); ok {
		t.Error("expected miss for unknown callsign")
	}
}

func TestSiteCache_AddAndGetPlatform(t *testing.T) {
	c := NewSiteCache()

	c.AddPlatform(core.PlatformType{Nickname: "interceptor-mk2"})

	got, ok := c.GetPlatform("interceptor-mk2")
	if !ok {
		t.Fatal("expected platform to be cached")
	}
	if got.Nickname != "interceptor-mk2" {
		t.Errorf("expected nickname interceptor-mk2, got %s", got.Nickname)
	}

	if _, ok := c.GetPlatform("unknown"); ok {
		t.Error("expected miss for unknown nickname")
	}
}

func TestSiteCache_Reset(t *testing.T) {
	c := NewSiteCache()
	c.AddInstallation(core.Installation{Callsign: "alpha"})
	c.AddPlatform(core.PlatformType{Nickname: "mk1"})

	c.Reset()

	if _, ok := c.GetInstallation("alpha"); ok {
		t.Error("expected installation cleared after reset")
	}
	if _, ok := c.GetPlatform("mk1"); ok {
		t.Error("expected platform cleared after reset")
	}
}

func TestSiteCache_InstallationsByRole(t *testing.T) {
	c := NewSiteCache()
	c.AddInstallation(core.Installation{Callsign: "radar-1", Role: core.RoleDetection})
	c.AddInstallation(core.Installation{Callsign: "radar-2", Role: core.RoleDetection})
	c.AddInstallation(core.Installation{Callsign: "battery-1", Role: core.RoleCounterDefense})

	radars := c.InstallationsByRole(core.RoleDetection)
	if len(radars) != 2 {
		t.Errorf("expected 2 detection systems, got %d", len(radars))
	}

	all := c.Installations()
	if len(all) != 3 {
		t.Errorf("expected 3 installations, got %d", len(all))
	}
}

func TestSiteCache_OverwriteKeepsLatest(t *testing.T) {
	c := NewSiteCache()
	c.AddInstallation(core.Installation{Callsign: "alpha", AmmoCount: 10})
	c.AddInstallation(core.Installation{Callsign: "alpha", AmmoCount: 7})

	got, _ := c.GetInstallation("alpha")
	if got.AmmoCount != 7 {
		t.Errorf("expected latest ammo count 7, got %d", got.AmmoCount)
	}
}

func TestSiteCache_Concurrent(t *testing.T) {
	c := NewSiteCache()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.AddInstallation(core.Installation{Callsign: string(rune('a' + n%26))})
		}(i)
		go func() {
			defer wg.Done()
			c.Installations()
		}()
	}
	wg.Wait()
}

func TestSiteCache_AdvanceMobiles(t *testing.T) {
	c := NewSiteCache()
	c.AddInstallation(core.Installation{
		Callsign:     "patrol",
		Mobile:       true,
		MoveSpeedMps: 10,
		MovePath: core.Polyline{
			{Lon: 14.0, Lat: 55.0},
			{Lon: 14.5, Lat: 55.0},
		},
		Position: core.Position3D{Lon: 14.0, Lat: 55.0, Alt: 5},
	})
	c.AddInstallation(core.Installation{
		Callsign: "static",
		Position: core.Position3D{Lon: 13.0, Lat: 54.0},
	})

	c.AdvanceMobiles(600)

	moved, _ := c.GetInstallation("patrol")
	if moved.Position.Lon <= 14.0 {
		t.Errorf("expected patrol to advance east, got lon %f", moved.Position.Lon)
	}
	if moved.Position.Alt != 5 {
		t.Errorf("expected altitude preserved, got %f", moved.Position.Alt)
	}

	still, _ := c.GetInstallation("static")
	if still.Position.Lon != 13.0 {
		t.Errorf("expected static installation unmoved, got lon %f", still.Position.Lon)
	}
}

func TestSafeCounter(t *testing.T) {
	var c SafeCounter

	if c.Value() != 0 {
		t.Errorf("expected 0, got %d", c.Value())
	}

	c.Inc()
	c.Inc()
	if c.Value() != 2 {
		t.Errorf("expected 2, got %d", c.Value())
	}

	c.Set(10)
	if c.Value() != 10 {
		t.Errorf("expected 10, got %d", c.Value())
	}
}
