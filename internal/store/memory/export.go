// internal/store/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/strikesim/strikesim/pkg/core"
)

// exportProjectile is the JSON shape of one projectile's full history
type exportProjectile struct {
	Launch  core.Projectile     `json:"launch"`
	Track   []core.TrackPoint   `json:"track"`
	Outcome *core.OutcomeRecord `json:"outcome,omitempty"`
}

// exportEngagement is the JSON shape of one engagement and its attempts
type exportEngagement struct {
	Engagement core.Engagement          `json:"engagement"`
	Attempts   []core.EngagementAttempt `json:"attempts"`
}

// exportDocument is the full results file written at scenario end
type exportDocument struct {
	Scenario      *core.Scenario        `json:"scenario"`
	ExportedAt    time.Time             `json:"exportedAt"`
	Platforms     []core.PlatformType   `json:"platforms"`
	Installations []core.Installation   `json:"installations"`
	Projectiles   []exportProjectile    `json:"projectiles"`
	Engagements   []exportEngagement    `json:"engagements"`
	Detections    []core.DetectionEvent `json:"detections"`
}

// exportJSON writes the scenario data to a JSON file.
// Caller must hold b.mu.
func (b *Backend) exportJSON() error {
	if b.scenario == nil {
		return nil
	}

	doc := exportDocument{
		Scenario:   b.scenario,
		ExportedAt: time.Now(),
		Detections: b.detections,
	}

	for _, p := range b.platforms {
		doc.Platforms = append(doc.Platforms, p)
	}
	for _, inst := range b.installations {
		doc.Installations = append(doc.Installations, inst)
	}
	for _, rec := range b.projectiles {
		doc.Projectiles = append(doc.Projectiles, exportProjectile{
			Launch:  rec.Launch,
			Track:   rec.Track,
			Outcome: rec.Outcome,
		})
	}
	for _, rec := range b.engagements {
		doc.Engagements = append(doc.Engagements, exportEngagement{
			Engagement: rec.Engagement,
			Attempts:   rec.Attempts,
		})
	}

	outDir := b.cfg.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	name := sanitizeFileName(b.scenario.Name)
	stamp := b.scenario.StartTime.Format("20060102_150405")
	path := filepath.Join(outDir, fmt.Sprintf("%s.%s.json", name, stamp))
	if b.cfg.CompressOutput {
		path += ".gz"
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		if err := json.NewEncoder(gz).Encode(doc); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	} else {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	}

	b.exportedPath = path
	return nil
}

// sanitizeFileName strips characters unsafe for filesystem use.
func sanitizeFileName(name string) string {
	if name == "" {
		return "scenario"
	}
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
	)
	return replacer.Replace(name)
}
