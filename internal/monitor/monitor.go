// Package monitor samples the running subsystems once a second, writes a
// human-readable status file, and records SimPerformance rows.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/strikesim/strikesim/internal/logging"
	"github.com/strikesim/strikesim/internal/model"
	"github.com/strikesim/strikesim/internal/scenario"
)

// Dependencies holds all dependencies for the monitor service. The
// sampling funcs decouple the monitor from the subsystems' types; any of
// them may be nil and reads as zero.
type Dependencies struct {
	DB              *gorm.DB
	LogManager      *logging.SlogManager
	Scenario        *scenario.Context
	StatusDir       string
	IsDatabaseValid func() bool

	ActiveProjectiles func() int
	TrackedThreats    func() int
	QueueLengths      func() model.WriteQueueLengths
	TickDuration      func() time.Duration
	WriteDuration     func() time.Duration
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func sample[T any](f func() T) T {
	var zero T
	if f == nil {
		return zero
	}
	return f()
}

// Snapshot samples every subsystem and returns the status lines plus the
// performance row to persist.
func (s *Service) Snapshot() (output []string, perf model.SimPerformance) {
	sc := s.deps.Scenario.Get()

	queues := sample(s.deps.QueueLengths)

	perf = model.SimPerformance{
		Time:                time.Now(),
		ScenarioID:          sc.ID,
		Tick:                s.deps.Scenario.Tick(),
		ActiveProjectiles:   uint16(sample(s.deps.ActiveProjectiles)),
		TrackedThreats:      uint16(sample(s.deps.TrackedThreats)),
		WriteQueueLengths:   queues,
		TickDurationMs:      float32(sample(s.deps.TickDuration).Seconds() * 1000),
		LastWriteDurationMs: float32(sample(s.deps.WriteDuration).Seconds() * 1000),
	}

	line, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		line = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(line))

	return output, perf
}

// ValidateHypertables validates and creates TimescaleDB hypertables for
// the time-series tables (track points, detections, performance rows).
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	logger := s.deps.LogManager.Logger()

	all := []any{}
	s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables`).Scan(&all)
	for _, row := range all {
		logger.Debug("Hypertable row", "row", fmt.Sprintf("%v", row))
	}

	for table := range tables {
		hypertable := any(nil)
		s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables WHERE hypertable_name = ?`, table).Scan(&hypertable)
		if hypertable != nil {
			logger.Info("Table is already configured", "table", table)
			continue
		}

		queryCreateHypertable := fmt.Sprintf(`
				SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true);
			`, table)
		err := s.deps.DB.Exec(queryCreateHypertable).Error
		if err != nil {
			logger.Error("Failed to create hypertable", "table", table, "error", err)
			return err
		}
		logger.Info("Created hypertable", "table", table)

		queryCompressHypertable := fmt.Sprintf(`
				ALTER TABLE %s SET (
					timescaledb.compress,
					timescaledb.compress_segmentby = ?);
			`, table)
		err = s.deps.DB.Exec(
			queryCompressHypertable,
			strings.Join(tables[table], ","),
		).Error
		if err != nil {
			logger.Error("Failed to enable compression", "table", table, "error", err)
			return err
		}
		logger.Info("Enabled hypertable compression", "table", table)

		queryCompressAfterHypertable := fmt.Sprintf(`
				SELECT add_compression_policy(
					'%s',
					compress_after => interval '14 day');
			`, table)
		err = s.deps.DB.Exec(queryCompressAfterHypertable).Error
		if err != nil {
			logger.Error("Failed to set compress_after", "table", table, "error", err)
			return err
		}
		logger.Info("Set compress_after", "table", table)
	}
	return nil
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		statusFile, err := os.Create(s.deps.StatusDir + "/status.txt")
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer statusFile.Close()

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(1000 * time.Millisecond)

				sc := s.deps.Scenario.Get()
				if sc.ID == 0 {
					continue
				}

				statusStr, perfModel := s.Snapshot()

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					for _, line := range statusStr {
						statusFile.WriteString(line + "\n")
					}
				}

				if s.deps.IsDatabaseValid != nil && s.deps.IsDatabaseValid() {
					err = s.deps.DB.Create(&perfModel).Error
					if err != nil {
						logger.Error("Error writing perf row", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
