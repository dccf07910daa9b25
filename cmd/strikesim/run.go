package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/strikesim/strikesim/internal/battery"
	"github.com/strikesim/strikesim/internal/bus"
	"github.com/strikesim/strikesim/internal/cache"
	"github.com/strikesim/strikesim/internal/command"
	"github.com/strikesim/strikesim/internal/config"
	"github.com/strikesim/strikesim/internal/database"
	"github.com/strikesim/strikesim/internal/influx"
	"github.com/strikesim/strikesim/internal/logging"
	"github.com/strikesim/strikesim/internal/model"
	"github.com/strikesim/strikesim/internal/monitor"
	intotel "github.com/strikesim/strikesim/internal/otel"
	"github.com/strikesim/strikesim/internal/physics"
	"github.com/strikesim/strikesim/internal/radar"
	"github.com/strikesim/strikesim/internal/scenario"
	"github.com/strikesim/strikesim/internal/sim"
	"github.com/strikesim/strikesim/internal/store"
	"github.com/strikesim/strikesim/internal/store/gormdb"
	"github.com/strikesim/strikesim/pkg/core"
	"github.com/strikesim/strikesim/pkg/streaming"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	sessionStart := time.Now()

	if err := config.Load(configDir); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	logPath := logging.LogFilePath(logsDir, "strikesim", sessionStart)
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	var otelProvider *intotel.Provider
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		otelProvider, err = intotel.New(intotel.Config{
			Enabled:      true,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize OTel provider: %w", err)
		}
	}

	logManager := logging.NewSlogManager()
	var logProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		logProvider = otelProvider.LoggerProvider()
	}
	logManager.Setup(logFile, viper.GetString("logLevel"), logProvider)
	logger := logManager.Logger()
	logger.Info("Starting up", "version", Version, "logFile", logPath)

	scn, err := scenario.LoadFile(scenarioPath)
	if err != nil {
		return err
	}
	logger.Info("Loaded scenario",
		"name", scn.Name,
		"theater", scn.Theater,
		"installations", len(scn.Installations),
		"scheduledLaunches", len(scn.Schedule),
	)

	scenarioCtx := scenario.NewContext()
	logManager.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{
			slog.String("scenario", scenarioCtx.Get().Name),
			slog.Int64("tick", scenarioCtx.Tick()),
		}
	})

	sites := cache.NewSiteCache()

	// Storage: memory, or GORM over postgres with sqlite fallback.
	storageCfg := config.GetStorageConfig()
	var dbManager *database.Manager
	var gormDeps gormdb.Dependencies
	if storageCfg.Type != "memory" {
		dbManager = database.NewManager(zlog)
		if err := dbManager.Connect(); err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		if err := dbManager.Setup(); err != nil {
			return fmt.Errorf("failed to set up database: %w", err)
		}
		gormDeps = gormdb.Dependencies{
			DB:         dbManager.DB,
			SiteCache:  sites,
			LogManager: logManager,
		}
	}
	backend, err := store.NewBackend(storageCfg, gormDeps)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	logger.Info("Storage backend initialized", "type", storageCfg.Type)

	coreScn := &core.Scenario{Name: scn.Name, Theater: scn.Theater, StartTime: sessionStart}
	if err := backend.StartScenario(coreScn); err != nil {
		return fmt.Errorf("failed to start scenario: %w", err)
	}
	scenarioCtx.Set(coreScn)

	for i := range scn.Platforms {
		p := scn.Platforms[i]
		sites.AddPlatform(p)
		if err := backend.AddPlatformType(&p); err != nil {
			return fmt.Errorf("failed to register platform %q: %w", p.Nickname, err)
		}
	}
	for i := range scn.Installations {
		inst := scn.Installations[i]
		sites.AddInstallation(inst)
		if err := backend.AddInstallation(&inst); err != nil {
			return fmt.Errorf("failed to register installation %q: %w", inst.Callsign, err)
		}
	}

	b, err := bus.New(logging.NewBusLogger(zlog))
	if err != nil {
		return fmt.Errorf("failed to create bus: %w", err)
	}

	tickMs := int(config.TickDuration() / time.Millisecond)

	engine := sim.New(sim.Dependencies{
		Bus:        b,
		Store:      backend,
		Sites:      sites,
		Scenario:   scenarioCtx,
		LogManager: logManager,
		Physics: physics.Constants{
			GravityMps2:        viper.GetFloat64("sim.gravity"),
			AirDensitySeaLevel: viper.GetFloat64("sim.airDensitySeaLevel"),
			ScaleHeightM:       viper.GetFloat64("sim.scaleHeightM"),
			EarthRadiusM:       physics.Default().EarthRadiusM,
		},
		TickMs:        tickMs,
		StallSpeedMps: viper.GetFloat64("sim.stallSpeedMps"),
		TickWorkers:   viper.GetInt("sim.tickWorkers"),
	})
	engine.Subscribe()

	radarSub := radar.New(radar.Dependencies{
		Bus:             b,
		Store:           backend,
		Sites:           sites,
		LogManager:      logManager,
		TickMs:          tickMs,
		Workers:         viper.GetInt("radar.workers"),
		BaseSensitivity: viper.GetFloat64("radar.baseSensitivity"),
		JitterSigma:     viper.GetFloat64("radar.jitterSigma"),
		ScanInterval:    config.RadarInterval(),
		TrackTimeout:    time.Duration(viper.GetInt("radar.trackTimeoutSec")) * time.Second,
	})
	radarSub.Subscribe()

	coord := command.New(command.Dependencies{
		Bus:                 b,
		Store:               backend,
		Sites:               sites,
		LogManager:          logManager,
		TickMs:              tickMs,
		MaxAttempts:         viper.GetInt("engage.maxAttempts"),
		CorrelationWindowMs: uint64(viper.GetInt("engage.correlationWindowMs")),
		CooldownMultiplier:  viper.GetFloat64("engage.cooldownMultiplier"),
		AccuracyWeight:      viper.GetFloat64("engage.accuracyWeight"),
		AmmoWeight:          viper.GetFloat64("engage.ammoWeight"),
		ReadinessWeight:     viper.GetFloat64("engage.readinessWeight"),
	})
	coord.Subscribe()

	batteries := battery.NewAll(sites, battery.Dependencies{
		Bus:                b,
		LogManager:         logManager,
		CooldownMultiplier: viper.GetFloat64("engage.cooldownMultiplier"),
	})
	for _, ctrl := range batteries {
		ctrl.Subscribe()
	}
	logger.Info("Subsystems wired",
		"radars", radarSub.ActiveTracks(),
		"batteries", len(batteries),
	)

	var influxMgr *influx.Manager
	if viper.GetBool("influx.enabled") {
		influxMgr = influx.NewManager(zlog, filepath.Join(logsDir, "influx_backup.lp.gz"))
		if err := influxMgr.Connect(); err != nil {
			logger.Warn("InfluxDB disabled", "error", err)
			influxMgr = nil
		} else {
			subscribeStats(b, influxMgr, scenarioCtx)
		}
	}

	gormBackend, _ := backend.(*gormdb.Backend)
	mon := monitor.NewService(monitor.Dependencies{
		DB:         gormDeps.DB,
		LogManager: logManager,
		Scenario:   scenarioCtx,
		StatusDir:  logsDir,
		IsDatabaseValid: func() bool {
			return dbManager != nil && dbManager.IsValid
		},
		ActiveProjectiles: engine.ActiveCount,
		TrackedThreats:    coord.ActiveThreats,
		QueueLengths: func() model.WriteQueueLengths {
			if gormBackend == nil {
				return model.WriteQueueLengths{}
			}
			l := gormBackend.Lengths()
			return model.WriteQueueLengths{
				Launches:    uint16(l.Launches),
				TrackPoints: uint16(l.TrackPoints),
				Detections:  uint16(l.Detections),
				Attempts:    uint16(l.Attempts),
				Outcomes:    uint16(l.Outcomes),
			}
		},
		TickDuration: engine.LastTickDuration,
		WriteDuration: func() time.Duration {
			if gormBackend == nil {
				return 0
			}
			return gormBackend.LastWriteDuration()
		},
	})
	if dbManager != nil && dbManager.IsValid && dbManager.DB.Dialector.Name() == "postgres" {
		hyperTables := map[string][]string{
			"track_points": {
				"time",
				"projectile_id",
				"scenario_id",
			},
			"detections": {
				"time",
				"target_projectile_id",
				"scenario_id",
			},
			"sim_performances": {
				"time",
				"scenario_id",
			},
		}
		if err := mon.ValidateHypertables(hyperTables); err != nil {
			logger.Warn("Failed to validate hypertables", "error", err)
		}
	}
	if err := mon.Start(); err != nil {
		logger.Warn("Status monitor failed to start", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(runFor)*time.Second)
		defer cancel()
	}

	go engine.Run(ctx)
	go radarSub.Run(ctx)
	go runSchedule(ctx, b, scenarioCtx, scn.Schedule, logger)
	if influxMgr != nil {
		go recordTickStats(ctx, influxMgr, scenarioCtx, engine)
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	mon.Stop()
	b.Close()

	if err := backend.EndScenario(); err != nil {
		logger.Error("Failed to end scenario", "error", err)
	}
	if exp, ok := backend.(store.Exportable); ok && exp.ExportedFilePath() != "" {
		logger.Info("Scenario results exported", "path", exp.ExportedFilePath())
	}
	if err := backend.Close(); err != nil {
		logger.Error("Failed to close storage backend", "error", err)
	}
	if influxMgr != nil {
		influxMgr.Close()
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := logManager.Flush(flushCtx); err != nil {
		logger.Warn("Failed to flush logs", "error", err)
	}
	if otelProvider != nil {
		if err := otelProvider.Shutdown(flushCtx); err != nil {
			logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	return nil
}

// runSchedule publishes each scripted launch when the scenario clock
// reaches its tick. The schedule arrives sorted.
func runSchedule(ctx context.Context, b *bus.Bus, sc *scenario.Context, schedule []scenario.ScheduledLaunch, logger *slog.Logger) {
	if len(schedule) == 0 {
		return
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	next := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick := uint64(sc.Tick())
			for next < len(schedule) && schedule[next].AtTick <= tick {
				entry := schedule[next]
				logger.Info("Scheduled launch",
					"tick", tick,
					"platform", entry.Launch.PlatformNickname,
					"callsign", entry.Launch.Callsign,
				)
				b.Publish(streaming.TopicLaunchRequest, entry.Launch)
				next++
			}
			if next == len(schedule) {
				logger.Info("Launch schedule exhausted", "count", len(schedule))
				return
			}
		}
	}
}

// subscribeStats forwards detection, terminal and engagement events to
// InfluxDB.
func subscribeStats(b *bus.Bus, mgr *influx.Manager, sc *scenario.Context) {
	ctx := context.Background()

	b.Subscribe(streaming.TopicRadarDetection, "influx", func(msg bus.Message) error {
		d, ok := msg.Payload.(streaming.Detection)
		if !ok {
			return nil
		}
		bucket, point := influx.DetectionPoint(sc.Get().Name, d.InstallationCallsign, d.ProjectileID, d.Confidence, d.SignalStrengthDb, d.Tick)
		return mgr.WritePoint(ctx, bucket, point)
	}, bus.Buffered(256))

	b.Subscribe(streaming.TopicProjectileTerminal, "influx", func(msg bus.Message) error {
		t, ok := msg.Payload.(streaming.TerminalEvent)
		if !ok {
			return nil
		}
		bucket, point := influx.TerminalPoint(sc.Get().Name, t.ID, t.Status, t.Tick)
		return mgr.WritePoint(ctx, bucket, point)
	}, bus.Buffered(64))

	b.Subscribe(streaming.TopicEngagementResult, "influx", func(msg bus.Message) error {
		r, ok := msg.Payload.(streaming.EngagementResult)
		if !ok {
			return nil
		}
		bucket, point := influx.EngagementPoint(sc.Get().Name, r.BatteryCallsign, r.Outcome, r.FailureReason, r.AttemptNumber)
		return mgr.WritePoint(ctx, bucket, point)
	}, bus.Buffered(64))
}

// recordTickStats writes one performance sample per second.
func recordTickStats(ctx context.Context, mgr *influx.Manager, sc *scenario.Context, engine *sim.Engine) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bucket, point := influx.TickPoint(sc.Get().Name, uint64(sc.Tick()), engine.ActiveCount(), engine.LastTickDuration())
			_ = mgr.WritePoint(ctx, bucket, point)
		}
	}
}
