package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// StorageConfig selects and configures the store backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
}

// MemoryConfig holds in-memory/JSON storage backend settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// OTelConfig holds OpenTelemetry provider settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// GetStorageConfig returns the storage backend selection.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry provider settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  "strikesim",
		BatchTimeout: 5 * time.Second,
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// SetDefaults registers default values for every key the simulation
// reads. Called by Load and directly by tests.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./simlogs")

	// Trajectory engine.
	viper.SetDefault("sim.tickMs", 100)
	viper.SetDefault("sim.gravity", 9.81)
	viper.SetDefault("sim.airDensitySeaLevel", 1.225)
	viper.SetDefault("sim.scaleHeightM", 8500)
	viper.SetDefault("sim.stallSpeedMps", 25.0)
	viper.SetDefault("sim.tickWorkers", 8)

	// Detection subsystem.
	viper.SetDefault("radar.intervalMs", 500)
	viper.SetDefault("radar.baseSensitivity", 0.8)
	viper.SetDefault("radar.jitterSigma", 0.05)
	viper.SetDefault("radar.trackTimeoutSec", 30)
	viper.SetDefault("radar.workers", 10)

	// Engagement coordination.
	viper.SetDefault("engage.maxAttempts", 3)
	viper.SetDefault("engage.cooldownMultiplier", 1.0)
	viper.SetDefault("engage.correlationWindowMs", 1000)
	viper.SetDefault("engage.accuracyWeight", 0.5)
	viper.SetDefault("engage.ammoWeight", 0.3)
	viper.SetDefault("engage.readinessWeight", 0.2)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./simout")
	viper.SetDefault("storage.memory.compressOutput", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "strikesim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "strikesim-metrics")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from a JSON file in configDir and sets
// default values. Missing file is not an error: defaults carry a usable
// simulation.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName("strikesim.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// TickDuration returns the simulated duration of one engine tick.
func TickDuration() time.Duration {
	return time.Duration(viper.GetInt("sim.tickMs")) * time.Millisecond
}

// RadarInterval returns the detection evaluation interval.
func RadarInterval() time.Duration {
	return time.Duration(viper.GetInt("radar.intervalMs")) * time.Millisecond
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
