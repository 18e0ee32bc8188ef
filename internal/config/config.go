// Package config
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type Config struct {
	Interval time.Duration `validate:"gt=0"`
	Samples  uint64        // 0 runs unbounded

	StatPath   string `validate:"required"`
	CPUDir     string `validate:"required"`
	ThermalDir string `validate:"required"`
	GPUDir     string `validate:"required"`

	SensorsFile string
	OutputFile  string
	Quiet       bool

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`

	RunID uuid.UUID
}

func Default() *Config {
	return &Config{
		Interval:   time.Second,
		StatPath:   "/proc/stat",
		CPUDir:     "/sys/devices/system/cpu",
		ThermalDir: "/sys/class/thermal",
		GPUDir:     "/sys/class/kgsl/kgsl-3d0",
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load merges defaults, .env / environment variables, and CLI flags, in
// that precedence order, then validates the result.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	cfg.applyEnv()

	fs := pflag.NewFlagSet("hwpulse", pflag.ContinueOnError)
	fs.DurationVarP(&cfg.Interval, "interval", "i", cfg.Interval, "sample interval")
	fs.Uint64VarP(&cfg.Samples, "samples", "n", cfg.Samples, "stop after this many samples (0 = run until interrupted)")
	fs.StringVarP(&cfg.OutputFile, "out", "o", cfg.OutputFile, "CSV output file (empty disables CSV logging)")
	fs.StringVarP(&cfg.SensorsFile, "sensors", "s", cfg.SensorsFile, "file listing custom sensor paths, one per line")
	fs.BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, "disable the live console view")
	fs.StringVar(&cfg.StatPath, "stat", cfg.StatPath, "CPU accounting source")
	fs.StringVar(&cfg.CPUDir, "cpu-dir", cfg.CPUDir, "per-core cpufreq root")
	fs.StringVar(&cfg.ThermalDir, "thermal-dir", cfg.ThermalDir, "thermal zone root")
	fs.StringVar(&cfg.GPUDir, "gpu-dir", cfg.GPUDir, "GPU sysfs device directory")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text|json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.RunID = uuid.New()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if raw := os.Getenv("HWPULSE_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			c.Interval = d
		}
	}
	if raw := os.Getenv("HWPULSE_SAMPLES"); raw != "" {
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
			c.Samples = n
		}
	}
	c.StatPath = getEnv("HWPULSE_STAT_PATH", c.StatPath)
	c.CPUDir = getEnv("HWPULSE_CPU_DIR", c.CPUDir)
	c.ThermalDir = getEnv("HWPULSE_THERMAL_DIR", c.ThermalDir)
	c.GPUDir = getEnv("HWPULSE_GPU_DIR", c.GPUDir)
	c.SensorsFile = getEnv("HWPULSE_SENSORS_FILE", c.SensorsFile)
	c.OutputFile = getEnv("HWPULSE_OUT", c.OutputFile)
	c.LogLevel = getEnv("HWPULSE_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("HWPULSE_LOG_FORMAT", c.LogFormat)
	if os.Getenv("HWPULSE_QUIET") == "1" {
		c.Quiet = true
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
