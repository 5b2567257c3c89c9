// Package config loads server configuration from a YAML file and the
// environment. The binary works with no config file at all: every key has a
// default, a configs/config.yaml overrides defaults, and environment
// variables override both. A .env file is honored in development.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	} `mapstructure:"server"`

	Database struct {
		// Path to the SQLite file; ":memory:" for ephemeral runs.
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Sweep struct {
		DueWindowDays      int           `mapstructure:"due_window_days"`
		ReminderWindowDays int           `mapstructure:"reminder_window_days"`
		Interval           time.Duration `mapstructure:"interval"`
		SchedulerEnabled   bool          `mapstructure:"scheduler_enabled"`
	} `mapstructure:"sweep"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("database.path", "./data/pdc.db")
	v.SetDefault("sweep.due_window_days", 7)
	v.SetDefault("sweep.reminder_window_days", 3)
	v.SetDefault("sweep.interval", time.Hour)
	v.SetDefault("sweep.scheduler_enabled", true)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	// Environment overrides
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Server.Port = n
		}
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if enabled := os.Getenv("SWEEP_SCHEDULER_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			cfg.Sweep.SchedulerEnabled = b
		}
	}

	return &cfg
}
