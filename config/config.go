// Package config resolves process configuration from defaults, an optional
// config.yaml file, and the environment (including a .env file if present).
// CLI flags are applied last by the caller.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable the scanner and the API service read at startup.
type Config struct {
	// Scan engine defaults. Durations are yaml strings like "500ms".
	Workers          int    `yaml:"workers"`
	Port             uint16 `yaml:"port"`
	ScanDelay        string `yaml:"scan_delay"`
	ProbeTimeout     string `yaml:"probe_timeout"`
	ProgressInterval uint64 `yaml:"progress_interval"`
	CheckpointDir    string `yaml:"checkpoint_dir"`

	// Optional pre-probe gates ahead of the status exchange.
	ICMPGate     bool `yaml:"icmp_gate"`
	SynPrefilter bool `yaml:"syn_prefilter"`

	// Discord notification channel. Empty token disables the channel.
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`

	// API service mode.
	RedisAddr  string `yaml:"redis_addr"`
	APIKey     string `yaml:"api_key"`
	ListenAddr string `yaml:"listen_addr"`
	APIWorkers int    `yaml:"api_workers"`
}

// Defaults returns the baseline configuration mirroring the scanner's
// historical CLI defaults.
func Defaults() Config {
	return Config{
		Workers:          50,
		Port:             25565,
		ScanDelay:        "500ms",
		ProbeTimeout:     "20s",
		ProgressInterval: 100,
		CheckpointDir:    "checkpoints",
		RedisAddr:        "localhost:6379",
		ListenAddr:       ":8080",
		APIWorkers:       5,
	}
}

// Load builds the effective configuration: defaults, overlaid by the yaml
// file at path (skipped when absent), overlaid by the environment. A .env
// file in the working directory is folded into the environment first.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	// Missing .env is the normal case.
	_ = godotenv.Load()

	cfg.DiscordToken = getenv("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DiscordChannel = getenv("DISCORD_CHANNEL_ID", cfg.DiscordChannel)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.APIKey = getenv("API_KEY", cfg.APIKey)
	cfg.ListenAddr = getenv("LISTEN_ADDR", cfg.ListenAddr)

	return cfg, nil
}

// ScanDelayDuration parses the jitter upper bound, falling back to the
// default on a malformed value.
func (c Config) ScanDelayDuration() time.Duration {
	return parseDuration(c.ScanDelay, 500*time.Millisecond)
}

// ProbeTimeoutDuration parses the per-target probe budget.
func (c Config) ProbeTimeoutDuration() time.Duration {
	return parseDuration(c.ProbeTimeout, 20*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
