// Package config provides environment-variable driven configuration for
// the game server, grounded on opd-ai-goldbox-rpg/pkg/config/config.go.
package config

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// BroadcastMode selects whether a successful MOVE triggers an immediate
// extra STATE_UPDATE or relies solely on the periodic ticker (spec.md §4.7).
type BroadcastMode string

const (
	BroadcastPeriodic  BroadcastMode = "periodic"
	BroadcastImmediate BroadcastMode = "immediate"
)

// Config holds every server-tunable named in spec.md §6.2. It is safe for
// concurrent reads; Load() returns a fully populated, immutable instance, so
// the mutex exists only to guard the rare case of a hot-reload in tests.
type Config struct {
	mu sync.RWMutex

	Host string
	Port string

	StateBroadcastInterval time.Duration
	PingInterval           time.Duration
	PurgeInterval          time.Duration

	ConnectionGrace time.Duration
	PlayerGrace     time.Duration

	MovementBroadcastMode BroadcastMode

	LogLevel string

	BoardPath string
	BoardMeta string
}

// Load reads configuration from the environment, falling back to the
// defaults named in spec.md §6.2.
func Load() *Config {
	return &Config{
		Host: getEnv("GRIDKEEP_HOST", "0.0.0.0"),
		Port: getEnv("GRIDKEEP_PORT", "3000"),

		StateBroadcastInterval: getEnvDuration("GRIDKEEP_STATE_BROADCAST_MS", 250*time.Millisecond),
		PingInterval:           getEnvDuration("GRIDKEEP_PING_MS", 30*time.Second),
		PurgeInterval:          getEnvDuration("GRIDKEEP_PURGE_MS", 30*time.Second),

		ConnectionGrace: getEnvDuration("GRIDKEEP_CONNECTION_GRACE_MS", 60*time.Second),
		PlayerGrace:     getEnvDuration("GRIDKEEP_PLAYER_GRACE_MS", 60*time.Second),

		MovementBroadcastMode: BroadcastMode(getEnv("GRIDKEEP_MOVEMENT_BROADCAST_MODE", string(BroadcastPeriodic))),

		LogLevel: getEnv("GRIDKEEP_LOG_LEVEL", "info"),

		BoardPath: getEnv("GRIDKEEP_BOARD_PATH", "board.json"),
		BoardMeta: getEnv("GRIDKEEP_BOARD_META", ""),
	}
}

// Snapshot returns a copy of c under its read lock, safe to hand to callers
// that read many fields without individually locking each one.
func (c *Config) Snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Config{
		Host:                   c.Host,
		Port:                   c.Port,
		StateBroadcastInterval: c.StateBroadcastInterval,
		PingInterval:           c.PingInterval,
		PurgeInterval:          c.PurgeInterval,
		ConnectionGrace:        c.ConnectionGrace,
		PlayerGrace:            c.PlayerGrace,
		MovementBroadcastMode:  c.MovementBroadcastMode,
		LogLevel:               c.LogLevel,
		BoardPath:              c.BoardPath,
		BoardMeta:              c.BoardMeta,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
