// File: utils/config.go
package utils

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime-tunable parameters. World geometry lives in
// constants.go and is fixed at build time.
type Config struct {
	Port int // HTTP/WebSocket listen port

	// Timing
	TickPeriod      time.Duration // physics tick cadence
	BroadcastPeriod time.Duration // state broadcast cadence
	CountdownDelay  time.Duration // countdown phase length before the first serve
	BetweenDelay    time.Duration // freeze after a score before the next serve

	// Connection liveness
	PingPeriod time.Duration // protocol-level ping cadence
	PongWait   time.Duration // read deadline; a peer missing a ping cycle is dropped
	WriteWait  time.Duration // per-frame write deadline

	SendBuffer int // outbound frames buffered per client before drops kick in
}

// DefaultConfig returns a Config struct with default values.
func DefaultConfig() Config {
	return Config{
		Port:            3000,
		TickPeriod:      time.Second / TickRate,
		BroadcastPeriod: time.Second / SendRate,
		CountdownDelay:  3 * time.Second,
		BetweenDelay:    1500 * time.Millisecond,
		PingPeriod:      30 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		SendBuffer:      64,
	}
}

// FromEnv overlays environment settings onto the defaults. PORT is the only
// runtime configuration; everything else keeps its default.
func FromEnv() Config {
	cfg := DefaultConfig()
	if raw := os.Getenv("PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 && port < 1<<16 {
			cfg.Port = port
		}
	}
	return cfg
}
