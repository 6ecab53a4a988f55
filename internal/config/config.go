// Package config provides runtime configuration values for the service.
package config

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds configuration knobs for the HTTP server, the demand drift and
// the price cache.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        slog.Level

	DemandUpdateInterval time.Duration
	DemandDriftMaxDelta  float64
	DemandSeedMin        float64
	DemandSeedMax        float64

	CacheTTL time.Duration
}

const (
	defaultHTTPAddr            = ":8000"
	defaultShutdownTimeoutSec  = 15
	defaultDemandUpdateSec     = 120
	defaultCacheTTLSec         = 60
	defaultDemandDriftMaxDelta = 0.1
	defaultDemandSeedMin       = 0.2
	defaultDemandSeedMax       = 0.8
	defaultLogLevel            = "info"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("HTTP_ADDR", defaultHTTPAddr)
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownTimeoutSec)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("DEMAND_UPDATE_INTERVAL_SECONDS", defaultDemandUpdateSec)
	v.SetDefault("CACHE_TTL_SECONDS", defaultCacheTTLSec)
	v.SetDefault("DEMAND_DRIFT_MAX_DELTA", defaultDemandDriftMaxDelta)
	v.SetDefault("DEMAND_SEED_MIN", defaultDemandSeedMin)
	v.SetDefault("DEMAND_SEED_MAX", defaultDemandSeedMax)
	v.AutomaticEnv()
	return v
}

// positive int lookup; unparsable or non-positive values fall back to def.
func intenv(v *viper.Viper, key string, def int) int {
	n := v.GetInt(key)
	if n <= 0 {
		return def
	}
	return n
}

func durenvs(v *viper.Viper, key string, defSec int) time.Duration {
	return time.Duration(intenv(v, key, defSec)) * time.Second
}

// unitenv reads a value in [0,1]; anything else falls back to def.
func unitenv(v *viper.Viper, key string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64)
	if err != nil || f < 0 || f > 1 {
		return def
	}
	return f
}

func levelenv(v *viper.Viper, key string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v.GetString(key))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load collects configuration from environment with defaults.
func Load() Config {
	v := newViper()
	c := Config{
		HTTPAddr:             v.GetString("HTTP_ADDR"),
		ShutdownTimeout:      durenvs(v, "SHUTDOWN_TIMEOUT", defaultShutdownTimeoutSec),
		LogLevel:             levelenv(v, "LOG_LEVEL"),
		DemandUpdateInterval: durenvs(v, "DEMAND_UPDATE_INTERVAL_SECONDS", defaultDemandUpdateSec),
		DemandDriftMaxDelta:  unitenv(v, "DEMAND_DRIFT_MAX_DELTA", defaultDemandDriftMaxDelta),
		DemandSeedMin:        unitenv(v, "DEMAND_SEED_MIN", defaultDemandSeedMin),
		DemandSeedMax:        unitenv(v, "DEMAND_SEED_MAX", defaultDemandSeedMax),
		CacheTTL:             durenvs(v, "CACHE_TTL_SECONDS", defaultCacheTTLSec),
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = defaultHTTPAddr
	}
	if c.DemandSeedMin > c.DemandSeedMax {
		c.DemandSeedMin, c.DemandSeedMax = defaultDemandSeedMin, defaultDemandSeedMax
	}
	return c
}
