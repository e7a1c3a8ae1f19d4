/*
Package configs is responsible for loading and parsing the application's configuration settings.

It primarily configures server parameters by reading operating system environment variables,
including the running environment, port, CORS allowed origins, and the presence broadcast policy.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// BroadcastModeAll sends the full located-user snapshot to every connection
	// on each presence change.
	BroadcastModeAll = "all"

	// BroadcastModeRadius unicasts a distance-filtered snapshot instead of
	// broadcasting the full one.
	BroadcastModeRadius = "radius"

	// DefaultProximityRadiusMeters is the radius used to filter the recipient
	// set when BroadcastModeRadius is active.
	DefaultProximityRadiusMeters = 2000.0
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Presence Broadcast Settings
	BroadcastMode         string
	ProximityRadiusMeters float64
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type conversions and validation.
// It returns a pointer to the AppConfig struct and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "5000"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	// AllowedOrigins
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Presence Broadcast Settings ---
	// BroadcastMode
	mode := os.Getenv("BROADCAST_MODE")
	if mode == "" {
		mode = BroadcastModeAll
	}
	if mode != BroadcastModeAll && mode != BroadcastModeRadius {
		return nil, fmt.Errorf("invalid BROADCAST_MODE %q: must be %q or %q", mode, BroadcastModeAll, BroadcastModeRadius)
	}
	cfg.BroadcastMode = mode

	// ProximityRadiusMeters
	radiusStr := os.Getenv("PROXIMITY_RADIUS_METERS")
	if radiusStr == "" {
		cfg.ProximityRadiusMeters = DefaultProximityRadiusMeters
	} else {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PROXIMITY_RADIUS_METERS environment variable: %w", err)
		}
		if radius <= 0 {
			return nil, fmt.Errorf("PROXIMITY_RADIUS_METERS must be positive, got %v", radius)
		}
		cfg.ProximityRadiusMeters = radius
	}

	return cfg, nil
}
