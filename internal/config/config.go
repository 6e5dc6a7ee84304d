package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Position is a fixed latitude/longitude pair configured for a headless device.
type Position struct {
	Lat float64
	Lon float64
}

// Config holds all client settings, populated from environment variables.
type Config struct {
	APIBaseURL string
	APITimeout time.Duration

	// Geocoding configuration.
	GeocoderBaseURL   string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	GeocoderCacheSize int
	GeocoderEnabled   bool

	// Location acquisition policy.
	LocationTimeout time.Duration
	LocationMaxAge  time.Duration

	StorePath string

	// Headless device capabilities.
	DevicePosition            *Position
	DeviceLowAccuracyPosition *Position
	DevicePermissions         []string

	DiagnosticsAddr string

	KafkaBrokers     []string
	KafkaReportTopic string

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

var knownPermissions = map[string]bool{
	"location": true,
	"camera":   true,
	"storage":  true,
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file (ENV_FILE, default ".env") is loaded first if present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := loadEnvFile(sharedcfg.EnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parsePositiveDuration("API_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	locationTimeout, err := parsePositiveDuration("LOCATION_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}
	locationMaxAge, err := parseNonNegativeDuration("LOCATION_MAX_AGE", "10s")
	if err != nil {
		return nil, err
	}

	position, err := parsePosition("DEVICE_POSITION")
	if err != nil {
		return nil, err
	}
	lowPosition, err := parsePosition("DEVICE_LOW_ACCURACY_POSITION")
	if err != nil {
		return nil, err
	}
	permissions, err := parsePermissions(sharedcfg.EnvOrDefault("DEVICE_PERMISSIONS", "location,camera,storage"))
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		APIBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("API_BASE_URL", "https://monsoon-backend.onrender.com"), "/"),
		APITimeout: apiTimeout,

		GeocoderBaseURL:   strings.TrimRight(sharedcfg.EnvOrDefault("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"), "/"),
		GeocoderUserAgent: sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", "MonsoonApp/1.0"),
		GeocoderTimeout:   geocoderTimeout,
		GeocoderCacheSize: parseGeocoderCacheSize(),
		GeocoderEnabled:   sharedcfg.EnvOrDefault("GEOCODER_ENABLED", "true") == "true",

		LocationTimeout: locationTimeout,
		LocationMaxAge:  locationMaxAge,

		StorePath: sharedcfg.EnvOrDefault("STORE_PATH", "data/monsoon.db"),

		DevicePosition:            position,
		DeviceLowAccuracyPosition: lowPosition,
		DevicePermissions:         permissions,

		DiagnosticsAddr: os.Getenv("DIAGNOSTICS_ADDR"),

		KafkaBrokers:     brokers,
		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "submitted-reports"),

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	if cfg.GeocoderEnabled && cfg.GeocoderUserAgent == "" {
		return nil, errors.New("GEOCODER_USER_AGENT is required when geocoding is enabled")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether submitted reports are published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load ENV_FILE %s: %w", path, err)
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// parsePosition reads "lat,lon". An unset variable yields nil.
func parsePosition(key string) (*Position, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid %s: want \"lat,lon\"", key)
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid %s: coordinates out of range", key)
	}
	return &Position{Lat: lat, Lon: lon}, nil
}

func parsePermissions(v string) ([]string, error) {
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !knownPermissions[p] {
			return nil, fmt.Errorf("invalid DEVICE_PERMISSIONS: unknown permission %q", p)
		}
		out = append(out, p)
	}
	return out, nil
}

func parseGeocoderCacheSize() int {
	if s := os.Getenv("GEOCODER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
