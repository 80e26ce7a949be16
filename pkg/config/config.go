package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the complete application configuration.
type Config struct {
	Receiver ReceiverConfig `json:"receiver"`
	Observer ObserverConfig `json:"observer"`
	Display  DisplayConfig  `json:"display"`
}

// ReceiverConfig identifies the dump1090/PiAware instance to poll.
type ReceiverConfig struct {
	// Host is the receiver hostname or IP (default: "localhost")
	Host string `json:"host"`

	// Port is the receiver's HTTP port (default: 8080)
	Port int `json:"port"`

	// MinRequestIntervalSeconds paces consecutive requests to the receiver.
	// 0 = no pacing. History loads issue one request per retained file,
	// so small embedded receivers may want a short interval here.
	MinRequestIntervalSeconds float64 `json:"min_request_interval_seconds"`
}

// ObserverConfig is the reference point used for distance and bearing.
type ObserverConfig struct {
	// Name is a friendly identifier for this observer location
	Name string `json:"name"`

	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64 `json:"longitude"`

	// Elevation in meters above sea level
	Elevation float64 `json:"elevation"`

	// UseReceiverPosition takes the reference point from receiver.json
	// when the receiver reports one.
	UseReceiverPosition bool `json:"use_receiver_position"`
}

// DisplayConfig controls the polling front-ends under cmd/.
type DisplayConfig struct {
	// RefreshIntervalSeconds is how often aircraft.json is polled
	RefreshIntervalSeconds int `json:"refresh_interval_seconds"`

	// Mode is "replace" (only currently reported aircraft) or
	// "merge" (accumulate every aircraft seen, keeping the first sample)
	Mode string `json:"mode"`

	// DistanceUnit is "km", "mi" or "nm"
	DistanceUnit string `json:"distance_unit"`

	// AlertRadius highlights aircraft closer than this, in DistanceUnit. 0 disables.
	AlertRadius float64 `json:"alert_radius"`
}

const (
	ModeReplace = "replace"
	ModeMerge   = "merge"
)

// BaseURL returns the receiver's JSON data root, e.g. "http://localhost:8080/data".
func (r ReceiverConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d/data", r.Host, r.Port)
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so partial files keep sensible values
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Receiver: ReceiverConfig{
			Host: "localhost",
			Port: 8080,
		},
		Observer: ObserverConfig{
			Name:                "Receiver",
			UseReceiverPosition: true,
		},
		Display: DisplayConfig{
			RefreshIntervalSeconds: 5,
			Mode:                   ModeReplace,
			DistanceUnit:           "km",
			AlertRadius:            0,
		},
	}
}

// Validate checks values that would otherwise fail much later at poll time.
func (c *Config) Validate() error {
	if c.Receiver.Host == "" {
		return fmt.Errorf("receiver.host is required")
	}
	if c.Receiver.Port <= 0 || c.Receiver.Port > 65535 {
		return fmt.Errorf("receiver.port %d out of range", c.Receiver.Port)
	}
	if c.Receiver.MinRequestIntervalSeconds < 0 {
		return fmt.Errorf("receiver.min_request_interval_seconds must not be negative")
	}
	if c.Display.Mode != ModeReplace && c.Display.Mode != ModeMerge {
		return fmt.Errorf("display.mode must be %q or %q, got %q", ModeReplace, ModeMerge, c.Display.Mode)
	}
	if c.Display.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("display.refresh_interval_seconds must be positive")
	}
	switch c.Display.DistanceUnit {
	case "km", "mi", "nm":
	default:
		return fmt.Errorf("display.distance_unit must be km, mi or nm, got %q", c.Display.DistanceUnit)
	}
	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// Lets containerized deployments point at a receiver without editing the file.
func (c *Config) applyEnvironmentOverrides() {
	if host := os.Getenv("ADS_BPOLL_RECEIVER_HOST"); host != "" {
		c.Receiver.Host = host
	}
	if port := os.Getenv("ADS_BPOLL_RECEIVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Receiver.Port = p
		}
	}
}
