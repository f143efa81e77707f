// Package config loads the gateway's JSON configuration. All fields are
// pointer-typed and optional, so a partial config file is safe: the Get*
// accessors fall back to the firmware defaults for anything omitted.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/slumber.report/internal/actigraphy"
)

// Config is the root configuration. The schema doubles as the body of the
// /api/params endpoint so the same JSON works for startup configuration
// and runtime inspection.
type Config struct {
	// Classifier tuning
	SampleRate       *int     `json:"sample_rate,omitempty"`
	SecondsPerUpdate *int     `json:"seconds_per_update,omitempty"`
	Eta              *float64 `json:"eta,omitempty"`
	HistoryWindows   *int     `json:"history_windows,omitempty"`
	ThresholdDegrees *float64 `json:"threshold_degrees,omitempty"`

	// Gateway wiring
	SerialPort *string `json:"serial_port,omitempty"`
	BaudRate   *int    `json:"baud_rate,omitempty"`
	DBPath     *string `json:"db_path,omitempty"`
	Listen     *string `json:"listen,omitempty"`

	// MQTT telemetry; empty broker disables publishing
	MQTTBroker   *string `json:"mqtt_broker,omitempty"`
	MQTTTopic    *string `json:"mqtt_topic,omitempty"`
	MQTTUsername *string `json:"mqtt_username,omitempty"`
	MQTTPassword *string `json:"mqtt_password,omitempty"`
	MQTTUseTLS   *bool   `json:"mqtt_use_tls,omitempty"`
}

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The path must have a .json
// extension and the file must be under 1MB. Omitted fields keep their
// defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values that have been set.
func (c *Config) Validate() error {
	if c.Eta != nil && (*c.Eta <= 0 || *c.Eta >= 1) {
		return fmt.Errorf("eta must be in (0, 1), got %f", *c.Eta)
	}
	if c.SampleRate != nil && *c.SampleRate < 1 {
		return fmt.Errorf("sample_rate must be positive, got %d", *c.SampleRate)
	}
	if c.SecondsPerUpdate != nil && *c.SecondsPerUpdate < 1 {
		return fmt.Errorf("seconds_per_update must be positive, got %d", *c.SecondsPerUpdate)
	}
	if c.HistoryWindows != nil && *c.HistoryWindows < 1 {
		return fmt.Errorf("history_windows must be positive, got %d", *c.HistoryWindows)
	}
	if c.ThresholdDegrees != nil && *c.ThresholdDegrees <= 0 {
		return fmt.Errorf("threshold_degrees must be positive, got %f", *c.ThresholdDegrees)
	}
	if c.BaudRate != nil && *c.BaudRate < 1 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	return nil
}

// TrackerParams maps the configured tuning onto classifier parameters.
func (c *Config) TrackerParams() actigraphy.Params {
	p := actigraphy.DefaultParams()
	if c.SampleRate != nil {
		p.SampleRate = *c.SampleRate
	}
	if c.SecondsPerUpdate != nil {
		p.SecondsPerUpdate = *c.SecondsPerUpdate
	}
	if c.Eta != nil {
		p.Eta = *c.Eta
	}
	if c.HistoryWindows != nil {
		p.HistoryWindows = *c.HistoryWindows
	}
	if c.ThresholdDegrees != nil {
		p.ThresholdDegrees = *c.ThresholdDegrees
	}
	return p
}

// GetSerialPort returns the serial_port value or the default device node.
func (c *Config) GetSerialPort() string {
	if c.SerialPort == nil {
		return "/dev/ttyACM0"
	}
	return *c.SerialPort
}

// GetBaudRate returns the baud_rate value or the default.
func (c *Config) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

// GetDBPath returns the db_path value or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return "sleep_data.db"
	}
	return *c.DBPath
}

// GetListen returns the listen value or the default address.
func (c *Config) GetListen() string {
	if c.Listen == nil {
		return ":8080"
	}
	return *c.Listen
}

// GetMQTTBroker returns the mqtt_broker value; empty means disabled.
func (c *Config) GetMQTTBroker() string {
	if c.MQTTBroker == nil {
		return ""
	}
	return *c.MQTTBroker
}

// GetMQTTTopic returns the mqtt_topic value or the default.
func (c *Config) GetMQTTTopic() string {
	if c.MQTTTopic == nil {
		return "slumber/state"
	}
	return *c.MQTTTopic
}

// GetMQTTUsername returns the mqtt_username value or empty.
func (c *Config) GetMQTTUsername() string {
	if c.MQTTUsername == nil {
		return ""
	}
	return *c.MQTTUsername
}

// GetMQTTPassword returns the mqtt_password value or empty.
func (c *Config) GetMQTTPassword() string {
	if c.MQTTPassword == nil {
		return ""
	}
	return *c.MQTTPassword
}

// GetMQTTUseTLS returns the mqtt_use_tls value or false.
func (c *Config) GetMQTTUseTLS() bool {
	if c.MQTTUseTLS == nil {
		return false
	}
	return *c.MQTTUseTLS
}
