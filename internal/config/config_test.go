package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/slumber.report/internal/actigraphy"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slumber.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}
	return path
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	cfg := Empty()

	if got := cfg.TrackerParams(); got != actigraphy.DefaultParams() {
		t.Errorf("TrackerParams() = %+v, want firmware defaults", got)
	}
	if got := cfg.GetListen(); got != ":8080" {
		t.Errorf("GetListen() = %q", got)
	}
	if got := cfg.GetDBPath(); got != "sleep_data.db" {
		t.Errorf("GetDBPath() = %q", got)
	}
	if got := cfg.GetMQTTBroker(); got != "" {
		t.Errorf("GetMQTTBroker() = %q, want empty (disabled)", got)
	}
	if got := cfg.GetBaudRate(); got != 115200 {
		t.Errorf("GetBaudRate() = %d", got)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, `{
		"eta": 0.01,
		"threshold_degrees": 7.5,
		"mqtt_broker": "mqtt.example.net:1883",
		"listen": ":9000"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p := cfg.TrackerParams()
	if p.Eta != 0.01 || p.ThresholdDegrees != 7.5 {
		t.Errorf("tuning not applied: %+v", p)
	}
	if p.SampleRate != actigraphy.DefaultSampleRate {
		t.Errorf("omitted sample_rate should keep default, got %d", p.SampleRate)
	}
	if cfg.GetListen() != ":9000" {
		t.Errorf("GetListen() = %q", cfg.GetListen())
	}
	if cfg.GetMQTTBroker() != "mqtt.example.net:1883" {
		t.Errorf("GetMQTTBroker() = %q", cfg.GetMQTTBroker())
	}
	if cfg.GetMQTTTopic() != "slumber/state" {
		t.Errorf("GetMQTTTopic() = %q, want default", cfg.GetMQTTTopic())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"eta out of range", `{"eta": 1.5}`},
		{"zero sample rate", `{"sample_rate": 0}`},
		{"negative threshold", `{"threshold_degrees": -1}`},
		{"bad json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.contents)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	if _, err := Load("slumber.yaml"); err == nil {
		t.Error("expected extension error, got nil")
	}
}
