package config

import (
	"os"
	"path/filepath"
	"testing"

	"iot-fabric/internal/errs"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadRequiresBrokerURL(t *testing.T) {
	clearEnv(t, "MQTT_BROKER", "MQTT_CA_DIR", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD")
	_, err := Load("voice_core")
	if err == nil {
		t.Fatal("expected error when MQTT_BROKER is unset")
	}
	if errs.Of(err) != errs.Config {
		t.Fatalf("Of(err) = %v, want Config", errs.Of(err))
	}
}

func TestLoadUsesClientIDDefault(t *testing.T) {
	clearEnv(t, "MQTT_BROKER", "MQTT_CA_DIR", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD")
	os.Setenv("MQTT_BROKER", "tcp://localhost:1883")

	bus, err := Load("voice_core")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bus.ClientID != "voice_core" {
		t.Fatalf("ClientID = %q, want %q", bus.ClientID, "voice_core")
	}
}

func TestLoadHonorsExplicitClientID(t *testing.T) {
	clearEnv(t, "MQTT_BROKER", "MQTT_CA_DIR", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD")
	os.Setenv("MQTT_BROKER", "tcp://localhost:1883")
	os.Setenv("MQTT_CLIENT_ID", "custom_id")

	bus, err := Load("voice_core")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bus.ClientID != "custom_id" {
		t.Fatalf("ClientID = %q, want custom_id", bus.ClientID)
	}
}

func TestLoadRejectsMissingCACert(t *testing.T) {
	clearEnv(t, "MQTT_BROKER", "MQTT_CA_DIR", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD")
	os.Setenv("MQTT_BROKER", "tcp://localhost:1883")
	os.Setenv("MQTT_CA_DIR", t.TempDir())

	_, err := Load("voice_core")
	if err == nil {
		t.Fatal("expected error for missing ca.crt")
	}
}

func TestLoadAcceptsPresentCACert(t *testing.T) {
	clearEnv(t, "MQTT_BROKER", "MQTT_CA_DIR", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ca.crt"), []byte("dummy"), 0o644); err != nil {
		t.Fatalf("writing ca.crt: %v", err)
	}
	os.Setenv("MQTT_BROKER", "tcp://localhost:1883")
	os.Setenv("MQTT_CA_DIR", dir)

	bus, err := Load("voice_core")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bus.CADir != dir {
		t.Fatalf("CADir = %q, want %q", bus.CADir, dir)
	}
}

func TestLoadVisionDefaults(t *testing.T) {
	clearEnv(t, "CAMERA_ID", "FRAME_WIDTH", "FRAME_HEIGHT", "FPS_TARGET",
		"NIGHT_MODE_THRESHOLD", "STREAM_PORT", "HOST_IP", "HTTPS_ENABLED",
		"HTTPS_CERT_PATH", "HTTPS_KEY_PATH")

	cfg := LoadVision()
	if cfg.FrameWidth != 640 || cfg.FrameHeight != 480 {
		t.Fatalf("default dimensions = %dx%d, want 640x480", cfg.FrameWidth, cfg.FrameHeight)
	}
	if cfg.FPSTarget != 30 {
		t.Fatalf("default FPSTarget = %d, want 30", cfg.FPSTarget)
	}
	if cfg.HTTPSEnabled {
		t.Fatal("default HTTPSEnabled should be false")
	}
}

func TestLoadVisionOverridesFromEnv(t *testing.T) {
	clearEnv(t, "CAMERA_ID", "FRAME_WIDTH", "FRAME_HEIGHT", "FPS_TARGET",
		"NIGHT_MODE_THRESHOLD", "STREAM_PORT", "HOST_IP", "HTTPS_ENABLED",
		"HTTPS_CERT_PATH", "HTTPS_KEY_PATH")
	os.Setenv("FRAME_WIDTH", "1280")
	os.Setenv("HTTPS_ENABLED", "true")
	os.Setenv("NIGHT_MODE_THRESHOLD", "55.5")

	cfg := LoadVision()
	if cfg.FrameWidth != 1280 {
		t.Fatalf("FrameWidth = %d, want 1280", cfg.FrameWidth)
	}
	if !cfg.HTTPSEnabled {
		t.Fatal("expected HTTPSEnabled true")
	}
	if cfg.NightModeThreshold != 55.5 {
		t.Fatalf("NightModeThreshold = %v, want 55.5", cfg.NightModeThreshold)
	}
}

func TestLoadLoggingDefaults(t *testing.T) {
	clearEnv(t, "LOG_LEVEL", "LOG_FORMAT")
	cfg := LoadLogging()
	if cfg.Level != "info" || cfg.Format != "text" {
		t.Fatalf("LoadLogging() = %+v, want info/text defaults", cfg)
	}
}

func TestFleetConfigPathDefault(t *testing.T) {
	clearEnv(t, "FLEET_CONFIG_PATH")
	if got := FleetConfigPath(); got != "fleet.yaml" {
		t.Fatalf("FleetConfigPath() = %q, want fleet.yaml", got)
	}
}
