// Package config loads process configuration from the environment:
// best-effort .env load, then os.Getenv with typed defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"iot-fabric/internal/errs"
)

// Bus holds the fields common to every service's broker connection —
// the identity a service presents to the bus.
type Bus struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	CADir     string // directory containing ca.crt
}

// Load reads the MQTT_* variables shared by all three services.
// clientID is the service-specific default used when MQTT_CLIENT_ID is unset.
func Load(clientID string) (Bus, error) {
	_ = godotenv.Load()

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		return Bus{}, errs.New(errs.Config, "MQTT_BROKER is required", nil)
	}

	caDir := getEnv("MQTT_CA_DIR", "")
	if caDir != "" {
		if _, err := os.Stat(filepath.Join(caDir, "ca.crt")); err != nil {
			return Bus{}, errs.New(errs.Config, "MQTT_CA_DIR/ca.crt not found", err)
		}
	}

	return Bus{
		BrokerURL: broker,
		ClientID:  getEnv("MQTT_CLIENT_ID", clientID),
		Username:  os.Getenv("MQTT_USERNAME"),
		Password:  os.Getenv("MQTT_PASSWORD"),
		CADir:     caDir,
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// VisionConfig is the vision-service-specific environment.
type VisionConfig struct {
	CameraID           string
	FrameWidth         int
	FrameHeight        int
	FPSTarget          int
	NightModeThreshold float64
	StreamPort         int
	HostIP             string
	HTTPSEnabled       bool
	HTTPSCertPath      string
	HTTPSKeyPath       string
}

func LoadVision() VisionConfig {
	return VisionConfig{
		CameraID:           getEnv("CAMERA_ID", "0"),
		FrameWidth:         getEnvInt("FRAME_WIDTH", 640),
		FrameHeight:        getEnvInt("FRAME_HEIGHT", 480),
		FPSTarget:          getEnvInt("FPS_TARGET", 30),
		NightModeThreshold: getEnvFloat("NIGHT_MODE_THRESHOLD", 40.0),
		StreamPort:         getEnvInt("STREAM_PORT", 8080),
		HostIP:             getEnv("HOST_IP", "0.0.0.0"),
		HTTPSEnabled:       getEnvBool("HTTPS_ENABLED", false),
		HTTPSCertPath:      os.Getenv("HTTPS_CERT_PATH"),
		HTTPSKeyPath:       os.Getenv("HTTPS_KEY_PATH"),
	}
}

// FleetConfigPath returns the path to the YAML fleet definition.
func FleetConfigPath() string {
	return getEnv("FLEET_CONFIG_PATH", "fleet.yaml")
}

// Logging is the process-wide log level and output format.
type Logging struct {
	Level  string
	Format string
}

// LoadLogging reads LOG_LEVEL/LOG_FORMAT, defaulting to info/text.
func LoadLogging() Logging {
	return Logging{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "text"),
	}
}

func (b Bus) String() string {
	return fmt.Sprintf("Bus{broker=%s client=%s}", b.BrokerURL, b.ClientID)
}
