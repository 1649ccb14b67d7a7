package detect

import (
	"coopcount/internal/ports"
	"coopcount/internal/types"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

const (
	ModelURLKey         = "MODEL_URL"
	ModelHealthURLKey   = "MODEL_HEALTH_URL"
	DetectorConfigKey   = "DETECTOR_CONFIG"
	DetectionPolicyKey  = "DETECTION_POLICY"
	DetectorCooldownKey = "DETECTOR_COOLDOWN"
)

// LoadConfig reads a detector config from a YAML file. Missing fields take their defaults.
func LoadConfig(path string) (types.DetectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.DetectorConfig{}, fmt.Errorf("failed to read detector config: %w", err)
	}
	var cfg types.DetectorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return types.DetectorConfig{}, types.Err(types.ErrInvalidDetectorConfig, err, "parse %s", path)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return types.DetectorConfig{}, types.Err(types.ErrInvalidDetectorConfig, err, "")
	}
	return cfg, nil
}

// ConfigFromEnv loads DETECTOR_CONFIG when set, then applies DETECTION_POLICY and
// DETECTOR_COOLDOWN (seconds) overrides.
func ConfigFromEnv() (types.DetectorConfig, error) {
	cfg := types.DefaultDetectorConfig()
	if path := os.Getenv(DetectorConfigKey); path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return types.DetectorConfig{}, err
		}
	}
	if p := os.Getenv(DetectionPolicyKey); p != "" {
		cfg.Policy = types.DetectionPolicy(p)
	}
	if c := os.Getenv(DetectorCooldownKey); c != "" {
		secs, err := strconv.Atoi(c)
		if err != nil {
			return types.DetectorConfig{}, types.Err(types.ErrInvalidDetectorConfig, err, "%s", DetectorCooldownKey)
		}
		cfg.CooldownSeconds = types.Seconds(secs)
	}
	if err := cfg.Validate(); err != nil {
		return types.DetectorConfig{}, types.Err(types.ErrInvalidDetectorConfig, err, "")
	}
	return cfg, nil
}

// FromEnv returns the HTTP detector for MODEL_URL, or Unavailable when no model is configured.
func FromEnv(cfg types.DetectorConfig) ports.Detector {
	url := os.Getenv(ModelURLKey)
	if url == "" {
		return Unavailable{}
	}
	return NewHTTPDetector(url, os.Getenv(ModelHealthURLKey), cfg)
}
