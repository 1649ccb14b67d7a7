package types

import (
	"fmt"
	"time"
)

// DetectionPolicy decides how a detection result turns into the new count.
type DetectionPolicy string

const (
	// PolicyReplace sets the count to the number of matching predictions. It can decrease the count.
	PolicyReplace DetectionPolicy = "replace"
	// PolicyMaxPresence keeps the larger of the current count and a 0/1 presence bit. It never decreases the count.
	PolicyMaxPresence DetectionPolicy = "max_presence"
)

const (
	DefaultPredictionsExpr = "predictions[].{label: class, confidence: score, box: bbox}"
	DefaultTimeoutSeconds  = 10
	DefaultCooldownSeconds = 30
	MaxTimeoutSeconds      = 120
)

// DefaultLabels are the case-insensitive label substrings treated as poultry.
var DefaultLabels = []string{"bird", "animal", "chicken"}

// DetectorConfig drives the Detection Adapter and the detection policy of the counter.
// Labels are matched as case-insensitive substrings of a prediction label.
// MinConfidence drops predictions scored below it; 0 keeps everything.
// CooldownSeconds left unset takes DefaultCooldownSeconds; 0 disables the cooldown.
// PredictionsExpr is a JMESPath expression turning the model response into a list of
// objects with `label`, `confidence` and optional `box` fields.
type DetectorConfig struct {
	Labels          []string        `json:"labels" yaml:"labels"`
	MinConfidence   float64         `json:"min_confidence" yaml:"min_confidence"`
	Policy          DetectionPolicy `json:"policy" yaml:"policy"`
	PredictionsExpr string          `json:"predictions_expr" yaml:"predictions_expr"`
	TimeoutSeconds  int             `json:"timeout_seconds" yaml:"timeout_seconds"`
	CooldownSeconds *int            `json:"cooldown_seconds,omitempty" yaml:"cooldown_seconds,omitempty"`
}

// DefaultDetectorConfig mirrors the behavior of the original counting page.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Labels:          append([]string(nil), DefaultLabels...),
		Policy:          PolicyReplace,
		PredictionsExpr: DefaultPredictionsExpr,
		TimeoutSeconds:  DefaultTimeoutSeconds,
		CooldownSeconds: Seconds(DefaultCooldownSeconds),
	}
}

// Seconds returns a pointer to n, for optional duration fields.
func Seconds(n int) *int {
	return &n
}

// WithDefaults fills zero fields from DefaultDetectorConfig.
func (c DetectorConfig) WithDefaults() DetectorConfig {
	d := DefaultDetectorConfig()
	if len(c.Labels) == 0 {
		c.Labels = d.Labels
	}
	if c.Policy == "" {
		c.Policy = d.Policy
	}
	if c.PredictionsExpr == "" {
		c.PredictionsExpr = d.PredictionsExpr
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = d.TimeoutSeconds
	}
	if c.CooldownSeconds == nil {
		c.CooldownSeconds = d.CooldownSeconds
	}
	return c
}

func (c DetectorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c DetectorConfig) Cooldown() time.Duration {
	if c.CooldownSeconds == nil {
		return DefaultCooldownSeconds * time.Second
	}
	return time.Duration(*c.CooldownSeconds) * time.Second
}

func (c DetectorConfig) Validate() error {
	if len(c.Labels) == 0 {
		return fmt.Errorf("labels must not be empty")
	}
	for i, l := range c.Labels {
		if l == "" {
			return fmt.Errorf("labels[%d] must not be empty", i)
		}
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be within [0, 1]")
	}
	switch c.Policy {
	case PolicyReplace, PolicyMaxPresence:
	default:
		return fmt.Errorf("policy must be one of %q or %q", PolicyReplace, PolicyMaxPresence)
	}
	if c.PredictionsExpr == "" {
		return fmt.Errorf("predictions_expr is required")
	}
	if c.TimeoutSeconds <= 0 || c.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("timeout_seconds must be within (0, %d]", MaxTimeoutSeconds)
	}
	if c.CooldownSeconds != nil && *c.CooldownSeconds < 0 {
		return fmt.Errorf("cooldown_seconds must be non-negative. 0 for no cooldown")
	}
	return nil
}
