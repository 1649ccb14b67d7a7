package detect

import (
	"coopcount/internal/types"
	"strings"
)

// Matcher selects poultry-like predictions by case-insensitive label substring and minimum confidence.
type Matcher struct {
	labels        []string
	minConfidence float64
}

func NewMatcher(labels []string, minConfidence float64) Matcher {
	lower := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			lower = append(lower, l)
		}
	}
	return Matcher{labels: lower, minConfidence: minConfidence}
}

// Match reports whether p is a poultry-like prediction.
func (m Matcher) Match(p types.Prediction) bool {
	if p.Confidence < m.minConfidence {
		return false
	}
	label := strings.ToLower(p.Label)
	for _, l := range m.labels {
		if strings.Contains(label, l) {
			return true
		}
	}
	return false
}

// Filter keeps the matching predictions, in order.
func (m Matcher) Filter(preds []types.Prediction) []types.Prediction {
	out := make([]types.Prediction, 0, len(preds))
	for _, p := range preds {
		if m.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
