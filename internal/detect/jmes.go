package detect

import (
	"coopcount/internal/types"
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// EvalAny returns the raw value selected by the JMESPath expression.
// It is safe to pass any decoded JSON (map[string]any, []any, etc.)
// It will return nil and no error if the expression does not match anything.
func EvalAny(expression string, payload any) (any, error) {
	v, err := jmespath.Search(expression, payload)
	if err != nil {
		return nil, fmt.Errorf("jmespath: %w", err)
	}
	return v, nil
}

// ExtractPredictions evaluates expression against a decoded model response. The expression must yield a
// list of objects carrying `label`, `confidence` and optionally `box` ({x, y, width, height} or [x, y, w, h]).
// Items without a string label are skipped; a missing confidence counts as 1.
func ExtractPredictions(expression string, response any) ([]types.Prediction, error) {
	v, err := EvalAny(expression, response)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return []types.Prediction{}, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("predictions expression yielded %T, want a list", v)
	}
	out := make([]types.Prediction, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		label, ok := m["label"].(string)
		if !ok {
			continue
		}
		p := types.Prediction{Label: label, Confidence: 1}
		if c, ok := toFloat(m["confidence"]); ok {
			p.Confidence = c
		}
		p.Box = toBox(m["box"])
		out = append(out, p)
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func toBox(v any) *types.BoundingBox {
	switch t := v.(type) {
	case []any:
		if len(t) != 4 {
			return nil
		}
		var f [4]float64
		for i := range t {
			x, ok := toFloat(t[i])
			if !ok {
				return nil
			}
			f[i] = x
		}
		return &types.BoundingBox{X: f[0], Y: f[1], Width: f[2], Height: f[3]}
	case map[string]any:
		x, _ := toFloat(t["x"])
		y, _ := toFloat(t["y"])
		w, _ := toFloat(t["width"])
		h, _ := toFloat(t["height"])
		return &types.BoundingBox{X: x, Y: y, Width: w, Height: h}
	default:
		return nil
	}
}
