package ports

import (
	"context"
	"coopcount/internal/types"
)

// Detector is the pretrained model capability. Implementations own model loading,
// inference and latency; callers only see predictions.
type Detector interface {
	// Detect runs the model on one encoded frame.
	// MUST return an error wrapping types.ErrDetectorUnavailable when the model cannot be reached or loaded.
	Detect(ctx context.Context, frame []byte) ([]types.Prediction, error)

	// Ready reports whether the model is loaded and able to serve.
	Ready(ctx context.Context) error
}
