package types

// BoundingBox is the region of a frame a detection model attributes to a prediction.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Prediction is one classification or detection result. Confidence is within [0, 1].
// Box is nil for classifiers.
type Prediction struct {
	Label      string       `json:"label"`
	Confidence float64      `json:"confidence"`
	Box        *BoundingBox `json:"box,omitempty"`
}

// AccuracyStatus is the confidence signal reported after a detection.
type AccuracyStatus string

const (
	AccuracyHigh        AccuracyStatus = "high"
	AccuracyNoDetection AccuracyStatus = "no_detection"
)

// DetectionOutcome summarizes one detection request.
type DetectionOutcome struct {
	Matched int            `json:"matched"`
	Count   int            `json:"count"`
	Status  AccuracyStatus `json:"status"`
}
