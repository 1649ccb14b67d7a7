package detect

import (
	"bytes"
	"context"
	"coopcount/internal/types"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const maxResponseBytes = 4 << 20

// HTTPDetector calls an external pretrained model service. The frame is POSTed as the request body
// and the JSON response is mapped to predictions with a JMESPath expression.
type HTTPDetector struct {
	url         string
	healthURL   string
	contentType string
	expr        string
	cli         *http.Client
}

// NewHTTPDetector builds a client for the model at url. healthURL may be empty, in which case the
// model is assumed ready and failures surface on Detect.
func NewHTTPDetector(url, healthURL string, cfg types.DetectorConfig) *HTTPDetector {
	cfg = cfg.WithDefaults()
	return &HTTPDetector{
		url:         url,
		healthURL:   healthURL,
		contentType: "image/jpeg",
		expr:        cfg.PredictionsExpr,
		cli:         &http.Client{Timeout: cfg.Timeout()},
	}
}

func (d *HTTPDetector) Detect(ctx context.Context, frame []byte) ([]types.Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("build model request: %w", err)
	}
	ct := d.contentType
	if len(frame) > 0 {
		ct = http.DetectContentType(frame)
	}
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", "application/json")

	resp, err := d.cli.Do(req)
	if err != nil {
		return nil, types.Err(types.ErrDetectorUnavailable, err, "")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, types.Err(types.ErrDetectorUnavailable, err, "read model response")
	}
	if resp.StatusCode >= 500 {
		return nil, types.Err(types.ErrDetectorUnavailable, nil, "model returned %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("model rejected frame: %d %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	preds, err := ExtractPredictions(d.expr, decoded)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"predictions": len(preds),
		"frameBytes":  len(frame),
	}).Debug("model inference done")
	return preds, nil
}

func (d *HTTPDetector) Ready(ctx context.Context) error {
	if d.healthURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.healthURL, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := d.cli.Do(req)
	if err != nil {
		return types.Err(types.ErrDetectorUnavailable, err, "")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.Err(types.ErrDetectorUnavailable, nil, "model health returned %d", resp.StatusCode)
	}
	return nil
}

// Static returns the same predictions for every frame.
type Static struct {
	Predictions []types.Prediction
	Err         error
}

func (s *Static) Detect(_ context.Context, _ []byte) ([]types.Prediction, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]types.Prediction(nil), s.Predictions...), nil
}

func (s *Static) Ready(context.Context) error { return s.Err }

// Unavailable is the detector used when no model is configured.
type Unavailable struct{}

func (Unavailable) Detect(context.Context, []byte) ([]types.Prediction, error) {
	return nil, types.Err(types.ErrDetectorUnavailable, nil, "no model configured")
}

func (Unavailable) Ready(context.Context) error {
	return types.Err(types.ErrDetectorUnavailable, nil, "no model configured")
}
