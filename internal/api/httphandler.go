package api

import (
	"coopcount/internal/counter"
	"coopcount/internal/history"
	"coopcount/internal/types"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	RequestIDHdrName = "X-Request-ID"
	ExportFileName   = "poultry_counts.csv"

	maxFrameBytes = 8 << 20
)

type Handler struct {
	Counter *counter.Counter
	History *history.Store
}

func NewHandler(c *counter.Counter, h *history.Store) *Handler {
	return &Handler{
		Counter: c,
		History: h,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", method(http.MethodGet, h.handleState))
	mux.HandleFunc("/start", method(http.MethodPost, h.handleStart))
	mux.HandleFunc("/stop", method(http.MethodPost, h.handleStop))
	mux.HandleFunc("/count", method(http.MethodPost, h.handleCount))
	mux.HandleFunc("/detect", method(http.MethodPost, h.handleDetect))
	mux.HandleFunc("/reset", method(http.MethodPost, h.handleReset))
	mux.HandleFunc("/history", method(http.MethodGet, h.handleHistory))
	mux.HandleFunc("/export", method(http.MethodGet, h.handleExport))
	mux.HandleFunc("/labels", method(http.MethodGet, h.handleLabels))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return withRequestLog(mux)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.Counter.State())
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	h.Counter.Start()
	respond(w, http.StatusOK, h.Counter.State())
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := h.Counter.Stop(r.Context()); err != nil {
		http.Error(w, "failed to save count", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, h.Counter.State())
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	changed, err := h.Counter.ManualIncrement(r.Context())
	if err != nil {
		http.Error(w, "failed to save count", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, struct {
		Changed bool `json:"changed"`
		counter.Snapshot
	}{changed, h.Counter.State()})
}

func (h *Handler) handleDetect(w http.ResponseWriter, r *http.Request) {
	frame, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes+1))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()
	if len(frame) == 0 {
		http.Error(w, "empty frame", http.StatusBadRequest)
		return
	}
	if len(frame) > maxFrameBytes {
		http.Error(w, "frame too large", http.StatusRequestEntityTooLarge)
		return
	}

	out, err := h.Counter.Detect(r.Context(), frame)
	switch {
	case err == nil:
		respond(w, http.StatusOK, out)
	case errors.Is(err, types.ErrDetectionInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, types.ErrDetectorUnavailable):
		if wait := h.Counter.RetryAfter(); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		http.Error(w, types.ErrDetectorUnavailable.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, types.ErrDataStoreAccess):
		http.Error(w, "failed to save count", http.StatusInternalServerError)
	default:
		log.WithError(err).Warn("detection failed")
		http.Error(w, "detection failed", http.StatusBadGateway)
	}
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.Counter.Reset(r.Context()); err != nil {
		http.Error(w, "failed to clear history", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, h.Counter.State())
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var records []types.CountRecord
	if ls := q.Get("limit"); ls != "" {
		limit, err := strconv.Atoi(ls)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		records = h.History.Tail(r.Context(), limit)
	} else {
		records = h.History.List(r.Context())
	}

	switch q.Get("format") {
	case "", "json":
		respond(w, http.StatusOK, records)
	case "lines":
		respond(w, http.StatusOK, map[string]any{
			"title": types.LabelsFor(q.Get("lang")).History,
			"lines": types.RenderHistory(q.Get("lang"), records),
		})
	default:
		http.Error(w, "format must be json or lines", http.StatusBadRequest)
	}
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFileName+`"`)
	w.WriteHeader(http.StatusOK)
	if err := h.History.WriteText(r.Context(), w); err != nil {
		log.WithError(err).Warn("export interrupted")
	}
}

func (h *Handler) handleLabels(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	respond(w, http.StatusOK, map[string]any{
		"languages": types.Languages(),
		"labels":    types.LabelsFor(lang),
	})
}

// method rejects requests whose method is not m.
func method(m string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			w.Header().Set("Allow", m)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags every request with an id, echoed back in X-Request-ID, and logs its outcome.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHdrName)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHdrName, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"requestID": id,
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    rec.status,
			"elapsed":   time.Since(start).String(),
		}).Debug("request served")
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func respond(w http.ResponseWriter, code int, v any) {
	if err := writeJSON(w, code, v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}
