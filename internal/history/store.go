// Package history keeps the append-only log of count records in a key-value byte store.
package history

import (
	"bytes"
	"context"
	"coopcount/internal/ports"
	"coopcount/internal/types"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultKey is the storage key the log lives under.
	DefaultKey = "poultryCounts"
	// ExportHeader is the first line of the text export.
	ExportHeader = "Timestamp,Count"
)

// ParseOrDefault decodes data as JSON into a T, returning def when data is empty or not valid.
func ParseOrDefault[T any](data []byte, def T) T {
	if len(bytes.TrimSpace(data)) == 0 {
		return def
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return def
	}
	return v
}

// Store is the history log. List and Tail never fail: a missing, corrupt or unreadable log is an empty log.
// Append refuses to write when the log cannot be read, so earlier entries are never overwritten.
// Appends within one process are serialized; concurrent writers in other processes can lose updates.
type Store struct {
	mu  sync.Mutex
	kv  ports.KVStore
	key string
}

func NewStore(kv ports.KVStore, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key}
}

// Key is the storage key of the log.
func (s *Store) Key() string { return s.key }

// load reads the persisted log. Absent or unparseable data is an empty log; only a store error is returned.
func (s *Store) load(ctx context.Context) ([]types.CountRecord, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "read history key %s", s.key)
	}
	records := ParseOrDefault(data, []types.CountRecord{})
	if records == nil {
		// a persisted JSON null
		records = []types.CountRecord{}
	}
	return records, nil
}

// Append adds rec to the end of the log. A failed read or write is reported and nothing is written.
func (s *Store) Append(ctx context.Context, rec types.CountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	records = append(records, rec)
	b, err := json.Marshal(records)
	if err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "encode history")
	}
	if err := s.kv.Set(ctx, s.key, b); err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "write history key %s", s.key)
	}
	log.WithFields(log.Fields{
		"count":   rec.Count,
		"entries": len(records),
	}).Debug("history appended")
	return nil
}

// List returns the whole log in chronological order.
func (s *Store) List(ctx context.Context) []types.CountRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		log.WithError(err).WithField("key", s.key).Warn("history read failed, treating as empty")
		return []types.CountRecord{}
	}
	return records
}

// Tail returns the most recent min(k, n) records in chronological order. k <= 0 yields an empty slice.
func (s *Store) Tail(ctx context.Context, k int) []types.CountRecord {
	records := s.List(ctx)
	if k <= 0 {
		return []types.CountRecord{}
	}
	if k < len(records) {
		records = records[len(records)-k:]
	}
	return records
}

// Clear deletes the log key entirely.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "delete history key %s", s.key)
	}
	log.WithField("key", s.key).Info("history cleared")
	return nil
}

// WriteText writes the export: a "Timestamp,Count" header, then one "<timestamp>,<count>" line per record.
// Fields are not quoted.
func (s *Store) WriteText(ctx context.Context, w io.Writer) error {
	return WriteText(w, s.List(ctx))
}

// ExportText returns the export as a string.
func (s *Store) ExportText(ctx context.Context) string {
	var buf bytes.Buffer
	// bytes.Buffer writes do not fail
	_ = s.WriteText(ctx, &buf)
	return buf.String()
}

// WriteText writes records in the export format.
func WriteText(w io.Writer, records []types.CountRecord) error {
	if _, err := io.WriteString(w, ExportHeader+"\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	line := make([]byte, 0, 64)
	for _, r := range records {
		line = append(line[:0], r.Timestamp...)
		line = append(line, ',')
		line = strconv.AppendInt(line, int64(r.Count), 10)
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return nil
}
