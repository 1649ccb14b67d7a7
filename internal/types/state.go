package types

import "time"

// TimestampLayout is ISO-8601 in UTC with millisecond precision, e.g. 2026-10-17T08:00:00.000Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// CountRecord is one timestamped count value in the history log. Once appended it is never edited.
type CountRecord struct {
	Count     int    `json:"count"`
	Timestamp string `json:"timestamp"`
}

// NewCountRecord stamps count with t, formatted in UTC.
func NewCountRecord(count int, t time.Time) CountRecord {
	return CountRecord{Count: count, Timestamp: t.UTC().Format(TimestampLayout)}
}

// Time parses the record timestamp. Records written by other tools may carry any RFC 3339 variant.
func (r CountRecord) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}

// CounterState is the live counter. Running gates manual increments.
type CounterState struct {
	Count   int  `json:"count"`
	Running bool `json:"running"`
}

// Reason tells which trigger produced a count event.
type Reason string

const (
	ReasonManual    Reason = "manual"
	ReasonStop      Reason = "stop"
	ReasonDetection Reason = "detection"
)

// CountEvent is published after every appended record.
type CountEvent struct {
	CountRecord
	Reason Reason `json:"reason"`
}
