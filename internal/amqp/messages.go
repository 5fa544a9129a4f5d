package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/core"
)

// Event types published after an upload
const (
	EventStatementIngested = "statement.ingested"
	EventStatementRejected = "statement.rejected"
)

// IngestionEvent describes the outcome of one statement upload. It carries
// counters only, never the statement rows.
type IngestionEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	SessionID    string    `json:"session_id"`
	FileName     string    `json:"file_name"`
	SizeBytes    int64     `json:"size_bytes"`
	RowsRead     int       `json:"rows_read"`
	RowsDropped  int       `json:"rows_dropped"`
	RowsExcluded int       `json:"rows_excluded"`
	RowsKept     int       `json:"rows_kept"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewIngestedEvent builds the event for a successful upload
func NewIngestedEvent(sessionID, fileName string, size int64, stats core.IngestStats) *IngestionEvent {
	return &IngestionEvent{
		ID:           uuid.NewString(),
		Type:         EventStatementIngested,
		SessionID:    sessionID,
		FileName:     fileName,
		SizeBytes:    size,
		RowsRead:     stats.RowsRead,
		RowsDropped:  stats.RowsDropped,
		RowsExcluded: stats.RowsExcluded,
		RowsKept:     stats.RowsKept,
		Timestamp:    time.Now().UTC(),
	}
}

// NewRejectedEvent builds the event for an upload that failed to parse
func NewRejectedEvent(sessionID, fileName string, size int64, cause error) *IngestionEvent {
	ev := &IngestionEvent{
		ID:        uuid.NewString(),
		Type:      EventStatementRejected,
		SessionID: sessionID,
		FileName:  fileName,
		SizeBytes: size,
		Timestamp: time.Now().UTC(),
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	return ev
}

// Validate checks the fields a consumer relies on
func (e *IngestionEvent) Validate() error {
	switch e.Type {
	case EventStatementIngested, EventStatementRejected:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *IngestionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// IngestionEventFromJSON decodes and validates an event
func IngestionEventFromJSON(data []byte) (*IngestionEvent, error) {
	var ev IngestionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
