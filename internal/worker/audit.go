package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"spendwise/internal/amqp"
	"spendwise/internal/cache"
)

// Bounds for the set of event ids already counted.
const (
	dedupeEntries = 10000
	dedupeTTL     = 24 * time.Hour
)

// AuditTotals accumulates what the audit consumer has seen
type AuditTotals struct {
	Ingested     int64
	Rejected     int64
	RowsRead     int64
	RowsDropped  int64
	RowsExcluded int64
	RowsKept     int64
	Bytes        int64
	LastEvent    time.Time
}

// AuditWorker logs ingestion events and keeps running totals. Duplicate
// deliveries are recognised by event id and counted once.
type AuditWorker struct {
	logger *slog.Logger

	mu     sync.Mutex
	totals AuditTotals
	seen   *cache.LRUCache[struct{}]
}

func NewAuditWorker(logger *slog.Logger) *AuditWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditWorker{
		logger: logger,
		seen:   cache.New[struct{}](cache.Options{MaxEntries: dedupeEntries, TTL: dedupeTTL}),
	}
}

// HandleEvent processes a single ingestion event
func (w *AuditWorker) HandleEvent(ctx context.Context, ev *amqp.IngestionEvent) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid ingestion event: %w", err)
	}

	w.mu.Lock()
	if _, dup := w.seen.Get(ev.ID); dup {
		w.mu.Unlock()
		w.logger.DebugContext(ctx, "Duplicate ingestion event ignored", "event_id", ev.ID)
		return nil
	}
	w.seen.Set(ev.ID, struct{}{})

	switch ev.Type {
	case amqp.EventStatementIngested:
		w.totals.Ingested++
		w.totals.RowsRead += int64(ev.RowsRead)
		w.totals.RowsDropped += int64(ev.RowsDropped)
		w.totals.RowsExcluded += int64(ev.RowsExcluded)
		w.totals.RowsKept += int64(ev.RowsKept)
	case amqp.EventStatementRejected:
		w.totals.Rejected++
	}
	w.totals.Bytes += ev.SizeBytes
	if ev.Timestamp.After(w.totals.LastEvent) {
		w.totals.LastEvent = ev.Timestamp
	}
	w.mu.Unlock()

	attrs := []any{
		"event_id", ev.ID,
		"session_id", ev.SessionID,
		"file_name", ev.FileName,
		"size", humanize.Bytes(uint64(max(ev.SizeBytes, 0))),
	}
	if ev.Type == amqp.EventStatementRejected {
		w.logger.WarnContext(ctx, "Statement rejected", append(attrs, "error", ev.Error)...)
		return nil
	}
	w.logger.InfoContext(ctx, "Statement ingested", append(attrs,
		"rows_read", ev.RowsRead,
		"rows_dropped", ev.RowsDropped,
		"rows_excluded", ev.RowsExcluded,
		"rows_kept", ev.RowsKept)...)
	return nil
}

// Totals returns a snapshot of the running totals
func (w *AuditWorker) Totals() AuditTotals {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totals
}

// LogSummary writes the running totals at info level
func (w *AuditWorker) LogSummary(ctx context.Context) {
	t := w.Totals()
	w.logger.InfoContext(ctx, "Ingestion audit summary",
		"ingested", t.Ingested,
		"rejected", t.Rejected,
		"rows_kept", humanize.Comma(t.RowsKept),
		"rows_dropped", humanize.Comma(t.RowsDropped),
		"bytes", humanize.Bytes(uint64(max(t.Bytes, 0))))
}
