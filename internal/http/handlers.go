package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/ingest"
	applog "spendwise/internal/log"
	"spendwise/internal/session"
)

const (
	msgUploadSuccess = "File uploaded and parsed successfully! Switch to the 'Manage' or 'Analyze' page."
	msgNoData        = "⚠️ Please go to the 'Upload' page to load your bank statement first."
	msgChooseFile    = "Please choose a CSV file to upload."
)

// loadTable returns the session's statement. ok is false when an error
// response has already been written.
func (s *Server) loadTable(w http.ResponseWriter, r *http.Request) (table *core.Table, ok bool) {
	table, err := s.sessions.Table(w, r)
	if err != nil {
		fields := applog.NewFields().
			WithSession(session.ID(r)).
			WithErrorType(applog.ErrorTypeDatabase).
			WithRequestID(requestID(r))
		s.structured.LogError(r.Context(), "Failed to load session", err, applog.ComponentSession, applog.OpAnalyze, fields)
		InternalServerError("Could not load your statement. Please try again.").Write(w)
		return nil, false
	}
	return table, true
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	table, ok := s.loadTable(w, r)
	if !ok {
		return
	}

	data := pageData{HasData: table != nil}
	if table != nil {
		data.Upload = &uploadResult{Stats: table.Stats}
	}
	s.render(w, r, NewHTMXResponse(), pageUpload, data)
}

// handleUpload ingests a statement into the session. A statement that
// cannot be read leaves the session without data.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	up, err := readUpload(w, r, s.maxUpload)
	switch {
	case errors.Is(err, errNoFile):
		existing, ok := s.loadTable(w, r)
		if !ok {
			return
		}
		b := NewHTMXResponse().Status(http.StatusBadRequest)
		s.render(w, r, b, pageUpload, pageData{
			HasData: existing != nil,
			Flash:   &flash{Kind: "error", Message: msgChooseFile},
		})
		return
	case errors.Is(err, errTooLarge):
		s.rejectUpload(w, r, http.StatusRequestEntityTooLarge, "", 0,
			fmt.Errorf("%w (limit %s)", err, humanize.Bytes(uint64(s.maxUpload))))
		return
	case errors.Is(err, errNotCSV):
		s.rejectUpload(w, r, http.StatusUnprocessableEntity, "", 0, err)
		return
	case err != nil:
		s.rejectUpload(w, r, http.StatusBadRequest, "", 0, err)
		return
	}

	size := int64(len(up.Data))
	table, err := ingest.ParseBytes(up.Data, s.ingestOpts)
	if err != nil {
		s.rejectUpload(w, r, http.StatusUnprocessableEntity, up.Name, size, err)
		return
	}

	id, err := s.sessions.Replace(w, r, table)
	if err != nil {
		fields := applog.NewFields().
			WithUpload(up.Name, size).
			WithErrorType(applog.ErrorTypeDatabase).
			WithRequestID(requestID(r))
		s.structured.LogError(ctx, "Failed to store statement", err, applog.ComponentSession, applog.OpUpload, fields)
		InternalServerError("Could not store your statement. Please try again.").Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.uploads, 1)
	s.structured.LogIngest(ctx, id, up.Name, size,
		table.Stats.RowsRead, table.Stats.RowsDropped, table.Stats.RowsExcluded, table.Stats.RowsKept)
	s.publish(ctx, amqp.NewIngestedEvent(id, up.Name, size, table.Stats))

	b := NewHTMXResponse().TriggerStatementUploaded(table.Stats)
	s.render(w, r, b, pageUpload, pageData{
		HasData: true,
		Flash:   &flash{Kind: "success", Message: msgUploadSuccess},
		Upload:  &uploadResult{FileName: up.Name, Size: size, Stats: table.Stats},
	})
}

func (s *Server) rejectUpload(w http.ResponseWriter, r *http.Request, status int, name string, size int64, cause error) {
	ctx := r.Context()
	id := session.ID(r)

	if err := s.sessions.Discard(r); err != nil {
		s.structured.LogError(ctx, "Failed to discard session after rejected upload", err,
			applog.ComponentSession, applog.OpUpload, applog.NewFields().WithSession(id))
	}

	atomic.AddInt64(&s.appMetrics.uploadsRejected, 1)
	s.structured.LogRejected(ctx, id, name, size, cause)
	s.publish(ctx, amqp.NewRejectedEvent(id, name, size, cause))

	b := NewHTMXResponse().Status(status).TriggerStatementRejected()
	s.render(w, r, b, pageUpload, pageData{
		Flash: &flash{Kind: "error", Message: "Error processing file: " + cause.Error()},
	})
}

// publish sends an ingestion event. Broker failures are logged and never
// reach the user.
func (s *Server) publish(ctx context.Context, ev *amqp.IngestionEvent) {
	if err := s.events.PublishIngestion(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.WithComponent(applog.ComponentAMQP).WarnContext(ctx, "Failed to publish ingestion event",
			"event_id", ev.ID,
			"type", ev.Type,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err.Error())
	}
}

// handleReset drops the session's statement and returns to the upload page.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := session.ID(r)
	if err := s.sessions.Clear(w, r); err != nil {
		s.structured.LogError(r.Context(), "Failed to clear session", err,
			applog.ComponentSession, applog.OpReset, applog.NewFields().WithSession(id))
	}
	atomic.AddInt64(&s.appMetrics.resets, 1)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Session reset",
		applog.FieldSessionID, id,
		applog.FieldOperation, applog.OpReset)

	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().TriggerStatementCleared().Redirect("/").Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("Page not found.").Write(w)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	MethodNotAllowedError(http.MethodGet + ", " + http.MethodPost).Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	const msg = "Too many requests. Please wait a minute and try again."
	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			Header("HX-Reswap", "none").
			TriggerNotification(NotificationError, msg, 5000).
			Write(w)
		return
	}
	TooManyRequestsError(msg).Write(w)
}
