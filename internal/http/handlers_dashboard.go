package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"

	"spendwise/internal/analysis"
	"spendwise/internal/core"
	"spendwise/internal/export"
	applog "spendwise/internal/log"
	"spendwise/internal/period"
	"spendwise/internal/session"
)

// periodView is a statement narrowed to the requested period
type periodView struct {
	Selection period.Selection
	Filtered  *core.Table
	Summary   core.Summary
	// HasPeriod is false for a statement without any spending rows
	HasPeriod bool
}

// buildPeriodView resolves the requested period against the statement and
// aggregates it. Unknown years and months fall back silently.
func buildPeriodView(table *core.Table, params PeriodParams) periodView {
	sel, ok := period.Resolve(table, params.Year, params.Month)
	if !ok {
		return periodView{Filtered: &core.Table{}, Summary: analysis.Summarize(nil)}
	}
	filtered := period.Filter(table, sel.Period)
	summary := analysis.Summarize(filtered)
	summary.Period = sel.Period
	return periodView{
		Selection: sel,
		Filtered:  filtered,
		Summary:   summary,
		HasPeriod: true,
	}
}

// periodFor loads the statement and builds the view for the request. table
// is nil when the session holds no statement; ok is false when an error
// response has already been written.
func (s *Server) periodFor(w http.ResponseWriter, r *http.Request) (table *core.Table, view periodView, ok bool) {
	table, ok = s.loadTable(w, r)
	if !ok || table == nil {
		return table, periodView{}, ok
	}

	view = buildPeriodView(table, ParsePeriodParams(r.URL.Query()))
	applog.FromContext(r.Context()).WithComponent(applog.ComponentAnalysis).DebugContext(r.Context(), "Period resolved",
		applog.FieldSessionID, session.ID(r),
		applog.FieldYear, view.Selection.Period.Year,
		applog.FieldMonth, view.Selection.Period.MonthName,
		applog.FieldRowsKept, view.Filtered.Len())
	return table, view, true
}

func (s *Server) handleManage(w http.ResponseWriter, r *http.Request) {
	table, view, ok := s.periodFor(w, r)
	if !ok {
		return
	}
	if table == nil {
		s.render(w, r, NewHTMXResponse(), pageManage, pageData{
			Flash: &flash{Kind: "warning", Message: msgNoData},
		})
		return
	}

	s.render(w, r, NewHTMXResponse(), pageManage, pageData{
		HasData:   true,
		Selection: view.Selection,
		Summary:   view.Summary,
		Tip:       s.tips.Pick(),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	table, view, ok := s.periodFor(w, r)
	if !ok {
		return
	}
	if table == nil {
		s.render(w, r, NewHTMXResponse(), pageAnalyze, pageData{
			Flash: &flash{Kind: "warning", Message: msgNoData},
		})
		return
	}

	s.render(w, r, NewHTMXResponse(), pageAnalyze, pageData{
		HasData:   true,
		Selection: view.Selection,
		Summary:   view.Summary,
		Rows:      analysis.SortedByDate(view.Filtered),
	})
}

// handleExport streams the selected period as an XLSX workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	table, view, ok := s.periodFor(w, r)
	if !ok {
		return
	}
	if table == nil {
		NotFoundError("No statement loaded.").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, view.Summary, analysis.SortedByDate(view.Filtered)); err != nil {
		fields := applog.NewFields().
			WithSession(session.ID(r)).
			WithPeriod(view.Summary.Period.Year, view.Summary.Period.MonthName).
			WithErrorType(applog.ErrorTypeInternal)
		s.structured.LogError(r.Context(), "Failed to build workbook", err, applog.ComponentExport, applog.OpExport, fields)
		InternalServerError("Could not build the export.").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.exports, 1)

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(view.Summary.Period)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// summaryResponse is the JSON shape of /api/summary
type summaryResponse struct {
	Year   int      `json:"year"`
	Month  string   `json:"month"`
	Years  []int    `json:"years"`
	Months []string `json:"months"`
	core.Summary
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	table, view, ok := s.periodFor(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if table == nil {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": core.ErrNoData.Error()})
		return
	}

	resp := summaryResponse{
		Year:    view.Selection.Period.Year,
		Month:   view.Selection.Period.MonthName,
		Years:   nonNil(view.Selection.Years),
		Months:  nonNil(view.Selection.Months),
		Summary: view.Summary,
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
