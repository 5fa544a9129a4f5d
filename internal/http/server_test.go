package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"spendwise/internal/amqp"
	"spendwise/internal/analysis"
	"spendwise/internal/core"
	"spendwise/internal/export"
	applog "spendwise/internal/log"
	"spendwise/internal/session"
	"spendwise/internal/session/memory"
)

const scenarioCSV = "Date,Amount,Category\n" +
	"2024-01-05,50,Food\n" +
	"2024-01-20,-30,Refund\n" +
	"2024-01-10,20,Savings\n"

const multiMonthCSV = "Date,Amount,Category\n" +
	"03/02/2023,12.50,Coffee\n" +
	"03/15/2023,100,Rent\n" +
	"01/05/2024,50,Food\n" +
	"02/03/2024,40,Food\n" +
	"02/28/2024,10.25,Transport\n" +
	"not a date,5,Food\n"

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.IngestionEvent
	err    error
}

func (p *recordingPublisher) PublishIngestion(_ context.Context, ev *amqp.IngestionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestServer(t *testing.T, mutate func(*Options)) (*Server, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	opts := Options{
		Addr:     ":0",
		Sessions: session.NewManager(memory.New(100, time.Hour), time.Hour),
		Tips:     analysis.NewTipPicker(rand.New(rand.NewPCG(1, 2))),
		Events:   pub,
		Logger:   applog.New(applog.Config{Output: &bytes.Buffer{}}),
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, pub
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile(UploadField, filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	} else if err := mw.WriteField("other", "x"); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(srv *Server, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

// uploadOK uploads content and returns the session cookie
func uploadOK(t *testing.T, srv *Server, content string) *http.Cookie {
	t.Helper()
	rr := serve(srv, uploadRequest(t, "bank.csv", content))
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", rr.Code, rr.Body.String())
	}
	return sessionCookie(t, rr)
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestUploadPage(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	assertContains(t, body, "<!DOCTYPE html>", "SpendWise", "Upload Your Bank Statement (CSV only)", `name="statement"`)
	if strings.Contains(body, "Clear statement") {
		t.Error("reset button shown without a statement")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing security headers")
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d body = %s", path, rr.Code, rr.Body.String())
		}
		var payload map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("%s: invalid json: %v", path, err)
		}
	}

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assertContains(t, rr.Body.String(), "http_requests_total", "statement_uploads_total 0", "sessions_active 0")
}

func TestDashboardWithoutStatement(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/manage", "/analyze"} {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
		assertContains(t, rr.Body.String(), "Please go to the", "to load your bank statement first.")
	}
}

func TestUploadThenDashboard(t *testing.T) {
	srv, pub := newTestServer(t, nil)

	rr := serve(srv, uploadRequest(t, "bank.csv", scenarioCSV))
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status = %d body = %s", rr.Code, rr.Body.String())
	}
	assertContains(t, rr.Body.String(), "File uploaded and parsed successfully!", "bank.csv", "Clear statement")
	if trigger := rr.Header().Get("HX-Trigger"); !strings.Contains(trigger, EventStatementUploaded) {
		t.Errorf("HX-Trigger = %q", trigger)
	}
	cookie := sessionCookie(t, rr)

	if got := pub.types(); len(got) != 1 || got[0] != amqp.EventStatementIngested {
		t.Fatalf("published %v", got)
	}
	if ev := pub.events[0]; ev.RowsRead != 3 || ev.RowsKept != 1 || ev.RowsExcluded != 2 || ev.SessionID != cookie.Value {
		t.Errorf("event = %+v", ev)
	}

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/manage", nil), cookie)
	body := rr.Body.String()
	assertContains(t, body, "Monthly Summary (January 2024)", "Total Spent This Month:", "$50.00",
		"Suggested Savings (20%):", "$10.00", "💡 Saving Tip:")
	tipShown := false
	for _, tip := range analysis.Tips {
		if strings.Contains(body, tip) {
			tipShown = true
		}
	}
	if !tipShown {
		t.Error("no saving tip rendered")
	}

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/analyze", nil), cookie)
	body = rr.Body.String()
	assertContains(t, body, "Data Analysis (January 2024)", "Pie Chart (Category Spending)", "Food", "100.0%",
		"Weekly Graph (Spending Trends)", "Week 1", "Bank Statement (Filtered Data)", "2024-01-05")
	for _, excluded := range []string{"Refund", "<td>Savings</td>"} {
		if strings.Contains(body, excluded) {
			t.Errorf("analyze page shows excluded row %q", excluded)
		}
	}
}

func TestPeriodSelection(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	cookie := uploadOK(t, srv, multiMonthCSV)

	tests := []struct {
		name  string
		query string
		wants []string
	}{
		{"default is latest month", "", []string{"Monthly Summary (February 2024)", "$50.25", "$10.05"}},
		{"explicit period", "?year=2023&month=March", []string{"Monthly Summary (March 2023)", "$112.50", "$22.50"}},
		{"month missing from year falls back", "?year=2024&month=March", []string{"Monthly Summary (February 2024)"}},
		{"unknown year falls back", "?year=1999&month=January", []string{"Monthly Summary (January 2024)"}},
		{"garbage year", "?year=abc", []string{"Monthly Summary (February 2024)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(srv, httptest.NewRequest(http.MethodGet, "/manage"+tt.query, nil), cookie)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			assertContains(t, rr.Body.String(), tt.wants...)
		})
	}
}

func TestSelectorsOfferStatementPeriods(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	cookie := uploadOK(t, srv, multiMonthCSV)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/analyze?year=2024", nil), cookie)
	assertContains(t, rr.Body.String(),
		`<option value="2024" selected>2024</option>`,
		`<option value="2023">2023</option>`,
		`<option value="January">January</option>`,
		`<option value="February" selected>February</option>`)
}

func TestHTMXRequestsGetFragments(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := uploadRequest(t, "bank.csv", scenarioCSV)
	req.Header.Set("HX-Request", "true")
	rr := serve(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "<!DOCTYPE html>") {
		t.Error("htmx upload returned a full page")
	}
	cookie := sessionCookie(t, rr)

	req = httptest.NewRequest(http.MethodGet, "/analyze?year=2024&month=January", nil)
	req.Header.Set("HX-Request", "true")
	rr = serve(srv, req, cookie)
	body := rr.Body.String()
	if strings.Contains(body, "<nav") {
		t.Error("fragment must not include the layout")
	}
	assertContains(t, body, "Data Analysis (January 2024)")
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		maxBytes int64
		status   int
		wants    []string
	}{
		{"missing amount column", "bank.csv", "Date,Category\n2024-01-01,Food\n", 0, http.StatusUnprocessableEntity,
			[]string{"Error processing file: missing required column(s): Amount"}},
		{"empty file", "bank.csv", "", 0, http.StatusUnprocessableEntity, []string{"Error processing file: statement is empty"}},
		{"not a csv", "bank.txt", scenarioCSV, 0, http.StatusUnprocessableEntity, []string{"only CSV files are accepted"}},
		{"too large", "bank.csv", scenarioCSV + strings.Repeat("2024-01-05,1,Food\n", 20), 100, http.StatusRequestEntityTooLarge,
			[]string{"file is too large"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, pub := newTestServer(t, func(o *Options) {
				if tt.maxBytes > 0 {
					o.MaxUploadBytes = tt.maxBytes
				}
			})
			cookie := uploadOK(t, srv, scenarioCSV)

			rr := serve(srv, uploadRequest(t, tt.filename, tt.content), cookie)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.status, rr.Body.String())
			}
			assertContains(t, rr.Body.String(), tt.wants...)

			got := pub.types()
			if len(got) != 2 || got[1] != amqp.EventStatementRejected {
				t.Errorf("published %v", got)
			}

			// a failed upload leaves no statement behind
			rr = serve(srv, httptest.NewRequest(http.MethodGet, "/manage", nil), cookie)
			assertContains(t, rr.Body.String(), "Please go to the")
		})
	}
}

func TestUploadWithoutFileKeepsStatement(t *testing.T) {
	srv, pub := newTestServer(t, nil)
	cookie := uploadOK(t, srv, scenarioCSV)

	rr := serve(srv, uploadRequest(t, "", ""), cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	assertContains(t, rr.Body.String(), msgChooseFile)
	if len(pub.types()) != 1 {
		t.Errorf("no event expected for a missing file, got %v", pub.types())
	}

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/manage", nil), cookie)
	assertContains(t, rr.Body.String(), "Monthly Summary (January 2024)")
}

func TestPublishFailureDoesNotFailUpload(t *testing.T) {
	srv, pub := newTestServer(t, nil)
	pub.err = errors.New("broker down")

	uploadOK(t, srv, scenarioCSV)
}

func TestStatementWithoutSpending(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	cookie := uploadOK(t, srv, "Date,Amount,Category\n2024-01-20,-30,Refund\n")

	for _, path := range []string{"/manage", "/analyze"} {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, path, nil), cookie)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
		assertContains(t, rr.Body.String(), "No spending data for this period.")
	}
}

func TestReset(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	cookie := uploadOK(t, srv, scenarioCSV)
	rr := serve(srv, httptest.NewRequest(http.MethodPost, "/session/reset", nil), cookie)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("status = %d location = %q", rr.Code, rr.Header().Get("Location"))
	}
	if c := sessionCookie(t, rr); c.MaxAge >= 0 {
		t.Errorf("cookie not expired: %+v", c)
	}
	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/manage", nil), cookie)
	assertContains(t, rr.Body.String(), "Please go to the")

	cookie = uploadOK(t, srv, scenarioCSV)
	req := httptest.NewRequest(http.MethodPost, "/session/reset", nil)
	req.Header.Set("HX-Request", "true")
	rr = serve(srv, req, cookie)
	if rr.Code != http.StatusOK || rr.Header().Get("HX-Redirect") != "/" {
		t.Fatalf("htmx reset status = %d redirect = %q", rr.Code, rr.Header().Get("HX-Redirect"))
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), EventStatementCleared) {
		t.Errorf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
	}
}

func TestExport(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/analyze/export.xlsx", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("export without statement status = %d", rr.Code)
	}

	cookie := uploadOK(t, srv, multiMonthCSV)
	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/analyze/export.xlsx?year=2024&month=February", nil), cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "spendwise-2024-February.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(export.StatementSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("statement rows = %d, want header plus 2", len(rows))
	}
	if rows[1][1] != "Food" || rows[2][1] != "Transport" {
		t.Errorf("rows = %v", rows)
	}
}

func TestAPISummary(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status without statement = %d", rr.Code)
	}

	cookie := uploadOK(t, srv, multiMonthCSV)
	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/summary?year=2023&month=March", nil), cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var got struct {
		Year             int      `json:"year"`
		Month            string   `json:"month"`
		Years            []int    `json:"years"`
		Transactions     int      `json:"transactions"`
		TotalSpent       string   `json:"total_spent"`
		SuggestedSavings string   `json:"suggested_savings"`
		Months           []string `json:"months"`
		ByCategory       []struct {
			Category string `json:"category"`
			Amount   string `json:"amount"`
		} `json:"by_category"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, rr.Body.String())
	}
	if got.Year != 2023 || got.Month != "March" || got.Transactions != 2 {
		t.Errorf("got %+v", got)
	}
	if got.TotalSpent != "112.5" || got.SuggestedSavings != "22.5" {
		t.Errorf("totals = %s / %s", got.TotalSpent, got.SuggestedSavings)
	}
	if len(got.ByCategory) != 2 || got.ByCategory[0].Category != "Rent" {
		t.Errorf("by_category = %+v", got.ByCategory)
	}
	if len(got.Years) != 2 || got.Years[0] != 2024 {
		t.Errorf("years = %v", got.Years)
	}
}

func TestRateLimitOnStateChanges(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) { o.RateLimitPerMinute = 1 })

	rr := serve(srv, httptest.NewRequest(http.MethodPost, "/session/reset", nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("first reset status = %d", rr.Code)
	}
	rr = serve(srv, httptest.NewRequest(http.MethodPost, "/session/reset", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second reset status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/session/reset", nil)
	req.Header.Set("HX-Request", "true")
	rr = serve(srv, req)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("HX-Reswap") != "none" {
		t.Fatalf("htmx limited status = %d reswap = %q", rr.Code, rr.Header().Get("HX-Reswap"))
	}

	// reads are not limited
	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/manage", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("manage status = %d", rr.Code)
	}
}

func TestUnknownRoutes(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	if rr := serve(srv, httptest.NewRequest(http.MethodGet, "/nope", nil)); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rr.Code)
	}
	if rr := serve(srv, httptest.NewRequest(http.MethodGet, "/upload", nil)); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /upload status = %d", rr.Code)
	}
	if rr := serve(srv, httptest.NewRequest(http.MethodGet, "/static/app.css", nil)); rr.Code != http.StatusOK {
		t.Errorf("static asset status = %d", rr.Code)
	}
}

type brokenStore struct{ session.Store }

func (brokenStore) Count(context.Context) (int, error) { return 0, errors.New("database is locked") }

func (brokenStore) Ping(context.Context) error { return errors.New("database is locked") }

func TestReadyReportsStoreFailure(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) {
		o.Sessions = session.NewManager(brokenStore{memory.New(1, time.Hour)}, time.Hour)
	})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	assertContains(t, rr.Body.String(), `"not_ready"`, "database is locked")

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assertContains(t, rr.Body.String(), "sessions_active -1")
}

// unreadableStore fails every load but accepts writes.
type unreadableStore struct{ session.Store }

func (unreadableStore) Load(context.Context, string) (*core.Table, error) {
	return nil, errors.New("disk I/O error")
}

func TestUploadWithoutFileReportsStoreFailure(t *testing.T) {
	srv, pub := newTestServer(t, func(o *Options) {
		o.Sessions = session.NewManager(unreadableStore{memory.New(10, time.Hour)}, time.Hour)
	})
	cookie := uploadOK(t, srv, scenarioCSV)

	rr := serve(srv, uploadRequest(t, "", ""), cookie)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	assertContains(t, rr.Body.String(), "Could not load your statement")
	if strings.Contains(rr.Body.String(), msgChooseFile) {
		t.Error("a store failure must not be reported as a missing file")
	}
	if len(pub.types()) != 1 {
		t.Errorf("no event expected for a missing file, got %v", pub.types())
	}
}
