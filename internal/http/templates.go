package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/period"
	appweb "spendwise/web"
)

// Page names, also used to highlight the navigation bar
const (
	pageUpload  = "upload"
	pageManage  = "manage"
	pageAnalyze = "analyze"
)

var pageNames = []string{pageUpload, pageManage, pageAnalyze}

var templateFuncs = template.FuncMap{
	"dollars": core.FormatDollars,
	"date": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
	"pct": func(d decimal.Decimal) string {
		return d.StringFixed(1) + "%"
	},
	"bytes": func(n int64) string {
		if n < 0 {
			n = 0
		}
		return humanize.Bytes(uint64(n))
	},
	"comma": func(n int) string {
		return humanize.Comma(int64(n))
	},
}

// parsePages builds one template set per page so each page can define its
// own "body" block inside the shared layout.
func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(appweb.TemplatesFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s templates: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// pageData is the single view model handed to every page template.
type pageData struct {
	Page      string
	HasData   bool
	Selection period.Selection
	Summary   core.Summary
	Tip       string
	Rows      []core.Transaction
	Flash     *flash
	Upload    *uploadResult
}

type flash struct {
	Kind    string // success, error or warning
	Message string
}

type uploadResult struct {
	FileName string
	Size     int64
	Stats    core.IngestStats
}

// render executes a page into a buffer and writes it through b. HTMX
// requests receive only the page body; everything else gets the full layout.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, page string, data pageData) {
	t, ok := s.pages[page]
	if !ok {
		s.renderError(w, r, fmt.Errorf("unknown page %q", page))
		return
	}

	name := "layout"
	if isHTMXRequest(r) {
		name = "body"
	}
	data.Page = page

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		s.renderError(w, r, fmt.Errorf("execute %s/%s: %w", page, name, err))
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	fields := applog.NewFields().
		WithErrorType(applog.ErrorTypeTemplate).
		WithRequestID(requestID(r))
	s.structured.LogError(r.Context(), "Failed to render page", err, applog.ComponentTemplate, applog.OpRender, fields)
	InternalServerError("Something went wrong while rendering the page.").Write(w)
}
