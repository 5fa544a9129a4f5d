// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for reading request data: the period
// selector parameters and the uploaded statement file.

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"spendwise/internal/middleware/trace"
)

// UploadField is the multipart field carrying the statement file.
const UploadField = "statement"

var (
	errNoFile   = errors.New("no file was uploaded")
	errNotCSV   = errors.New("only CSV files are accepted")
	errTooLarge = errors.New("file is too large")
)

// PeriodParams holds the requested year and month. Zero values mean the
// caller did not ask for a specific period.
type PeriodParams struct {
	Year  int
	Month string
}

// ParsePeriodParams extracts year and month from query parameters. An
// unparseable year is treated as absent; resolution against the statement
// happens later and falls back silently.
func ParsePeriodParams(query url.Values) PeriodParams {
	var params PeriodParams

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			params.Year = y
		}
	}
	params.Month = sanitizeInput(query.Get("month"))

	return params
}

// uploadedFile is a statement read fully into memory
type uploadedFile struct {
	Name string
	Data []byte
}

// readUpload reads the statement from a multipart form bounded by maxBytes.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*uploadedFile, error) {
	// room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64<<10)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return nil, errTooLarge
		}
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(UploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, errNoFile
	}
	if err != nil {
		return nil, fmt.Errorf("read form file: %w", err)
	}
	defer file.Close()

	name := sanitizeInput(filepath.Base(header.Filename))
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return nil, errNotCSV
	}
	if header.Size > maxBytes {
		return nil, errTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, errTooLarge
	}
	return &uploadedFile{Name: name, Data: data}, nil
}

// isHTMXRequest reports whether the request came from htmx and expects a
// fragment rather than a full page.
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Boosted") != "true"
}

func requestID(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
