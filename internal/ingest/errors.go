package ingest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyInput    = errors.New("statement is empty")
	ErrDecode        = errors.New("statement is not valid UTF-8 text")
	ErrMalformed     = errors.New("statement is not valid CSV")
	ErrMissingColumn = errors.New("statement is missing a required column")
	ErrTooManyRows   = errors.New("statement has too many rows")
)

// MissingColumnError names every required column absent from the header.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column(s): %s", strings.Join(e.Columns, ", "))
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}
