package ingest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoDataRows is returned when the sheet has a header but nothing under it.
	ErrNoDataRows = errors.New("file has no data rows")
	// ErrNoValidRows is returned when every data row lacks a category, SKU code or SKU name.
	ErrNoValidRows = errors.New("no valid data rows found")
	// ErrMissingColumns is returned when a required column cannot be resolved.
	ErrMissingColumns = errors.New("missing required columns")
	// ErrUnreadable is returned when the upload cannot be decoded as a spreadsheet.
	ErrUnreadable = errors.New("unreadable file")
)

// Error describes why an upload could not be turned into master data.
type Error struct {
	Err     error
	Missing []string
	Found   []string
	Detail  string
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingColumns):
		return fmt.Sprintf("%v (%s); columns found: %s",
			e.Err, strings.Join(e.Missing, ", "), quoteList(e.Found))
	case e.Detail != "":
		return fmt.Sprintf("%v: %s", e.Err, e.Detail)
	default:
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func quoteList(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
