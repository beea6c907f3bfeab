package domain

import (
	"errors"
	"strings"
)

var (
	// ErrDataUnavailable means the remote dataset could not be fetched or parsed.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrNoDataAvailable means an aggregate was requested over an empty table.
	ErrNoDataAvailable = errors.New("no data available")

	// ErrMissingColumns means the source header lacks columns a view depends on.
	ErrMissingColumns = errors.New("missing columns")
)

// MissingColumnsError lists the columns absent from the source header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing columns: " + strings.Join(e.Columns, ", ")
}

// Is makes errors.Is(err, ErrMissingColumns) match.
func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}
