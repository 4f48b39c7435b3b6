package domain

import (
	"errors"
	"fmt"
)

// Input table names, as reported in MissingDataError.
const (
	TableFacilities   = "facilities"
	TableRoster       = "roster"
	TableDeficiencies = "deficiencies"
)

// ErrNotLoaded is returned when a request arrives before any dataset has been loaded.
var ErrNotLoaded = errors.New("data not loaded")

// MissingDataError reports a required table or column that is absent from
// the input snapshot. It is the only error the core surfaces to callers.
type MissingDataError struct {
	Table  string
	Column string // empty when the whole table is missing
}

func (e *MissingDataError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("data not loaded: %s", e.Table)
	}
	return fmt.Sprintf("column not found: %s in %s", e.Column, e.Table)
}

// IsMissingData reports whether err is or wraps a MissingDataError or ErrNotLoaded.
func IsMissingData(err error) bool {
	var mde *MissingDataError
	return errors.As(err, &mde) || errors.Is(err, ErrNotLoaded)
}
