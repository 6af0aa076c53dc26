package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNoJobs       = errors.New("no jobs configured")
	ErrTxReverted   = errors.New("transaction reverted")
	ErrNoUpdateData = errors.New("update data missing for requested feeds")
)

// AllEndpointsUnavailableError reports that every configured oracle endpoint
// failed within a single relay cycle. Last carries the final endpoint's
// error.
type AllEndpointsUnavailableError struct {
	Tried int
	Last  error
}

func (e *AllEndpointsUnavailableError) Error() string {
	return fmt.Sprintf("all %d oracle endpoints unavailable, last error: %v", e.Tried, e.Last)
}

func (e *AllEndpointsUnavailableError) Unwrap() error {
	return e.Last
}
