package api

import (
	"errors"
	"fmt"
)

// ErrMissingRate is matched by every *MissingRateError.
var ErrMissingRate = errors.New("missing rate")

// FetchExhaustedError is returned when every attempt against a provider
// failed with a transport error.
type FetchExhaustedError struct {
	Source   string
	URL      string // credentials redacted
	Attempts int
	Err      error // last underlying cause
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("%s: maximum tries (%d) reached for %s: %v", e.Source, e.Attempts, e.URL, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error {
	return e.Err
}

// MissingRateError is returned when a bulk response lacks a requested symbol.
type MissingRateError struct {
	Source string
	Symbol string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("%s: no rate for %q in response", e.Source, e.Symbol)
}

func (e *MissingRateError) Unwrap() error {
	return ErrMissingRate
}
