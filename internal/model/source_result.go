package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an adapter failure.
type ErrorKind string

const (
	// ErrUnreachable covers network errors, timeouts, and non-200 responses.
	ErrUnreachable ErrorKind = "unreachable"
	// ErrBadSchema means the payload decoded but did not have the expected shape.
	ErrBadSchema ErrorKind = "bad_schema"
	// ErrNotFound means the provider has no record matching the entity.
	ErrNotFound ErrorKind = "not_found"
)

// FetchError is the typed failure returned by source adapters.
type FetchError struct {
	Kind ErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError wraps an underlying cause with a failure kind.
func NewFetchError(kind ErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

// KindOf extracts the failure kind from an adapter error, defaulting to
// Unreachable for errors that did not come through a FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrUnreachable
}

// SourceResult is a successful adapter outcome: a partial field map plus the
// provider it came from. Fields may cover only a subset of what the adapter
// is responsible for.
type SourceResult struct {
	Origin string                  `json:"origin"`
	Fields map[MetricField]float64 `json:"fields"`
}

// NewSourceResult builds an empty result for a provider.
func NewSourceResult(origin string) SourceResult {
	return SourceResult{Origin: origin, Fields: make(map[MetricField]float64)}
}

// Set records a field value, applying the same NaN/negative normalization as
// MetricRow.
func (s *SourceResult) Set(field MetricField, value float64) {
	row := MetricRow{Fields: s.Fields}
	row.Set(field, value)
	s.Fields = row.Fields
}

// Empty reports whether the result resolved no fields at all; the reconciler
// treats an empty success like a not-found failure.
func (s SourceResult) Empty() bool { return len(s.Fields) == 0 }
