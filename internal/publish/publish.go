// Package publish delivers the composed report. The transport behind a
// Publisher (API authentication, platform retry semantics) is outside the
// pipeline; only the error taxonomy and the duplicate-content feedback loop
// cross the boundary.
package publish

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a delivery failure.
type Kind string

const (
	// PermissionDenied: the target rejected our credentials or write access.
	PermissionDenied Kind = "permission_denied"
	// DuplicateContent: the target refused an identical recent post. The
	// caller may retry once with a uniqueness-breaking suffix.
	DuplicateContent Kind = "duplicate_content"
	// Other: any remaining delivery failure.
	Other Kind = "other"
)

// Error is a typed delivery failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("publish %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind, defaulting to Other.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return Other
}

// Publisher accepts a composed report for delivery.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, text string) error
}
