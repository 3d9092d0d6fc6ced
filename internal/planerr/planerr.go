// Package planerr defines the error taxonomy shared by every stage of
// the segmentation pipeline: ConfigError, DataError, ResourceError,
// Cancelled and InternalError. Stages never return a bare error; they
// wrap one of these kinds so a driver can branch on Kind() without
// string-matching messages.
package planerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the five error categories of the pipeline.
type Kind int

const (
	// Config marks an invalid polygon, out-of-range parameter or empty
	// access set, detected before any expensive work starts.
	Config Kind = iota
	// Data marks a missing, non-overlapping or corrupt raster/vector
	// input, or insufficient DEM coverage after clipping.
	Data
	// Resource marks an allocation failure for a raster or cell-set
	// buffer. Never retried by the core.
	Resource
	// Cancelled marks a cooperative abort requested by the driver.
	Cancelled
	// Internal marks an invariant violation (e.g. post-build segment
	// overlap). Always fatal; no partial segments are written.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "ConfigError"
	case Data:
		return "DataError"
	case Resource:
		return "ResourceError"
	case Cancelled:
		return "Cancelled"
	case Internal:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Error is the machine-readable-kind, single-line-message error type
// every pipeline stage returns.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Configf builds a ConfigError.
func Configf(format string, args ...interface{}) *Error { return newf(Config, format, args...) }

// Dataf builds a DataError.
func Dataf(format string, args ...interface{}) *Error { return newf(Data, format, args...) }

// Resourcef builds a ResourceError.
func Resourcef(format string, args ...interface{}) *Error { return newf(Resource, format, args...) }

// Internalf builds an InternalError.
func Internalf(format string, args ...interface{}) *Error { return newf(Internal, format, args...) }

// Wrap attaches kind to an existing error, preserving it as Cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	e := newf(kind, format, args...)
	e.Cause = err
	return e
}

// ErrCancelled is the sentinel Cancelled error; use errors.Is to test for it.
var ErrCancelled = &Error{Kind: Cancelled, Message: "operation cancelled"}

// Is reports whether target shares this error's Kind, so that
// errors.Is(err, planerr.ErrCancelled) works across wrapping.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// As extracts the Kind of err, if err is (or wraps) a *Error.
func As(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
