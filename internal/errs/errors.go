// Package errs provides the error kinds shared by the loaders, the insight
// pipeline, the exporters and the HTTP layer.
//
// Subsystems wrap their native errors into *errs.Error; the CLI and the HTTP
// handlers use the Is* predicates to decide between a hard failure and a
// warning that leaves the rest of the page usable.
//
//	return errs.Wrap(errs.ErrKindInputRejected, "open workbook", err)
//
//	if errs.IsShapeMismatch(err) {
//	    view.Warnings = append(view.Warnings, err.Error())
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing library-specific details.
type ErrKind int

const (
	ErrKindUnknown       ErrKind = iota
	ErrKindInputRejected         // oversized, unreadable or empty input
	ErrKindShapeMismatch         // no category + metrics shape detected
	ErrKindExportFailed          // clipboard, image encoding, sink upload
	ErrKindNotFound              // unknown workbook, sheet or download
	ErrKindInvalidInput          // bad arguments from the caller
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindInputRejected:
		return "input_rejected"
	case ErrKindShapeMismatch:
		return "shape_mismatch"
	case ErrKindExportFailed:
		return "export_failed"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the error type returned across package boundaries.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsInputRejected reports whether err rejected the input file before any
// partial table was exposed.
func IsInputRejected(err error) bool {
	return KindOf(err) == ErrKindInputRejected
}

// IsShapeMismatch reports whether err means no category/metric shape was found.
func IsShapeMismatch(err error) bool {
	return KindOf(err) == ErrKindShapeMismatch
}

// IsExportFailed reports whether err came from a non-fatal export step.
func IsExportFailed(err error) bool {
	return KindOf(err) == ErrKindExportFailed
}

// IsNotFound reports whether err refers to a missing workbook, sheet or download.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsInvalidInput reports whether err was caused by bad caller arguments.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
