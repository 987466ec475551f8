package lookup

import (
	"errors"
	"fmt"
)

// Code categorizes lookup failures. Codes are wire-visible: the
// transport maps them onto status codes and the CLI onto exit codes.
type Code string

const (
	// CodeProto indicates a malformed request (bad shape, invalid
	// flags, non-string keys) or a requested key whose stored value
	// was absent or empty. Not retryable.
	CodeProto Code = "PROTO"

	// CodeInvalid indicates malformed stored content: bad event log
	// grammar or bad stored JSON for a structured key. Corrupt data is
	// not transient; not retryable.
	CodeInvalid Code = "INVALID"

	// CodeDenied indicates the requester is not authorized to read the
	// job's attributes.
	CodeDenied Code = "DENIED"

	// CodeInternal indicates an internal failure: serialization,
	// store transport, anything the caller cannot fix.
	CodeInternal Code = "INTERNAL"

	// CodeUnavailable indicates the service is shutting down; every
	// outstanding lookup is forced to this state rather than left
	// dangling.
	CodeUnavailable Code = "UNAVAILABLE"
)

// Error is a structured lookup failure.
type Error struct {
	// Code identifies the failure category.
	Code Code

	// Message is a human-readable description.
	Message string

	// JobID identifies the affected job, when known.
	JobID uint64

	// Key identifies the affected attribute, when the failure is
	// attributable to one.
	Key string

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg += fmt.Sprintf(" (job=%d, key=%q)", e.JobID, e.Key)
	} else if e.JobID != 0 {
		msg += fmt.Sprintf(" (job=%d)", e.JobID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the Code from an error chain.
// Returns CodeInternal for errors that are not lookup errors.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return CodeInternal
}

func protoError(jobID uint64, key, message string) *Error {
	return &Error{Code: CodeProto, Message: message, JobID: jobID, Key: key}
}

func invalidError(jobID uint64, key, message string, err error) *Error {
	return &Error{Code: CodeInvalid, Message: message, JobID: jobID, Key: key, Err: err}
}

func internalError(jobID uint64, key, message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, JobID: jobID, Key: key, Err: err}
}
