package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a user-visible failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindPermissionDenied
	KindPositionUnavailable
	KindPickerFailure
	KindMissingImage
	KindMissingLocation
	KindSessionExpired
	KindUploadFailed
	KindInvalidLocation
	KindSubmissionRejected
	KindNetworkError
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindPermissionDenied:    "permission_denied",
	KindPositionUnavailable: "position_unavailable",
	KindPickerFailure:       "picker_failure",
	KindMissingImage:        "missing_image",
	KindMissingLocation:     "missing_location",
	KindSessionExpired:      "session_expired",
	KindUploadFailed:        "upload_failed",
	KindInvalidLocation:     "invalid_location",
	KindSubmissionRejected:  "submission_rejected",
	KindNetworkError:        "network_error",
}

// String returns the snake_case name, also used as a metrics label.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Generic messages shown when a failure carries no detail of its own.
var defaultMessages = map[Kind]string{
	KindPermissionDenied:    "Permission denied.",
	KindPositionUnavailable: "Could not fetch location. Please ensure GPS is on.",
	KindPickerFailure:       "Failed to open image picker",
	KindMissingImage:        "Please upload an image first.",
	KindMissingLocation:     "GPS Location not found.",
	KindSessionExpired:      "Session expired, please login again",
	KindUploadFailed:        "Image upload failed",
	KindInvalidLocation:     "Invalid location format",
	KindSubmissionRejected:  "Report was rejected by the server",
	KindNetworkError:        "Network error, please check your connection and try again.",
}

// Failure is a classified error. Detail is the human message; for
// SubmissionRejected it is the server's message.
type Failure struct {
	Kind   Kind
	Detail string
	Err    error
}

// NewFailure builds a Failure. Detail may be empty to use the kind's default message.
func NewFailure(kind Kind, detail string, err error) *Failure {
	return &Failure{Kind: kind, Detail: detail, Err: err}
}

func (f *Failure) Error() string {
	msg := f.UserMessage()
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, msg, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, msg)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches any *Failure of the same kind, so errors.Is(err, &Failure{Kind: k}) works.
func (f *Failure) Is(target error) bool {
	var t *Failure
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == f.Kind
}

// UserMessage is the text shown to the user.
func (f *Failure) UserMessage() string {
	if f.Detail != "" {
		return f.Detail
	}
	if msg, ok := defaultMessages[f.Kind]; ok {
		return msg
	}
	return "Something went wrong"
}

// KindOf returns the kind of the first *Failure in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries a failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// MessageOf returns the user-facing message for any error.
func MessageOf(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.UserMessage()
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "Something went wrong"
}
