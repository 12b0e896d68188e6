package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a challan pipeline failure. It is what the client
// renders as the alert title.
type Kind string

const (
	InvalidFeeData   Kind = "invalid_fee_data"
	AssetFetch       Kind = "asset_fetch_error"
	LayoutData       Kind = "layout_data_error"
	PermissionDenied Kind = "permission_denied"
	WriteFailure     Kind = "write_failure"
	Busy             Kind = "busy"
	Unknown          Kind = "unknown"
)

// Message returns the user-facing text for an error kind
func (k Kind) Message() string {
	switch k {
	case InvalidFeeData:
		return "The fee record contains invalid amounts."
	case AssetFetch:
		return "Could not download the school logo. Please try again."
	case LayoutData:
		return "School or bank details are incomplete. Please contact the school office."
	case PermissionDenied:
		return "Storage permission was denied. Grant access and try again."
	case WriteFailure:
		return "The challan could not be saved. Please try again."
	case Busy:
		return "A challan for this fee is already being generated."
	default:
		return "Something went wrong while generating the challan."
	}
}

// HTTPStatus maps an error kind to the status code returned by the API
func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidFeeData, LayoutData:
		return http.StatusUnprocessableEntity
	case AssetFetch:
		return http.StatusBadGateway
	case PermissionDenied:
		return http.StatusForbidden
	case Busy:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a tagged pipeline error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a tagged error from a message
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Wrap tags err with kind. An error that is already tagged keeps its kind.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of a tagged error, or Unknown
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
