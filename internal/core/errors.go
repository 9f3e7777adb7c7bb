package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError is a local input problem. It is shown inline and never
// reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrNoFile is returned by UploadController.Start when no file is selected.
var ErrNoFile = &ValidationError{Field: "file", Message: "Please select a file first."}

// ErrUploadCancelled marks an upload aborted by the user.
var ErrUploadCancelled = errors.New("upload cancelled")

// GenericUploadFailure is the failure reason when the server gives none.
const GenericUploadFailure = "Upload failed"

// ServerError is a non-2xx answer from the comparison service.
type ServerError struct {
	StatusCode int
	Message    string // The body's "message" field, if any
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// FailureReason returns the user-facing reason for a failed upload: the
// server's message when it sent one, otherwise GenericUploadFailure.
func FailureReason(err error) string {
	var srvErr *ServerError
	if errors.As(err, &srvErr) && srvErr.Message != "" {
		return srvErr.Message
	}
	return GenericUploadFailure
}
