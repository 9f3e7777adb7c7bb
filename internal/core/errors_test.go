package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &ServerError{StatusCode: 400, Message: "Invalid file format"}, "Invalid file format"},
		{"wrapped server message", fmt.Errorf("upload: %w", &ServerError{StatusCode: 500, Message: "boom"}), "boom"},
		{"server without message", &ServerError{StatusCode: 502}, GenericUploadFailure},
		{"transport error", errors.New("dial tcp: connection refused"), GenericUploadFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureReason(tt.err); got != tt.want {
				t.Errorf("FailureReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServerError_Error(t *testing.T) {
	if got := (&ServerError{StatusCode: 404}).Error(); got != "server error 404: Not Found" {
		t.Errorf("Error() = %q", got)
	}
	var v *ValidationError
	if !errors.As(ErrNoFile, &v) || v.Field != "file" {
		t.Errorf("ErrNoFile is not a file ValidationError: %#v", ErrNoFile)
	}
}
