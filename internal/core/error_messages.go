package core

// error_messages.go maps technical errors to user messages with codes for
// support reference.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - No file: No file was selected
//	          Action: Choose a spreadsheet before uploading
//	          Match: ValidationError on field "file"
//
//	FILE002 - File too large: File exceeds the configured size limit
//	          Action: Split the spreadsheet into smaller files
//	          Patterns: "file too large"
//
//	FILE003 - Unsupported type: File is not a supported spreadsheet
//	          Action: Upload an .xlsx, .xls or .csv file
//	          Patterns: "unsupported file type"
//
//	FILE004 - Unreadable: The selected file could not be opened
//	          Action: Check the path and file permissions
//	          Patterns: "open upload file"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - Upload cancelled: Upload was cancelled
//	         Action: Start a new upload when ready
//	         Patterns: "upload cancelled"
//
//	UPL002 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	UPL003 - Request timeout: Request timed out
//	         Action: Try again or check your connection
//	         Patterns: "context deadline exceeded", "timeout"
//
// # Network Errors (NET001-NET099)
//
//	NET001 - Connection refused: Unable to reach the comparison service
//	NET002 - Unknown host: The service address could not be resolved
//	NET003 - Connection reset: The connection was interrupted
//
// # Server Errors (SRV001-SRV099)
//
//	SRV001 - Server error: the server's own message is shown when present
//
// # Local State Errors (STORE001-STORE099)
//
//	STORE001 - Save failed: Results could not be saved locally
//	STORE002 - Store closed: Local storage is not available
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Nothing to export: There are no records to export
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the configured size limit",
			Action:  "Split the spreadsheet into smaller files",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "File is not a supported spreadsheet",
			Action:  "Upload an .xlsx, .xls or .csv file",
			Code:    "FILE003",
		},
	},
	{
		pattern: "open upload file",
		msg: UserMessage{
			Message: "The selected file could not be opened",
			Action:  "Check the path and file permissions",
			Code:    "FILE004",
		},
	},

	// Upload errors
	{
		pattern: "upload cancelled",
		msg: UserMessage{
			Message: "Upload was cancelled",
			Action:  "Start a new upload when ready",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again or check your connection",
			Code:    "UPL003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again or check your connection",
			Code:    "UPL003",
		},
	},

	// Network errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the comparison service",
			Action:  "Please try again in a few moments",
			Code:    "NET001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "The service address could not be resolved",
			Action:  "Check STOCKSYNC_API_URL and your network connection",
			Code:    "NET002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The connection was interrupted",
			Action:  "Please try again",
			Code:    "NET003",
		},
	},

	// Local state errors
	{
		pattern: "persist state",
		msg: UserMessage{
			Message: "Results could not be saved locally",
			Action:  "Check the state file location and free disk space",
			Code:    "STORE001",
		},
	},
	{
		pattern: "store closed",
		msg: UserMessage{
			Message: "Local storage is not available",
			Action:  "Restart the application",
			Code:    "STORE002",
		},
	},

	// Export errors
	{
		pattern: "nothing to export",
		msg: UserMessage{
			Message: "There are no records to export",
			Action:  "Upload a spreadsheet first",
			Code:    "EXP001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors are matched first, then the known patterns
// (case-insensitive). Unknown errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		if valErr.Field == "file" {
			return UserMessage{
				Message: valErr.Message,
				Action:  "Choose a spreadsheet before uploading",
				Code:    "FILE001",
			}
		}
		return UserMessage{Message: valErr.Message, Action: "Correct the input and try again", Code: "VAL001"}
	}

	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		msg := srvErr.Message
		if msg == "" {
			msg = GenericUploadFailure
		}
		return UserMessage{Message: msg, Action: "Check the file and try again", Code: "SRV001"}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
