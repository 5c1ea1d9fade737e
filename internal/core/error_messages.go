// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Unsupported format: only .csv and .xlsx files are accepted
//	          Typed: *UnsupportedFormatError
//
//	FILE002 - Invalid CSV: file could not be parsed as CSV
//	          Typed: *DecodeError with FormatCSV
//	          Patterns: "invalid csv"
//
//	FILE003 - Invalid workbook: file could not be opened as a spreadsheet
//	          Typed: *DecodeError with FormatXLSX
//	          Patterns: "invalid workbook"
//
//	FILE004 - No file: no file was selected
//	          Typed: ErrNoFile
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: the file has no header row
//	          Patterns: "empty file"
//
//	FILE006 - File too large: request exceeds the upload size limit
//	          Patterns: "file too large", "request body too large"
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Unknown column: a selected column does not exist
//	         Typed: *InvalidColumnError
//
// # Export Errors (ENC001-ENC099)
//
//	ENC001 - Export failed: the table could not be written in the chosen format
//	         Typed: *EncodeError
//
//	ENC002 - Unknown format: the requested export format is not CSV or Excel
//	         Patterns: "unknown export format"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired: the browser session is gone
//	         Typed: ErrSessionNotFound
//
//	SES002 - File not found: the file is no longer in the session
//	         Typed: ErrFileNotFound
//
// # Request Errors (REQ003)
//
//	REQ003 - Timeout: the request ran past its deadline
//	         Patterns: "context deadline exceeded"
//
// # Capacity (BUSY001, RATE001)
//
//	BUSY001 - Server busy: too many files being processed
//	          Typed: ErrTooManyPasses
//
//	RATE001 - Rate limited: too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original
// technical error.
//
// # Matching
//
// Typed errors are matched first with errors.As / errors.Is. Remaining errors
// are matched case-insensitively with strings.Contains; the first matching
// pattern wins.

package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgUnsupportedFormat = UserMessage{
		Message: "Unsupported file type",
		Action:  "Upload a .csv or .xlsx file",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated with no row wider than the header",
		Code:    "FILE002",
	}
	msgInvalidWorkbook = UserMessage{
		Message: "File is not a valid Excel workbook",
		Action:  "Re-save the file as .xlsx and upload it again",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Choose one or more CSV or Excel files to upload",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a file with a header row",
		Code:    "FILE005",
	}
	msgTooLarge = UserMessage{
		Message: "Upload exceeds the maximum size",
		Action:  "Upload fewer or smaller files",
		Code:    "FILE006",
	}
	msgInvalidColumn = UserMessage{
		Message: "A selected column does not exist in this file",
		Action:  "Reload the page and choose from the listed columns",
		Code:    "COL001",
	}
	msgEncode = UserMessage{
		Message: "The file could not be exported in the chosen format",
		Action:  "Try the other format or remove oversized values",
		Code:    "ENC001",
	}
	msgSessionExpired = UserMessage{
		Message: "Your session has expired",
		Action:  "Upload your files again",
		Code:    "SES001",
	}
	msgFileNotFound = UserMessage{
		Message: "That file is no longer available",
		Action:  "Upload the file again",
		Code:    "SES002",
	}
	msgBusy = UserMessage{
		Message: "The server is busy processing other files",
		Action:  "Please wait a moment and try again",
		Code:    "BUSY001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps untyped error text (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{pattern: "invalid csv", msg: msgInvalidCSV},
	{pattern: "invalid workbook", msg: msgInvalidWorkbook},
	{pattern: "no file provided", msg: msgNoFile},
	{pattern: "empty file", msg: msgEmptyFile},
	{pattern: "file too large", msg: msgTooLarge},
	{pattern: "request body too large", msg: msgTooLarge},
	{pattern: "unknown export format", msg: UserMessage{
		Message: "Unknown export format",
		Action:  "Choose CSV or Excel",
		Code:    "ENC002",
	}},
	{pattern: "context deadline exceeded", msg: UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "REQ003",
	}},
	{pattern: "rate limit", msg: UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		unsupported *UnsupportedFormatError
		decodeErr   *DecodeError
		columnErr   *InvalidColumnError
		encodeErr   *EncodeError
	)
	switch {
	case errors.As(err, &unsupported):
		return msgUnsupportedFormat
	case errors.As(err, &decodeErr):
		if errors.Is(decodeErr, errEmptyFile) {
			return msgEmptyFile
		}
		if decodeErr.Format == FormatXLSX {
			return msgInvalidWorkbook
		}
		return msgInvalidCSV
	case errors.As(err, &columnErr):
		return msgInvalidColumn
	case errors.As(err, &encodeErr):
		return msgEncode
	case errors.Is(err, ErrSessionNotFound):
		return msgSessionExpired
	case errors.Is(err, ErrFileNotFound):
		return msgFileNotFound
	case errors.Is(err, ErrNoFile):
		return msgNoFile
	case errors.Is(err, ErrTooManyPasses):
		return msgBusy
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// FileErrorText is the inline message for an error local to one file.
// Unsupported formats name the offending extension, as users expect.
func FileErrorText(fileName string, err error) string {
	var unsupported *UnsupportedFormatError
	if errors.As(err, &unsupported) {
		ext := unsupported.Extension
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Sprintf("Unsupported file type: %s (%s)", ext, fileName)
	}
	return fmt.Sprintf("%s: %s", fileName, FormatUserError(err))
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
