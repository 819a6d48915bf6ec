package core

// error_messages.go maps errors to user-facing messages with codes for
// support reference. When users hit an error they can quote the code.
//
// # Error Codes Reference
//
// Format and parse errors:
//
//	FMT001   - Unsupported file type (only .csv and .xlsx are accepted)
//	PARSE001 - File is not a valid CSV (malformed quoting, ragged rows)
//	PARSE002 - File is not a valid spreadsheet (corrupt or encrypted)
//	PARSE003 - Encoding error (not UTF-8 and no UTF-16 byte order mark)
//	PARSE004 - Empty file (no header row)
//
// Export errors:
//
//	SER001 - Unsupported conversion target
//	SER002 - Value cannot be written in the target format
//
// Cleaning errors:
//
//	COL001 - Column not found
//	CLN001 - Cleaning is not enabled for the file
//
// Session errors:
//
//	SES001 - Session expired or unknown
//	SES002 - File not found in the session
//	SES003 - Session holds too many files
//
// File and upload errors:
//
//	FILE001 - File too large
//	FILE004 - No file selected
//	UPL002  - System busy
//	UPL004  - Request cancelled
//	UPL005  - Request timed out
//
// Request errors:
//
//	REQ001  - Invalid request
//	RATE001 - Rate limited
//
// Fallback:
//
//	ERR000 - Unexpected error; check the logs for the technical error.
//
// # Matching
//
// Known error values and types are matched first with errors.Is and
// errors.As, so wrapping keeps the mapping. Errors from other packages are
// then matched case-insensitively by substring; the first pattern wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sweeper/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgUnsupportedFormat = UserMessage{
		Message: "This file type is not supported",
		Action:  "Upload a .csv or .xlsx file",
		Code:    "FMT001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Check that quotes are balanced and no row has more fields than the header",
		Code:    "PARSE001",
	}
	msgInvalidSpreadsheet = UserMessage{
		Message: "File is not a valid spreadsheet",
		Action:  "Re-save the workbook as .xlsx without a password and try again",
		Code:    "PARSE002",
	}
	msgEncoding = UserMessage{
		Message: "File contains invalid characters",
		Action:  "Save the file as UTF-8",
		Code:    "PARSE003",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a file with a header row",
		Code:    "PARSE004",
	}
	msgUnsupportedTarget = UserMessage{
		Message: "This conversion target is not supported",
		Action:  "Choose CSV or Excel",
		Code:    "SER001",
	}
	msgNotRepresentable = UserMessage{
		Message: "The data cannot be written in the chosen format",
		Action:  "Try the other format or remove the offending values",
		Code:    "SER002",
	}
	msgUnknownColumn = UserMessage{
		Message: "Column not found",
		Action:  "Choose columns from the file's header",
		Code:    "COL001",
	}
	msgCleaningDisabled = UserMessage{
		Message: "Cleaning is not enabled for this file",
		Action:  "Turn on \"Clean data\" for the file first",
		Code:    "CLN001",
	}
	msgSessionNotFound = UserMessage{
		Message: "Your session has expired",
		Action:  "Upload your files again",
		Code:    "SES001",
	}
	msgFileNotFound = UserMessage{
		Message: "File not found",
		Action:  "The file may have been removed. Upload it again",
		Code:    "SES002",
	}
	msgTooManyFiles = UserMessage{
		Message: "Too many files in this session",
		Action:  "Remove a file before uploading another",
		Code:    "SES003",
	}
	msgFileTooLarge = UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV or Excel file to upload",
		Code:    "FILE004",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other files",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL005",
	}
	msgInvalidRequest = UserMessage{
		Message: "The request is invalid",
		Action:  "Check the submitted fields and try again",
		Code:    "REQ001",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// sentinels maps error values to messages, matched with errors.Is.
var sentinels = []struct {
	err error
	msg UserMessage
}{
	{table.ErrUnsupportedFormat, msgUnsupportedFormat},
	{table.ErrUnknownColumn, msgUnknownColumn},
	{ErrCleaningDisabled, msgCleaningDisabled},
	{ErrSessionNotFound, msgSessionNotFound},
	{ErrFileNotFound, msgFileNotFound},
	{ErrTooManyFiles, msgTooManyFiles},
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrNoFiles, msgNoFile},
	{ErrTooManyUploads, msgBusy},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to messages
// for errors that carry no typed value, such as those from net/http.
var errorPatterns = []errorPattern{
	{"request body too large", msgFileTooLarge},
	{"file too large", msgFileTooLarge},
	{"no such file", msgNoFile},
	{"no file provided", msgNoFile},
	{"unsupported file type", msgUnsupportedFormat},
	{"encoding error", msgEncoding},
	{"empty file", msgEmptyFile},
	{"invalid csv", msgInvalidCSV},
	{"invalid spreadsheet", msgInvalidSpreadsheet},
	{"column not found", msgUnknownColumn},
	{"session not found", msgSessionNotFound},
	{"file not found", msgFileNotFound},
	{"too many uploads", msgBusy},
	{"context canceled", msgCancelled},
	{"context deadline exceeded", msgTimeout},
	{"invalid request", msgInvalidRequest},
	{"rate limit", msgRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	_, err := table.Load(data, table.FormatCSV)
//	msg := MapError(err)
//	// msg.Code == "PARSE001" for malformed quoting
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pe *table.ParseError
	if errors.As(err, &pe) {
		switch {
		case errors.Is(pe, table.ErrEncoding):
			return msgEncoding
		case errors.Is(pe, table.ErrEmptyFile):
			return msgEmptyFile
		case pe.Format == table.FormatXLSX:
			return msgInvalidSpreadsheet
		default:
			return msgInvalidCSV
		}
	}

	var se *table.SerializationError
	if errors.As(err, &se) {
		if errors.Is(se, table.ErrUnsupportedTarget) {
			return msgUnsupportedTarget
		}
		return msgNotRepresentable
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.msg
		}
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err and wraps it. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
