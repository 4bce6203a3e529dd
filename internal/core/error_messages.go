package core

// error_messages.go maps conversion errors to user-facing messages with a
// code that can be quoted in a support request.
//
// # Error Codes Reference
//
// # CSV Errors (CSV001-CSV099)
//
//	CSV001 - No header: The file has no header row
//	         Action: Add a header row naming each column
//	CSV002 - Invalid CSV: The file could not be parsed
//	         Action: Save the file as comma-separated UTF-8 text
//	CSV003 - File too large: The upload exceeds the size limit
//	         Action: Split the file into smaller files
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Nothing mapped: Every column is set to Skip
//	         Action: Assign at least one column to a contact field
//	MAP002 - Column not found: The mapping names a column the file lacks
//	         Action: Check the mapping against the file's headers
//	MAP003 - Invalid mapping: The mapping could not be read
//	         Action: Use field names from the fields list
//
// # Photo Errors (PHOTO001-PHOTO099)
//
// Photo errors never abort a conversion; they only appear in logs and in the
// per-record error list.
//
//	PHOTO001 - Photo server refused: The photo URL returned an error status
//	PHOTO002 - Photo timeout: The photo server did not answer in time
//	PHOTO003 - Photo unavailable: The photo could not be downloaded
//
// # Write Errors (WRITE001-WRITE099)
//
//	WRITE001 - Destination unusable: The output folder is missing or not a folder
//	WRITE002 - Destination busy: Another export is writing to the same folder
//	WRITE003 - Write failed: A contact file could not be written
//
// # Conversion Errors (CONV001-CONV099)
//
//	CONV001 - No data: The file has headers but no contacts
//	CONV002 - System busy: Too many conversions in progress
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - No file: No file was attached
//	UPL002 - Request cancelled
//	UPL003 - Request timeout
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// # Matching
//
// Typed errors and sentinels are matched first with errors.As and errors.Is.
// Anything else falls back to case-insensitive substring patterns; the first
// match wins, so specific patterns come before general ones.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

var (
	msgNoHeader = UserMessage{
		Message: "The file has no header row",
		Action:  "Add a header row naming each column",
		Code:    "CSV001",
	}
	msgInvalidCSV = UserMessage{
		Message: "The file is not a valid CSV",
		Action:  "Save the file as comma-separated UTF-8 text",
		Code:    "CSV002",
	}
	msgTooLarge = UserMessage{
		Message: "The file exceeds the size limit",
		Action:  "Split the file into smaller files",
		Code:    "CSV003",
	}
	msgNothingMapped = UserMessage{
		Message: "No column is assigned to a contact field",
		Action:  "Assign at least one column to a contact field",
		Code:    "MAP001",
	}
	msgColumnNotFound = UserMessage{
		Message: "The mapping names a column the file does not have",
		Action:  "Check the mapping against the file's headers",
		Code:    "MAP002",
	}
	msgInvalidMapping = UserMessage{
		Message: "The column mapping is invalid",
		Action:  "Use field names from the fields list",
		Code:    "MAP003",
	}
	msgPhotoStatus = UserMessage{
		Message: "The photo server returned an error",
		Action:  "Check the photo URL",
		Code:    "PHOTO001",
	}
	msgPhotoTimeout = UserMessage{
		Message: "The photo server did not answer in time",
		Action:  "Check the photo URL or try again later",
		Code:    "PHOTO002",
	}
	msgPhotoFailed = UserMessage{
		Message: "The photo could not be downloaded",
		Action:  "Check the photo URL",
		Code:    "PHOTO003",
	}
	msgDestBusy = UserMessage{
		Message: "Another export is writing to this folder",
		Action:  "Wait for the other export to finish",
		Code:    "WRITE002",
	}
	msgDestination = UserMessage{
		Message: "The output folder cannot be used",
		Action:  "Choose an existing folder you can write to",
		Code:    "WRITE001",
	}
	msgWriteFailed = UserMessage{
		Message: "A contact file could not be written",
		Action:  "Check free disk space and folder permissions",
		Code:    "WRITE003",
	}
	msgNoRecords = UserMessage{
		Message: "The file has no contacts",
		Action:  "Add at least one data row below the header",
		Code:    "CONV001",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other conversions",
		Action:  "Please wait a moment and try again",
		Code:    "CONV002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL002",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL003",
	}
)

// errorMatcher recognises a typed error or sentinel.
type errorMatcher struct {
	match func(error) bool
	msg   UserMessage
}

func isType[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func isErr(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// errorMatchers run before the substring patterns. Order matters: sentinels
// wrapped by typed errors are listed before the type itself.
var errorMatchers = []errorMatcher{
	{isErr(ErrNoHeader), msgNoHeader},
	{isType[*FormatError], msgInvalidCSV},
	{isErr(ErrNothingMapped), msgNothingMapped},
	{isErr(ErrNoRecords), msgNoRecords},
	{isErr(ErrTooManyConversions), msgBusy},
	{func(err error) bool {
		var fe *FetchError
		return errors.As(err, &fe) && fe.Status != 0
	}, msgPhotoStatus},
	{func(err error) bool {
		return isType[*FetchError](err) && errors.Is(err, context.DeadlineExceeded)
	}, msgPhotoTimeout},
	{isType[*FetchError], msgPhotoFailed},
	{isType[*WriteError], msgWriteFailed},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps error text (case-insensitive) to user messages for
// errors that carry no type, such as ones from net/http or multipart.
var errorPatterns = []errorPattern{
	{"column not found", msgColumnNotFound},
	{"another export is writing", msgDestBusy},
	{"export destination unusable", msgDestination},
	{"mapping error", msgInvalidMapping},
	{"invalid export mode", UserMessage{
		Message: "Unknown export mode",
		Action:  "Use per-contact or combined",
		Code:    "MAP003",
	}},
	{"file too large", msgTooLarge},
	{"request body too large", msgTooLarge},
	{"no file provided", UserMessage{
		Message: "No file was attached",
		Action:  "Please attach a CSV file",
		Code:    "UPL001",
	}},
	{"context canceled", msgCancelled},
	{"context deadline exceeded", msgTimeout},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. Typed errors are
// recognised first; otherwise the first matching text pattern wins. If
// nothing matches, ERR000 is returned.
//
// Example:
//
//	msg := MapError(&MappingError{Err: ErrNothingMapped})
//	// msg.Code == "MAP001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, m := range errorMatchers {
		if m.match(err) {
			return m.msg
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
