package core

// error_messages.go maps technical errors to coded messages for the UI.
//
// Users quote the code to support staff. Codes are grouped by category:
//
//	LEAD001 - Lead not found                 Patterns: "lead not found"
//	LEAD002 - Lead already exists            Patterns: "lead already exists"
//	LEAD003 - Status change not allowed      Patterns: "invalid status transition"
//
//	VAL001  - Required field is empty        Patterns: "required field"
//	VAL002  - Invalid value for a list field Patterns: "invalid enum"
//	VAL003  - Invalid phone number           Patterns: "invalid phone"
//	VAL004  - Lead details are invalid       Patterns: "invalid lead"
//	VAL005  - Request body is malformed      Patterns: "invalid request body"
//
//	FILE001 - File too large                 Patterns: "file exceeds maximum size"
//	FILE002 - No file selected               Patterns: "no file provided"
//	FILE003 - File has no leads              Patterns: "no leads found"
//	FILE004 - Spreadsheet unreadable         Patterns: "open workbook"
//	FILE005 - Encoding error                 Patterns: "decode"
//
//	IMP001  - Too many imports running       Patterns: "too many concurrent imports"
//	IMP002  - Request cancelled              Patterns: "context canceled"
//	IMP003  - Request timed out              Patterns: "context deadline exceeded"
//
//	DB001   - Duplicate record               Patterns: "duplicate key"
//	DB002   - Storage unreachable            Patterns: "connection refused"
//	DB003   - Storage connection interrupted Patterns: "connection reset"
//	DB004   - Storage timed out              Patterns: "timeout"
//	DB005   - Conflicting storage operations Patterns: "deadlock"
//
//	RATE001 - Too many requests              Patterns: "rate limit"
//
//	ERR000  - Unknown error (fallback; check the logs for the technical error)
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Leads
	{"lead not found", UserMessage{"Lead not found", "Refresh the list; the lead may have been deleted", "LEAD001"}},
	{"lead already exists", UserMessage{"A lead with this ID already exists", "Use a different Lead ID or edit the existing lead", "LEAD002"}},
	{"invalid status transition", UserMessage{"This status change is not allowed", "Move the lead through the verification workflow in order", "LEAD003"}},

	// Validation
	{"required field", UserMessage{"Required field is empty", "Fill in the name, bank and any co-applicant details", "VAL001"}},
	{"invalid enum", UserMessage{"Value is not in the allowed list", "Check the allowed values for this field", "VAL002"}},
	{"invalid phone", UserMessage{"Invalid phone number", "Enter the number with its country code, e.g. +91 98765 43210", "VAL003"}},
	{"invalid lead", UserMessage{"Lead details are invalid", "Correct the highlighted fields and try again", "VAL004"}},
	{"invalid request body", UserMessage{"The request could not be read", "Send the lead as JSON", "VAL005"}},

	// Files
	{"file exceeds maximum size", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE001"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV or XLSX file to import", "FILE002"}},
	{"no leads found", UserMessage{"The file contains no leads", "Download the sample file and follow its layout", "FILE003"}},
	{"open workbook", UserMessage{"The spreadsheet could not be read", "Save the file as .xlsx or .csv and try again", "FILE004"}},
	{"decode", UserMessage{"File contains invalid characters", "Save the file as UTF-8 CSV", "FILE005"}},

	// Imports
	{"too many concurrent imports", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP001"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "IMP002"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try importing a smaller file", "IMP003"}},

	// Storage
	{"duplicate key", UserMessage{"A record with this ID already exists", "Review the file for duplicate Lead IDs", "DB001"}},
	{"connection refused", UserMessage{"Unable to connect to storage", "Please try again in a few moments", "DB002"}},
	{"connection reset", UserMessage{"Storage connection was interrupted", "Please try again", "DB003"}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB004"}},
	{"deadlock", UserMessage{"Storage was busy with conflicting operations", "Please try again", "DB005"}},

	// Throttling
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000; nil maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
