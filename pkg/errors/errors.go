package errors

import (
	"fmt"
	"strings"
)

// ErrorType classifies failures in the export pipeline
type ErrorType string

const (
	ErrorTypeNetwork   ErrorType = "network"
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeTimeout   ErrorType = "timeout"
	ErrorTypeRemoteAPI ErrorType = "remote_api"
	ErrorTypeMalformed ErrorType = "malformed_response"
	ErrorTypeDownload  ErrorType = "download"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error represents a transport-level API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// IsRetryable reports whether failures of this type are worth retrying.
// Auth and shape failures need user action or a code change; retrying
// them only delays the report.
func IsRetryable(t ErrorType) bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// MissingAuthError is returned when an export is attempted before the
// required credentials and route id have been captured.
type MissingAuthError struct {
	Missing []string
}

func (e *MissingAuthError) Error() string {
	return fmt.Sprintf("missing authentication data (%s): log into X and open the bookmarks page, then try again",
		strings.Join(e.Missing, ", "))
}

// TimeoutError is returned when the session gate exhausts its attempt
// budget. Missing names the fields that never showed up, so the user can
// tell "not logged in" apart from "bookmarks page never visited".
type TimeoutError struct {
	Attempts int
	Missing  []string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %d attempts waiting for session data, missing: %s",
		e.Attempts, strings.Join(e.Missing, ", "))
}

// RemoteAPIError is returned on a non-success HTTP status from the
// Bookmarks endpoint. The whole export fails; no partial file is written.
type RemoteAPIError struct {
	Status int
	Body   string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("bookmarks API request failed with status %d: %s", e.Status, e.Body)
}

// MalformedResponseError signals that the response body did not match the
// expected timeline shape, which usually means the API drifted.
type MalformedResponseError struct {
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("unexpected bookmarks API response format: %s", e.Detail)
}

// DownloadError is returned when the artifact write is interrupted.
type DownloadError struct {
	Reason string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed: %s", e.Reason)
}
