package main

import (
	"fmt"
	"strings"
)

// FetchError reports a failure retrieving the dataset. Nothing has been written
// when it is returned.
type FetchError struct {
	URL        string
	StatusCode int   // HTTP status when the server answered with a non-2xx code
	Err        error // Transport or read failure, nil for status errors
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected HTTP status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports malformed tabular data. Line is 1-based and counts the
// header row when there is one; 0 means the error is not tied to a line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse dataset: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse dataset: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UploadError reports the batch that stopped an upload. Batches before it were
// applied and are not rolled back; batches after it were never submitted.
type UploadError struct {
	Target  string // "d1" or "mirror"
	Batch   int    // 1-based index of the failing batch
	Batches int    // total number of batches in the run
	First   int    // 1-based index of the first statement in the batch
	Last    int    // 1-based index of the last statement in the batch
	Snippet string // bounded prefix of the failing payload
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload to %s failed at batch %d/%d (statements %d-%d): %v; sql: %q",
		e.Target, e.Batch, e.Batches, e.First, e.Last, e.Err, e.Snippet)
}

func (e *UploadError) Unwrap() error { return e.Err }

// APIMessage is one entry of the D1 response "errors" or "messages" arrays.
type APIMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIError is returned when the D1 endpoint answers with success=false.
type APIError struct {
	StatusCode int
	Errors     []APIMessage
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("d1 query failed (HTTP %d)", e.StatusCode)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, m := range e.Errors {
		parts = append(parts, fmt.Sprintf("%d: %s", m.Code, m.Message))
	}
	return fmt.Sprintf("d1 query failed (HTTP %d): %s", e.StatusCode, strings.Join(parts, "; "))
}
