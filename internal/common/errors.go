package common

import "errors"

// Sentinel errors shared between the transport, services and CLI layers.
// Callers should match them with errors.Is.
var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Transport-level errors.
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")

	// Ingestion pipeline errors.
	ErrFileTooLarge = errors.New("file exceeds upload size limit")
	ErrGroupCommit  = errors.New("group commit failed")
	ErrEmptyBatch   = errors.New("no items to upload")
)
