package domain

import "errors"

var (
	// ErrInvalidQuery is returned when aggregation parameters cannot be resolved.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUploadNotFound is returned for unknown or expired upload tokens.
	ErrUploadNotFound = errors.New("upload not found")
)
