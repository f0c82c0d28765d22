package service

import "errors"

var (
	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrUnsupportedFormat is returned for MIME types the extractor cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtraction is returned when a supported document cannot be read.
	ErrExtraction = errors.New("text extraction failed")

	// ErrIndexNotFound is returned when a vector index absent from the backend
	// is queried. Retrieval and deletion treat it as "no results", not a failure.
	ErrIndexNotFound = errors.New("vector index not found")
)
