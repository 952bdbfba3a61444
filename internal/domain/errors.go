package domain

import "errors"

var (
	// ErrNotFound signals a missing or unpublished resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a malformed client request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamUnavailable signals that a collaborator could not answer in time
	// (timeout, open circuit, connection failure).
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyText signals an attempt to embed blank text.
	ErrEmptyText = errors.New("empty text")
)
