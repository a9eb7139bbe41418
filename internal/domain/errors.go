package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrModelNotAllowed indicates the requested model is not in the allow list
	ErrModelNotAllowed = errors.New("model not allowed")
	// ErrPromptNotFound indicates a promptName that has no stored prompt
	ErrPromptNotFound = errors.New("prompt not found")
	// ErrUnsupportedFileType indicates a file extension the loader cannot read
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrProviderStatus indicates a non-success response from an LLM provider
	ErrProviderStatus = errors.New("provider returned non-success status")
	// ErrNoResponseBody indicates a provider response without a body
	ErrNoResponseBody = errors.New("provider returned no response body")
)
