package llm

import (
	"context"
	"errors"
	"fmt"
)

// DefaultSystemInstruction is used when a request doesn't set a system instruction.
const DefaultSystemInstruction = "You are a helpful assistant."

// Request is a completion request.
type Request struct {
	Prompt string
	// SystemInstruction is optional, DefaultSystemInstruction is used when empty.
	SystemInstruction string
	MaxOutputTokens   int
}

// Generator knows how to generate text from a remote model.
type Generator interface {
	// Generate returns the visible text generated for the request. Errors are
	// returned as *CompletionError.
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrorKind classifies completion errors.
type ErrorKind string

const (
	// ErrorKindEmptyResponse is used when the model returned no visible text.
	ErrorKindEmptyResponse ErrorKind = "empty_response"
	// ErrorKindUpstreamFailure is used when the remote call failed (network, auth, rate limit...).
	ErrorKindUpstreamFailure ErrorKind = "upstream_failure"
)

// CompletionError is the error returned by generators.
type CompletionError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *CompletionError) Error() string {
	switch e.Kind {
	case ErrorKindEmptyResponse:
		return "empty response from completion service"
	default:
		return fmt.Sprintf("completion service error: %s", e.Detail)
	}
}

func (e *CompletionError) Unwrap() error { return e.Err }

// NewEmptyResponseError returns an empty response completion error.
func NewEmptyResponseError() error {
	return &CompletionError{Kind: ErrorKindEmptyResponse}
}

// NewUpstreamError returns an upstream failure completion error.
func NewUpstreamError(err error) error {
	return &CompletionError{Kind: ErrorKindUpstreamFailure, Detail: err.Error(), Err: err}
}

// IsEmptyResponse returns true if the error is an empty response completion error.
func IsEmptyResponse(err error) bool {
	var cErr *CompletionError
	return errors.As(err, &cErr) && cErr.Kind == ErrorKindEmptyResponse
}

// IsUpstreamFailure returns true if the error is an upstream failure completion error.
func IsUpstreamFailure(err error) bool {
	var cErr *CompletionError
	return errors.As(err, &cErr) && cErr.Kind == ErrorKindUpstreamFailure
}
