package plan

import (
	"errors"
	"fmt"
)

// ParseErrorKind classifies response parsing errors.
type ParseErrorKind string

const (
	// ParseErrorKindNoArrayFound is used when the response has no `[...]` section.
	ParseErrorKindNoArrayFound ParseErrorKind = "no_array_found"
	// ParseErrorKindInvalidJSON is used when the array section is not valid JSON.
	ParseErrorKindInvalidJSON ParseErrorKind = "invalid_json"
	// ParseErrorKindSchemaViolation is used when an array element is not a valid task.
	ParseErrorKindSchemaViolation ParseErrorKind = "schema_violation"
)

// ParseError is the error returned when a completion response can't be parsed
// into tasks.
type ParseError struct {
	Kind ParseErrorKind
	// Index is the offending array element, only meaningful on schema violations.
	Index  int
	Detail string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ParseErrorKindNoArrayFound:
		return "no JSON array found in LLM response"
	case ParseErrorKindInvalidJSON:
		return fmt.Sprintf("failed to parse LLM response as JSON: %s", e.Detail)
	case ParseErrorKindSchemaViolation:
		return fmt.Sprintf("invalid task at index %d: %s", e.Index, e.Detail)
	default:
		return fmt.Sprintf("could not parse LLM response: %s", e.Detail)
	}
}

// AsParseError returns the parse error wrapped in err, if any.
func AsParseError(err error) (*ParseError, bool) {
	var pErr *ParseError
	if errors.As(err, &pErr) {
		return pErr, true
	}
	return nil, false
}
