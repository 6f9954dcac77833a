package parser

import (
	"errors"
	"fmt"

	"bold-client-go/internal/model"
)

var (
	// ErrEmptyResponse matches *EmptyResponseError
	ErrEmptyResponse = errors.New("empty response")
	// ErrMalformedPayload matches *MalformedPayloadError
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrNoResults matches *NoResultsError
	ErrNoResults = errors.New("no results")
)

// EmptyResponseError is returned when a text payload is empty or whitespace.
type EmptyResponseError struct {
	Mode model.QueryMode
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("BOLD returned an empty %s response", e.Mode)
}

func (e *EmptyResponseError) Is(target error) bool { return target == ErrEmptyResponse }

// MalformedPayloadError is returned by ExtractXML when the payload is not
// well-formed XML. The dispatcher recovers from it with the text fallback.
//
// The underlying decoder error (if any) can be accessed via errors.Unwrap.
type MalformedPayloadError struct {
	Reason string
	cause  error
}

func (e *MalformedPayloadError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("malformed XML payload: %s: %v", e.Reason, e.cause)
	}
	return "malformed XML payload: " + e.Reason
}

func (e *MalformedPayloadError) Unwrap() error { return e.cause }

func (e *MalformedPayloadError) Is(target error) bool { return target == ErrMalformedPayload }

// NoResultsError is returned when a JSON payload holds no interpretable items.
//
// The underlying decoder error (if any) can be accessed via errors.Unwrap.
type NoResultsError struct {
	Reason string
	cause  error
}

func (e *NoResultsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("no items found when parsing JSON: %s: %v", e.Reason, e.cause)
	}
	return "no items found when parsing JSON: " + e.Reason
}

func (e *NoResultsError) Unwrap() error { return e.cause }

func (e *NoResultsError) Is(target error) bool { return target == ErrNoResults }
