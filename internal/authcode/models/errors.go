package models

import (
	"fmt"
	"net/url"
)

// ErrorType is an OAuth 2.0 error code as sent in the "error" parameter.
type ErrorType string

const (
	ErrInvalidClient           ErrorType = "invalid_client"
	ErrInvalidRequest          ErrorType = "invalid_request"
	ErrUnsupportedResponseType ErrorType = "unsupported_response_type"
	ErrAccessDenied            ErrorType = "access_denied"
	ErrInvalidTicket           ErrorType = "invalid_ticket"
)

// RequestError is the uniform protocol error payload. It serializes as a JSON
// body and as redirect query parameters.
type RequestError struct {
	Code        ErrorType `json:"error"`
	Description string    `json:"error_description"`
}

// NewRequestError builds a RequestError.
func NewRequestError(code ErrorType, description string) *RequestError {
	return &RequestError{Code: code, Description: description}
}

func (e *RequestError) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Query encodes the error into redirect parameters, echoing state when set.
func (e *RequestError) Query(state string) url.Values {
	q := url.Values{}
	q.Set("error", string(e.Code))
	if e.Description != "" {
		q.Set("error_description", e.Description)
	}
	if state != "" {
		q.Set("state", state)
	}
	return q
}

// ConsentError is a failed consent step. RedirectURI is the client's
// registered URI when the ticket could be resolved, empty otherwise.
type ConsentError struct {
	Err         RequestError
	RedirectURI string
	State       string
}

func (e *ConsentError) Error() string {
	return "consent: " + e.Err.Error()
}

func (e *ConsentError) Unwrap() error {
	return &e.Err
}
