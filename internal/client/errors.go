package client

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the decoded server error envelope plus the HTTP status.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "api error"
	}
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

type NotFoundError struct{ *APIError }

type ValidationError struct{ *APIError }

type AuthError struct{ *APIError }

type ConflictError struct{ *APIError }

type UnknownError struct{ *APIError }

func (e *NotFoundError) Unwrap() error   { return e.APIError }
func (e *ValidationError) Unwrap() error { return e.APIError }
func (e *AuthError) Unwrap() error       { return e.APIError }
func (e *ConflictError) Unwrap() error   { return e.APIError }
func (e *UnknownError) Unwrap() error    { return e.APIError }

// classify maps a non-2xx response onto the error taxonomy.
func classify(apiErr *APIError) error {
	switch s := apiErr.StatusCode; {
	case s == http.StatusNotFound:
		return &NotFoundError{apiErr}
	case s == http.StatusBadRequest, s == http.StatusUnprocessableEntity, s == http.StatusRequestEntityTooLarge:
		return &ValidationError{apiErr}
	case s == http.StatusUnauthorized, s == http.StatusForbidden:
		return &AuthError{apiErr}
	case s == http.StatusConflict:
		return &ConflictError{apiErr}
	default:
		return &UnknownError{apiErr}
	}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var target *APIError
	if errors.As(err, &target) {
		return target.StatusCode
	}
	return 0
}
