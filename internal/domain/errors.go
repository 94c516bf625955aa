package domain

import (
	"errors"
	"net/http"
)

// Error taxonomy shared by services and adapters. Services wrap one of these
// with fmt.Errorf("%w: ...") and adapters map them onto status codes.
var (
	// ErrValidation indicates malformed or missing required input.
	ErrValidation = errors.New("validation failed")

	// ErrAuthentication indicates a signature, state or session mismatch.
	ErrAuthentication = errors.New("authentication failed")

	// ErrUpstream indicates a third-party call failed or returned an unexpected shape.
	ErrUpstream = errors.New("upstream request failed")

	// ErrPersistence indicates the credential store rejected a read or write.
	ErrPersistence = errors.New("persistence failed")

	// ErrConfiguration indicates a required secret or URL is absent.
	ErrConfiguration = errors.New("configuration missing")

	// ErrNotConfigured marks an optional integration that is switched off.
	// Callers skip it with a warning instead of failing.
	ErrNotConfigured = errors.New("integration not configured")
)

// StatusCode maps an error onto the coarse HTTP status of the taxonomy
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a response body for err that never carries upstream
// payloads or secret material
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrAuthentication):
		return err.Error()
	case errors.Is(err, ErrUpstream):
		return "Token exchange failed"
	case errors.Is(err, ErrPersistence):
		return "Could not save installation"
	case errors.Is(err, ErrConfiguration):
		return "Service is not configured"
	default:
		return "Internal server error"
	}
}
