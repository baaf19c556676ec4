package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier means the contact string holds no usable digits.
	ErrInvalidIdentifier = errors.New("whatsapp number must contain at least one digit")

	// ErrEmptyMessage means an outbound message had no text.
	ErrEmptyMessage = errors.New("message cannot be empty")

	// ErrMissingCredentials means GREEN_API_INSTANCE_ID or GREEN_API_API_TOKEN
	// is not configured. Surfaced at send time, not at startup.
	ErrMissingCredentials = errors.New("missing Green API credentials: set GREEN_API_INSTANCE_ID and GREEN_API_API_TOKEN")

	// ErrGatewayUnavailable means the gateway could not be reached at all.
	ErrGatewayUnavailable = errors.New("whatsapp gateway unavailable")
)

// GatewayHTTPError is a non-2xx answer from the gateway's send endpoint.
type GatewayHTTPError struct {
	StatusCode int
	Body       string
}

func (e *GatewayHTTPError) Error() string {
	return fmt.Sprintf("gateway returned HTTP %d: %s", e.StatusCode, e.Body)
}
