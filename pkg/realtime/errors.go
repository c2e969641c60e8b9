package realtime

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the realtime package.
var (
	// ErrMissingAPIKey indicates no credential was provided for the provider.
	ErrMissingAPIKey = errors.New("realtime: API key is required")

	// ErrNotConnected indicates the connection is not in the Connected state.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrAlreadyConnected indicates Connect was called on a live connection.
	ErrAlreadyConnected = errors.New("realtime: already connected")

	// ErrSessionNotReady indicates the session handshake has not completed.
	ErrSessionNotReady = errors.New("realtime: session not configured")

	// ErrUpdateUnsupported indicates the provider cannot reconfigure a live
	// session (Google Live requires a reconnect).
	ErrUpdateUnsupported = errors.New("realtime: provider does not support session update")
)

// APIError is a server-reported error event.
type APIError struct {
	// Code is the provider error code, empty if the provider sent none.
	Code string

	// Message is the human-readable error text.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime: server error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("realtime: server error: %s", e.Message)
}

// benign error codes: expected outcomes of interrupt races. Cancelling a
// response that already finished, or truncating past the end of an item,
// both fail server-side with errors the user should never see.
var benignErrorCodes = map[string]bool{
	"response_cancel_not_active": true,
	"item_truncate_invalid":      true,
	"decimal_below_min_value":    true,
}

var benignErrorFragments = []string{
	"no active response",
	"already shorter than",
	"Cancellation failed",
	"already completed",
}

// isBenignError reports whether a server error is an expected interrupt race
// that should be logged at debug level and suppressed.
func isBenignError(code, message string) bool {
	if benignErrorCodes[code] {
		return true
	}
	for _, frag := range benignErrorFragments {
		if strings.Contains(message, frag) {
			return true
		}
	}
	return false
}
