package models

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorKind classifies where in the mediation path a failure originated.
type ErrorKind string

const (
	// KindValidation is a missing or malformed request field. Never reaches the provider.
	KindValidation ErrorKind = "VALIDATION_ERROR"

	// KindTransport is a network or body-parse failure talking to the provider.
	KindTransport ErrorKind = "TRANSPORT_ERROR"

	// KindProvider is a non-success status reported by the provider.
	KindProvider ErrorKind = "PROVIDER_ERROR"

	// KindContract is a success status whose body lacks the expected shape.
	KindContract ErrorKind = "CONTRACT_VIOLATION"
)

// User-facing messages shared by the mediator and its clients.
const (
	MsgMissingFields   = "Missing required fields: url, accountId, apiToken"
	MsgInvalidURL      = "Invalid url: must be an absolute http or https URL"
	MsgInvalidBody     = "Invalid JSON body"
	MsgInternal        = "Internal server error during scraping"
	MsgUnexpectedShape = "Unexpected response format from Cloudflare API"
	MsgScrapeFailed    = "Failed to scrape URL"

	// MsgAuthGuidance replaces (or extends) the provider's terse 401 body.
	MsgAuthGuidance = "Authentication error: Invalid API Token or missing permissions. " +
		"Use an account API token (not the Global API Key) that grants the " +
		"\"Account > Browser Rendering > Edit\" permission for this account."
)

// ScrapeError is the internal error type carrying a kind and HTTP status.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Kind    ErrorKind
	Status  int
	Message string

	// Details is the untouched provider payload, when one was received.
	Details json.RawMessage

	Err error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError with the default status for its kind.
func NewScrapeError(kind ErrorKind, message string, err error) *ScrapeError {
	return &ScrapeError{Kind: kind, Status: defaultStatus(kind), Message: message, Err: err}
}

// ToResponse converts an internal error to the API-facing error body.
func (e *ScrapeError) ToResponse() ScrapeResponse {
	return ScrapeResponse{Error: e.Message, Details: e.Details}
}

// defaultStatus translates kinds to HTTP status codes. Provider errors
// normally carry the upstream status instead.
func defaultStatus(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest // 400
	case KindContract:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}
