package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ScrapeRequest is the payload for POST /api/scrape.
type ScrapeRequest struct {
	// URL is the page to render. Required; absolute http(s) URL.
	URL string `json:"url"`

	// AccountID is the Cloudflare account the rendering call is billed to. Required.
	AccountID string `json:"accountId"`

	// APIToken authorizes the rendering call as a bearer token. Required.
	APIToken string `json:"apiToken"`
}

// Validate checks that all three fields are present and the URL is absolute.
// It never touches the network; credentials are only checked by the provider.
func (r *ScrapeRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" ||
		strings.TrimSpace(r.AccountID) == "" ||
		strings.TrimSpace(r.APIToken) == "" {
		return NewScrapeError(KindValidation, MsgMissingFields, nil)
	}
	if err := validate.Var(strings.TrimSpace(r.URL), "http_url"); err != nil {
		return NewScrapeError(KindValidation, MsgInvalidURL, err)
	}
	return nil
}

// Normalize trims surrounding whitespace from every field.
func (r *ScrapeRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
	r.AccountID = strings.TrimSpace(r.AccountID)
	r.APIToken = strings.TrimSpace(r.APIToken)
}

// Credentials returns the persistable part of the request.
func (r *ScrapeRequest) Credentials() StoredCredentials {
	return StoredCredentials{AccountID: r.AccountID, APIToken: r.APIToken}
}

// StoredCredentials are the two secrets remembered between sessions.
type StoredCredentials struct {
	AccountID string
	APIToken  string
}

// IsZero reports whether neither value is set.
func (c StoredCredentials) IsZero() bool {
	return c.AccountID == "" && c.APIToken == ""
}
