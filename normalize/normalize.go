// Package normalize maps the rendering provider's success and error payloads
// onto one models.ScrapeResult.
package normalize

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/use-agent/cfmarkdown/models"
	"github.com/use-agent/cfmarkdown/provider"
)

// envelope is the subset of the Cloudflare v4 response envelope we read.
// Fields are loosely typed because error bodies vary between API versions.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Error json.RawMessage `json:"error"`
}

// Normalize produces exactly one result for a provider round trip.
//
// Rules, in order:
//  1. err != nil                         → transport failure, 500.
//  2. 2xx with success=true and a result → Success(result).
//  3. 2xx otherwise                      → contract violation, 502.
//  4. non-2xx                            → provider failure with the upstream
//     status, the raw body as details and a message from errors[0].message,
//     then error, then (for 401) auth guidance, then a generic fallback.
//     A 401 message always carries the auth guidance.
func Normalize(resp *provider.Response, err error) models.ScrapeResult {
	if err != nil || resp == nil {
		return models.Failure(models.NewScrapeError(models.KindTransport, models.MsgInternal, err))
	}

	var env envelope
	decodeErr := json.Unmarshal(resp.Body, &env)

	if resp.IsSuccess() {
		if decodeErr == nil && env.Success {
			if content, ok := stringResult(env.Result); ok {
				return models.Success(content)
			}
		}
		failure := models.NewScrapeError(models.KindContract, models.MsgUnexpectedShape, decodeErr)
		failure.Details = resp.Body
		return models.Failure(failure)
	}

	failure := &models.ScrapeError{
		Kind:    models.KindProvider,
		Status:  resp.Status,
		Message: providerMessage(env, resp.Status),
		Details: resp.Body,
	}
	return models.Failure(failure)
}

// stringResult accepts only a non-empty JSON string.
func stringResult(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

func providerMessage(env envelope, status int) string {
	msg := firstErrorMessage(env)

	if status == http.StatusUnauthorized {
		if msg == "" {
			return models.MsgAuthGuidance
		}
		return strings.TrimRight(msg, ". ") + ". " + models.MsgAuthGuidance
	}
	if msg == "" {
		return models.MsgScrapeFailed
	}
	return msg
}

func firstErrorMessage(env envelope) string {
	if len(env.Errors) > 0 {
		if m := strings.TrimSpace(env.Errors[0].Message); m != "" {
			return m
		}
	}

	if len(env.Error) > 0 {
		// "error" is usually a string, occasionally {"message": "..."}.
		var s string
		if err := json.Unmarshal(env.Error, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Error, &obj); err == nil {
			return strings.TrimSpace(obj.Message)
		}
	}
	return ""
}
