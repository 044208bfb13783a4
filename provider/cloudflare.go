package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/use-agent/cfmarkdown/config"
	"github.com/use-agent/cfmarkdown/models"
)

// Response is the provider's raw answer: HTTP status plus the JSON body as received.
type Response struct {
	Status int
	Body   json.RawMessage
}

// Client forwards scrape requests to Cloudflare's Browser Rendering markdown endpoint.
// One Client is shared by all requests; credentials travel per call.
type Client struct {
	http *resty.Client
}

// markdownRequest is the provider's request body. The target URL is its only field.
type markdownRequest struct {
	URL string `json:"url"`
}

// NewClient creates a Client for the configured API root.
func NewClient(cfg config.ProviderConfig) *Client {
	hc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		hc.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &Client{http: hc}
}

// Markdown issues one awaited POST to /accounts/{accountId}/browser-rendering/markdown.
//
// Any HTTP response with a JSON body is returned as-is, whatever its status;
// interpreting it is the normalizer's job. Network failures and non-JSON
// bodies come back as a KindTransport *models.ScrapeError.
func (c *Client) Markdown(ctx context.Context, req *models.ScrapeRequest) (*Response, error) {
	path := fmt.Sprintf("/accounts/%s/browser-rendering/markdown", url.PathEscape(req.AccountID))

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(req.APIToken).
		SetHeader("Content-Type", "application/json").
		SetBody(markdownRequest{URL: req.URL}).
		Post(path)
	elapsed := time.Since(start)

	if err != nil {
		slog.Debug("provider: request failed",
			"account_id", req.AccountID,
			"token", MaskToken(req.APIToken),
			"elapsed", elapsed,
			"error", err,
		)
		return nil, models.NewScrapeError(models.KindTransport, "provider request failed", err)
	}

	body := resp.Body()
	slog.Debug("provider: response received",
		"account_id", req.AccountID,
		"token", MaskToken(req.APIToken),
		"status", resp.StatusCode(),
		"bytes", len(body),
		"elapsed", elapsed,
	)

	if !json.Valid(body) {
		return nil, models.NewScrapeError(models.KindTransport,
			fmt.Sprintf("provider returned non-JSON body (status %d)", resp.StatusCode()), nil)
	}

	return &Response{Status: resp.StatusCode(), Body: json.RawMessage(body)}, nil
}

// IsSuccess reports whether the status is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}

// MaskToken keeps the first four runes of a secret for log correlation and
// replaces the rest with "****". Tokens of four runes or fewer are fully masked.
func MaskToken(token string) string {
	runes := []rune(token)
	if len(runes) <= 4 {
		return "****"
	}
	return string(runes[:4]) + "****"
}
