package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/use-agent/cfmarkdown/models"
)

// Messages shown to the user by the client.
const (
	MsgFillAllFields    = "Please fill in all fields."
	MsgRequestFailed    = "Failed to scrape the URL"
	MsgTransportFailure = "An error occurred while scraping."
)

// Scraper performs one extraction round trip.
type Scraper interface {
	Scrape(ctx context.Context, req *models.ScrapeRequest) (string, error)
}

// MediatorClient calls the mediator's POST /api/scrape endpoint.
type MediatorClient struct {
	http *resty.Client
}

// MediatorOption customises a MediatorClient.
type MediatorOption func(*resty.Client)

// WithAccessKey sends the mediator's own access key as X-API-Key.
func WithAccessKey(key string) MediatorOption {
	return func(c *resty.Client) {
		if key != "" {
			c.SetHeader("X-API-Key", key)
		}
	}
}

// NewMediatorClient creates a client for the mediator at serverURL.
func NewMediatorClient(serverURL string, timeout time.Duration, opts ...MediatorOption) *MediatorClient {
	hc := resty.New().
		SetBaseURL(strings.TrimRight(serverURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(hc)
	}
	return &MediatorClient{http: hc}
}

// Scrape returns the Markdown for req or an error whose message is ready to
// show to the user. Errors are always *models.ScrapeError.
func (m *MediatorClient) Scrape(ctx context.Context, req *models.ScrapeRequest) (string, error) {
	resp, err := m.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/scrape")
	if err != nil {
		return "", models.NewScrapeError(models.KindTransport, MsgTransportFailure, err)
	}

	var body models.ScrapeResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", models.NewScrapeError(models.KindTransport, MsgTransportFailure, err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		msg := body.Error
		if msg == "" {
			msg = MsgRequestFailed
		}
		return "", &models.ScrapeError{
			Kind:    kindForStatus(resp.StatusCode()),
			Status:  resp.StatusCode(),
			Message: msg,
			Details: body.Details,
		}
	}

	if !body.Success || body.Result == "" {
		return "", models.NewScrapeError(models.KindContract, models.MsgUnexpectedShape, nil)
	}
	return body.Result, nil
}

func kindForStatus(status int) models.ErrorKind {
	switch status {
	case http.StatusBadRequest:
		return models.KindValidation
	case http.StatusInternalServerError:
		return models.KindTransport
	case http.StatusBadGateway:
		return models.KindContract
	default:
		return models.KindProvider
	}
}
