package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cfmarkdown/api/middleware"
	"github.com/use-agent/cfmarkdown/metrics"
	"github.com/use-agent/cfmarkdown/models"
	"github.com/use-agent/cfmarkdown/normalize"
	"github.com/use-agent/cfmarkdown/provider"
)

// Forwarder issues the outbound rendering call. *provider.Client implements it.
type Forwarder interface {
	Markdown(ctx context.Context, req *models.ScrapeRequest) (*provider.Response, error)
}

// Scrape returns a handler for POST /api/scrape.
//
// Orchestration flow:
//  1. Parse & validate request; 400 without touching the provider.
//  2. Forwarder.Markdown → raw status + JSON body.
//  3. normalize.Normalize → one ScrapeResult.
//  4. 200 {success, result} or mirrored status {error, details}.
func Scrape(fwd Forwarder, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()
		requestID := c.GetString(middleware.RequestIDKey)

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			msg := models.MsgInvalidBody
			if errors.Is(err, io.EOF) {
				msg = models.MsgMissingFields
			}
			respondError(c, m, models.NewScrapeError(models.KindValidation, msg, err))
			return
		}
		if err := req.Validate(); err != nil {
			var scrapeErr *models.ScrapeError
			if !errors.As(err, &scrapeErr) {
				scrapeErr = models.NewScrapeError(models.KindValidation, err.Error(), err)
			}
			respondError(c, m, scrapeErr)
			return
		}
		req.Normalize()

		// ── 2. Forward ──────────────────────────────────────────────
		navStart := time.Now()
		resp, err := fwd.Markdown(c.Request.Context(), &req)
		status := 0
		if resp != nil {
			status = resp.Status
		}
		m.ObserveProvider(status, time.Since(navStart))

		if err != nil {
			slog.Error("scraping error",
				"request_id", requestID,
				"url", req.URL,
				"error", err,
			)
		}

		// ── 3. Normalize ────────────────────────────────────────────
		result := normalize.Normalize(resp, err)
		if !result.OK() {
			if result.Err.Kind == models.KindProvider || result.Err.Kind == models.KindContract {
				slog.Error("provider error",
					"request_id", requestID,
					"url", req.URL,
					"account_id", req.AccountID,
					"status", result.Err.Status,
					"details", string(result.Err.Details),
				)
			}
			respondError(c, m, result.Err)
			return
		}

		// ── 4. Respond ──────────────────────────────────────────────
		m.ObserveResult(result)
		slog.Info("scrape completed",
			"request_id", requestID,
			"url", req.URL,
			"bytes", len(result.Content),
			"total_ms", time.Since(totalStart).Milliseconds(),
		)
		c.JSON(http.StatusOK, models.ScrapeResponse{
			Success: true,
			Result:  result.Content,
		})
	}
}

// respondError writes the normalized error with its status. Transport
// failures never echo the underlying cause to the caller.
func respondError(c *gin.Context, m *metrics.Metrics, e *models.ScrapeError) {
	m.ObserveResult(models.Failure(e))
	c.JSON(e.Status, e.ToResponse())
}
