// Package emulator serves a local stand-in for Cloudflare's Browser Rendering
// markdown endpoint, for development without a Cloudflare account. Pages are
// fetched over plain HTTP and not rendered, so JavaScript-built content is missing.
package emulator

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cfmarkdown/config"
)

// Cloudflare-style error codes returned by the emulator.
const (
	CodeAuthentication = 10000
	CodeInvalidInput   = 1001
	CodeFetchFailed    = 2001
	CodeConvertFailed  = 2002
)

// APIError is one entry of the v4 envelope's errors list.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Envelope is the Cloudflare v4 response envelope.
type Envelope struct {
	Success  bool       `json:"success"`
	Result   *string    `json:"result,omitempty"`
	Errors   []APIError `json:"errors"`
	Messages []string   `json:"messages"`
}

type markdownRequest struct {
	URL string `json:"url"`
}

// Handler implements the emulated markdown endpoint.
type Handler struct {
	token   string
	fetcher Fetcher
	conv    *Converter
}

// NewHandler creates a Handler. An empty token accepts any bearer token.
func NewHandler(token string, fetcher Fetcher) *Handler {
	return &Handler{token: token, fetcher: fetcher, conv: NewConverter()}
}

// Register mounts POST /accounts/:accountId/browser-rendering/markdown on r.
func Register(r gin.IRoutes, cfg config.EmulatorConfig) {
	h := NewHandler(cfg.Token, NewHTTPFetcher(cfg.FetchTimeout))
	r.POST("/accounts/:accountId/browser-rendering/markdown", h.Markdown)
	slog.Info("provider emulator enabled", "token_required", cfg.Token != "")
}

// Markdown handles one emulated rendering call.
func (h *Handler) Markdown(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" || (h.token != "" && token != h.token) {
		fail(c, http.StatusUnauthorized, CodeAuthentication, "Authentication error")
		return
	}

	var req markdownRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Invalid request: url is required")
		return
	}

	page, err := h.fetcher.Fetch(c.Request.Context(), req.URL)
	if err != nil {
		slog.Warn("emulator: fetch failed", "account_id", c.Param("accountId"), "url", req.URL, "error", err)
		fail(c, http.StatusUnprocessableEntity, CodeFetchFailed, "Failed to load page: "+err.Error())
		return
	}

	md, err := h.conv.Convert(page.HTML, page.FinalURL)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeConvertFailed, err.Error())
		return
	}

	c.JSON(http.StatusOK, Envelope{
		Success:  true,
		Result:   &md,
		Errors:   []APIError{},
		Messages: []string{},
	})
}

func fail(c *gin.Context, status, code int, message string) {
	c.JSON(status, Envelope{
		Success:  false,
		Errors:   []APIError{{Code: code, Message: message}},
		Messages: []string{},
	})
}
