package models

import "encoding/json"

// ScrapeResponse is the response for POST /api/scrape.
//
// On success only Success and Result are set; on failure only Error and,
// for provider-originated failures, Details.
type ScrapeResponse struct {
	Success bool   `json:"success,omitempty"`
	Result  string `json:"result,omitempty"`

	Error   string          `json:"error,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

// ScrapeResult is the normalized outcome of one provider call.
// Exactly one of Content (with Err == nil) or Err is meaningful.
type ScrapeResult struct {
	Content string
	Err     *ScrapeError
}

// OK reports whether the result is a success.
func (r ScrapeResult) OK() bool {
	return r.Err == nil
}

// Success wraps extracted Markdown.
func Success(content string) ScrapeResult {
	return ScrapeResult{Content: content}
}

// Failure wraps a normalized error.
func Failure(err *ScrapeError) ScrapeResult {
	return ScrapeResult{Err: err}
}

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
