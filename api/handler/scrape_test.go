package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cfmarkdown/metrics"
	"github.com/use-agent/cfmarkdown/models"
	"github.com/use-agent/cfmarkdown/provider"
)

// fakeForwarder records calls and replays a canned provider answer.
type fakeForwarder struct {
	calls int
	got   *models.ScrapeRequest
	resp  *provider.Response
	err   error
}

func (f *fakeForwarder) Markdown(_ context.Context, req *models.ScrapeRequest) (*provider.Response, error) {
	f.calls++
	f.got = req
	return f.resp, f.err
}

func newTestEngine(fwd Forwarder) (*gin.Engine, *metrics.Metrics) {
	gin.SetMode(gin.TestMode)
	m := metrics.New(prometheus.NewRegistry())
	r := gin.New()
	r.POST("/api/scrape", Scrape(fwd, m))
	return r, m
}

func post(t *testing.T, r http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), "body: %s", w.Body.String())
	return w, decoded
}

func TestScrapeSuccess(t *testing.T) {
	fwd := &fakeForwarder{resp: &provider.Response{Status: 200, Body: []byte(`{"success":true,"result":"# Example","errors":[],"messages":[]}`)}}
	r, m := newTestEngine(fwd)

	w, body := post(t, r, `{"url":" https://example.com ","accountId":"acc","apiToken":"tok"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "# Example", body["result"])
	assert.NotContains(t, body, "error")

	require.Equal(t, 1, fwd.calls)
	assert.Equal(t, "https://example.com", fwd.got.URL)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ScrapeRequests.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderStatus.WithLabelValues("200")))
}

func TestScrapeMissingFieldsNeverCallsProvider(t *testing.T) {
	bodies := []string{
		`{"url":"https://example.com","accountId":"acc","apiToken":""}`,
		`{"url":"https://example.com","accountId":"acc"}`,
		`{"accountId":"acc","apiToken":"tok"}`,
		`{"url":"https://example.com","apiToken":"tok"}`,
		`{}`,
		``,
	}
	for _, b := range bodies {
		t.Run(b, func(t *testing.T) {
			fwd := &fakeForwarder{}
			r, _ := newTestEngine(fwd)

			w, body := post(t, r, b)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, map[string]any{"error": models.MsgMissingFields}, body)
			assert.Zero(t, fwd.calls)
		})
	}
}

func TestScrapeMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"bad json", `{"url":`, models.MsgInvalidBody},
		{"wrong type", `{"url":42,"accountId":"a","apiToken":"t"}`, models.MsgInvalidBody},
		{"relative url", `{"url":"example.com","accountId":"a","apiToken":"t"}`, models.MsgInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd := &fakeForwarder{}
			r, _ := newTestEngine(fwd)

			w, body := post(t, r, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantMsg, body["error"])
			assert.Zero(t, fwd.calls)
		})
	}
}

func TestScrapeProviderErrorMirrorsStatusWithDetails(t *testing.T) {
	raw := `{"success":false,"errors":[{"code":1001,"message":"Invalid URL"}]}`
	fwd := &fakeForwarder{resp: &provider.Response{Status: 422, Body: []byte(raw)}}
	r, m := newTestEngine(fwd)

	w, body := post(t, r, `{"url":"https://example.com","accountId":"acc","apiToken":"tok"}`)

	assert.Equal(t, 422, w.Code)
	assert.Equal(t, "Invalid URL", body["error"])
	details, err := json.Marshal(body["details"])
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(details))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ScrapeRequests.WithLabelValues("provider")))
}

func TestScrapeUnauthorizedGivesGuidance(t *testing.T) {
	fwd := &fakeForwarder{resp: &provider.Response{Status: 401, Body: []byte(`{"errors":[]}`)}}
	r, _ := newTestEngine(fwd)

	w, body := post(t, r, `{"url":"https://example.com","accountId":"acc","apiToken":"tok"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.MsgAuthGuidance, body["error"])
}

func TestScrapeSuccessWithoutResultIsContractViolation(t *testing.T) {
	fwd := &fakeForwarder{resp: &provider.Response{Status: 200, Body: []byte(`{"success":true}`)}}
	r, _ := newTestEngine(fwd)

	w, body := post(t, r, `{"url":"https://example.com","accountId":"acc","apiToken":"tok"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, models.MsgUnexpectedShape, body["error"])
	assert.NotContains(t, body, "success")
}

func TestScrapeTransportFailureHidesCause(t *testing.T) {
	fwd := &fakeForwarder{err: models.NewScrapeError(models.KindTransport, "provider request failed", errors.New("dial tcp 10.0.0.1: refused"))}
	r, m := newTestEngine(fwd)

	w, body := post(t, r, `{"url":"https://example.com","accountId":"acc","apiToken":"tok"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"error": models.MsgInternal}, body)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ScrapeRequests.WithLabelValues("transport")))
}
