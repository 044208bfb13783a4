package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cfmarkdown/api"
	"github.com/use-agent/cfmarkdown/config"
	"github.com/use-agent/cfmarkdown/models"
	"github.com/use-agent/cfmarkdown/provider"
)

// newStack wires a fake Cloudflare API behind a real mediator router.
func newStack(t *testing.T, providerHandler http.HandlerFunc) (*MediatorClient, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		providerHandler(w, r)
	}))
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "test"},
		Provider: config.ProviderConfig{BaseURL: upstream.URL, Timeout: 5 * time.Second, UserAgent: "test"},
	}
	router := api.NewRouter(provider.NewClient(cfg.Provider), cfg, prometheus.NewRegistry(), time.Now())
	mediator := httptest.NewServer(router)
	t.Cleanup(mediator.Close)

	return NewMediatorClient(mediator.URL, 5*time.Second), &hits
}

func jsonReply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestEndToEndSuccess(t *testing.T) {
	mc, hits := newStack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/0123abcd/browser-rendering/markdown", r.URL.Path)
		assert.Equal(t, "Bearer tok_valid", r.Header.Get("Authorization"))
		jsonReply(http.StatusOK, `{"success":true,"result":"# Example"}`)(w, r)
	})
	store := memStore()
	s := NewSession(mc, store)

	st, err := s.Submit(context.Background(), models.ScrapeRequest{
		URL:       "https://example.com",
		AccountID: "0123abcd",
		APIToken:  "tok_valid",
	})
	require.NoError(t, err)

	assert.Equal(t, Succeeded, st.Phase)
	assert.Equal(t, "# Example", st.Content)
	assert.Equal(t, int32(1), hits.Load())

	saved, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.StoredCredentials{AccountID: "0123abcd", APIToken: "tok_valid"}, saved)
}

func TestEndToEndEmptyTokenNeverLeavesClient(t *testing.T) {
	mc, hits := newStack(t, jsonReply(http.StatusOK, `{"success":true,"result":"# Example"}`))
	s := NewSession(mc, memStore())

	st, err := s.Submit(context.Background(), models.ScrapeRequest{URL: "https://example.com", AccountID: "acc", APIToken: "  "})
	require.Error(t, err)
	assert.Equal(t, Idle, st.Phase)
	assert.Zero(t, hits.Load())
}

func TestEndToEndUnauthorized(t *testing.T) {
	mc, _ := newStack(t, jsonReply(http.StatusUnauthorized, `{"success":false,"errors":[{"code":10000,"message":"Authentication error"}]}`))
	s := NewSession(mc, memStore())

	st, err := s.Submit(context.Background(), validReq)
	require.NoError(t, err)

	assert.Equal(t, Failed, st.Phase)
	assert.Contains(t, st.Message, "Browser Rendering > Edit")
	assert.Contains(t, st.Message, "Authentication error")
}

func TestEndToEndProviderDown(t *testing.T) {
	mc, _ := newStack(t, func(w http.ResponseWriter, _ *http.Request) {
		// Non-JSON from the provider is a transport failure at the mediator.
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := mc.Scrape(context.Background(), &validReq)
	var scrapeErr *models.ScrapeError
	require.True(t, errors.As(err, &scrapeErr))
	assert.Equal(t, models.KindTransport, scrapeErr.Kind)
	assert.Equal(t, models.MsgInternal, scrapeErr.Message)
}

func TestMediatorClientMapsResponses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind models.ErrorKind
		wantMsg  string
	}{
		{"validation", http.StatusBadRequest, `{"error":"Missing required fields: url, accountId, apiToken"}`, models.KindValidation, models.MsgMissingFields},
		{"provider", http.StatusUnprocessableEntity, `{"error":"Invalid URL","details":{"errors":[]}}`, models.KindProvider, "Invalid URL"},
		{"error without message", http.StatusInternalServerError, `{}`, models.KindTransport, MsgRequestFailed},
		{"bad gateway", http.StatusBadGateway, `{"error":"Unexpected response format from Cloudflare API"}`, models.KindContract, models.MsgUnexpectedShape},
		{"success without result", http.StatusOK, `{"success":true}`, models.KindContract, models.MsgUnexpectedShape},
		{"not json", http.StatusOK, `<html></html>`, models.KindTransport, MsgTransportFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(jsonReply(tt.status, tt.body))
			defer server.Close()

			_, err := NewMediatorClient(server.URL, time.Second).Scrape(context.Background(), &validReq)
			var scrapeErr *models.ScrapeError
			require.True(t, errors.As(err, &scrapeErr), "got %v", err)
			assert.Equal(t, tt.wantKind, scrapeErr.Kind)
			assert.Equal(t, tt.wantMsg, scrapeErr.Message)
		})
	}
}

func TestMediatorClientSendsAccessKey(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		jsonReply(http.StatusOK, `{"success":true,"result":"# ok"}`)(w, r)
	}))
	defer server.Close()

	content, err := NewMediatorClient(server.URL+"/", time.Second, WithAccessKey("k1")).Scrape(context.Background(), &validReq)
	require.NoError(t, err)
	assert.Equal(t, "# ok", content)
	assert.Equal(t, "k1", gotKey)
}

func TestMediatorClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewMediatorClient(url, time.Second).Scrape(context.Background(), &validReq)
	var scrapeErr *models.ScrapeError
	require.True(t, errors.As(err, &scrapeErr))
	assert.Equal(t, MsgTransportFailure, scrapeErr.Message)
}
