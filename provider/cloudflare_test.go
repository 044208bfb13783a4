package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cfmarkdown/config"
	"github.com/use-agent/cfmarkdown/models"
)

func newTestClient(url string) *Client {
	return NewClient(config.ProviderConfig{BaseURL: url + "/client/v4/", Timeout: 5 * time.Second, UserAgent: "test"})
}

func TestMarkdownSendsAccountPathBearerAndURL(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"result":"# Example"}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Markdown(context.Background(), &models.ScrapeRequest{
		URL:       "https://example.com",
		AccountID: "abc 123",
		APIToken:  "secret-token",
	})
	require.NoError(t, err)

	assert.Equal(t, "/client/v4/accounts/abc%20123/browser-rendering/markdown", gotPath)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Contains(t, gotContentType, "application/json")
	assert.Equal(t, map[string]any{"url": "https://example.com"}, gotBody)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.True(t, resp.IsSuccess())
	assert.JSONEq(t, `{"success":true,"result":"# Example"}`, string(resp.Body))
}

func TestMarkdownReturnsErrorStatusesAsResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"errors":[]}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Markdown(context.Background(), &models.ScrapeRequest{
		URL: "https://example.com", AccountID: "acc", APIToken: "bad",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.False(t, resp.IsSuccess())
}

func TestMarkdownNonJSONBodyIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Markdown(context.Background(), &models.ScrapeRequest{
		URL: "https://example.com", AccountID: "acc", APIToken: "tok",
	})
	require.Error(t, err)
	assert.Nil(t, resp)

	var scrapeErr *models.ScrapeError
	require.True(t, errors.As(err, &scrapeErr))
	assert.Equal(t, models.KindTransport, scrapeErr.Kind)
}

func TestMarkdownUnreachableIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Markdown(context.Background(), &models.ScrapeRequest{
		URL: "https://example.com", AccountID: "acc", APIToken: "tok",
	})
	var scrapeErr *models.ScrapeError
	require.True(t, errors.As(err, &scrapeErr))
	assert.Equal(t, models.KindTransport, scrapeErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, scrapeErr.Status)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", MaskToken(""))
	assert.Equal(t, "****", MaskToken("abcd"))
	assert.Equal(t, "abcd****", MaskToken("abcdefghijkl"))
	assert.Equal(t, "****", MaskToken("üñïç"))

	masked := MaskToken("ünïcødé-token")
	assert.Equal(t, "ünïc****", masked)
	assert.True(t, utf8.ValidString(masked))
}
