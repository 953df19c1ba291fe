package fetch

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/res-scraper/pkg/config"
	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

func pageConfig() *config.AppConfig {
	cfg := &config.AppConfig{UserAgent: "page-test/1.0", PageTimeout: 2 * time.Second}
	return cfg
}

func TestFetchPage_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><img src="/a.png"></body></html>`))
	}))
	defer server.Close()

	fetcher := NewFetcher(testClient(), pageConfig(), testLogger())
	body, err := fetcher.FetchPage(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Contains(t, string(body), `<img src="/a.png">`)
	assert.Equal(t, "page-test/1.0", gotUA)
}

func TestFetchPage_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := NewFetcher(testClient(), pageConfig(), testLogger())
	body, err := fetcher.FetchPage(context.Background(), server.URL)

	require.Error(t, err)
	assert.Nil(t, body)
	assert.ErrorIs(t, err, utils.ErrFetch)
	assert.ErrorIs(t, err, utils.ErrClientHTTPError)
	assert.True(t, utils.IsFatal(err))
	assert.Equal(t, "HTTP_404", utils.CategorizeError(err))
}

func TestFetchPage_ServerErrorNotRetriedByDefault(t *testing.T) {
	server, attempts := statusServer(t, http.StatusBadGateway, http.StatusOK)

	fetcher := NewFetcher(testClient(), pageConfig(), testLogger())
	_, err := fetcher.FetchPage(context.Background(), server.URL)

	assert.ErrorIs(t, err, utils.ErrFetch)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetchPage_RateLimitNotRetriedByDefault(t *testing.T) {
	server, attempts := statusServer(t, http.StatusTooManyRequests, http.StatusOK)

	fetcher := NewFetcher(testClient(), pageConfig(), testLogger())
	body, err := fetcher.FetchPage(context.Background(), server.URL)

	assert.Nil(t, body)
	assert.ErrorIs(t, err, utils.ErrFetch)
	assert.ErrorIs(t, err, utils.ErrClientHTTPError)
	assert.NotErrorIs(t, err, utils.ErrRetryFailed)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetchPage_RetriesWhenConfigured(t *testing.T) {
	server, attempts := statusServer(t, http.StatusServiceUnavailable, http.StatusOK)

	cfg := pageConfig()
	cfg.MaxRetries = 1
	cfg.InitialRetryDelay = 5 * time.Millisecond
	cfg.MaxRetryDelay = 20 * time.Millisecond
	fetcher := NewFetcher(testClient(), cfg, testLogger())
	body, err := fetcher.FetchPage(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "body", string(body))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestFetchPage_ConnectionRefused(t *testing.T) {
	// Reserve a port, then close it so nothing is listening
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	fetcher := NewFetcher(testClient(), pageConfig(), testLogger())
	_, err = fetcher.FetchPage(context.Background(), "http://"+addr+"/")

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrFetch)
	assert.True(t, utils.IsFatal(err))
}

func TestFetchPage_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := pageConfig()
	cfg.PageTimeout = 50 * time.Millisecond
	fetcher := NewFetcher(testClient(), cfg, testLogger())

	start := time.Now()
	_, err := fetcher.FetchPage(context.Background(), server.URL)

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrFetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchPage_SizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	cfg := pageConfig()
	cfg.MaxPageBytes = 1024
	fetcher := NewFetcher(testClient(), cfg, testLogger())

	_, err := fetcher.FetchPage(context.Background(), server.URL)

	assert.ErrorIs(t, err, utils.ErrFetch)
	assert.ErrorIs(t, err, utils.ErrSizeLimit)
}
