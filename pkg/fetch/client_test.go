package fetch

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/res-scraper/pkg/config"
)

func TestNewClient_AppliesSettings(t *testing.T) {
	cfg := config.Default().HTTPClientSettings
	disabled := false
	cfg.ForceAttemptHTTP2 = &disabled

	client := NewClient(cfg, testLogger())

	assert.Equal(t, cfg.Timeout, client.Timeout)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.False(t, transport.ForceAttemptHTTP2)
	assert.Equal(t, cfg.MaxIdleConnsPerHost, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, transport.IdleConnTimeout)
}

func TestNewClient_StopsRedirectLoop(t *testing.T) {
	hops := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, fmt.Sprintf("%s/hop%d", server.URL, hops), http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(config.Default().HTTPClientSettings, testLogger())
	_, err := client.Get(server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 10 redirects")
	assert.Equal(t, maxRedirects, hops)
}
