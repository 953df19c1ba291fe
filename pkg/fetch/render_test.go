package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/res-scraper/pkg/config"
	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"headless-shell", "headless_shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome binary on PATH")
}

func renderConfig() *config.AppConfig {
	return &config.AppConfig{UserAgent: "render-test/1.0", PageTimeout: 20 * time.Second, RenderJavaScript: true}
}

func TestRenderer_SeesScriptInsertedReferences(t *testing.T) {
	requireChrome(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><img src="/static.png">
<script>
var img = document.createElement("img");
img.src = "/injected.png";
document.body.appendChild(img);
</script></body></html>`))
	}))
	defer server.Close()

	body, err := NewRenderer(renderConfig(), testLogger()).FetchPage(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Contains(t, string(body), "/static.png")
	assert.Contains(t, string(body), "/injected.png")
}

func TestRenderer_SizeLimit(t *testing.T) {
	requireChrome(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>more than sixty-four bytes of markup once rendered</p></body></html>`))
	}))
	defer server.Close()

	cfg := renderConfig()
	cfg.MaxPageBytes = 64
	_, err := NewRenderer(cfg, testLogger()).FetchPage(context.Background(), server.URL)

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrFetch)
	assert.ErrorIs(t, err, utils.ErrSizeLimit)
}

func TestRenderer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRenderer(renderConfig(), testLogger()).FetchPage(ctx, "http://127.0.0.1:1/")

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrFetch)
}
