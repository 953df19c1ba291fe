package config

import "time"

// DefaultUserAgent is a realistic desktop browser UA; some sites refuse bare Go clients
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// AppConfig holds the application configuration. Every field is optional;
// Validate fills in defaults, so a zero AppConfig is usable.
type AppConfig struct {
	UserAgent          string           `yaml:"user_agent,omitempty"`
	NumWorkers         int              `yaml:"num_workers,omitempty"`           // Download worker pool size
	MaxRequestsPerHost int              `yaml:"max_requests_per_host,omitempty"` // Concurrent downloads per host
	OutputBaseDir      string           `yaml:"output_base_dir,omitempty"`       // Parent of the category folders
	PageTimeout        time.Duration    `yaml:"page_timeout,omitempty"`          // Timeout for the target page fetch
	DownloadTimeout    time.Duration    `yaml:"download_timeout,omitempty"`      // Timeout for each resource download
	MaxRetries         int              `yaml:"max_retries,omitempty"`
	InitialRetryDelay  time.Duration    `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay      time.Duration    `yaml:"max_retry_delay,omitempty"`
	MaxPageBytes       int64            `yaml:"max_page_bytes,omitempty"`     // Cap on the target page body
	MaxDownloadBytes   int64            `yaml:"max_download_bytes,omitempty"` // 0 = unlimited
	EnableReport       bool             `yaml:"enable_report,omitempty"`
	ReportFilename     string           `yaml:"report_filename,omitempty"`
	RenderJavaScript   bool             `yaml:"render_javascript,omitempty"` // Load the target page in headless Chrome
	RenderWait         time.Duration    `yaml:"render_wait,omitempty"`       // Extra settle time after the body is ready
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// Default returns a validated AppConfig carrying only defaults
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.Validate()
	return cfg
}

// GetEffectiveReportFilename returns the report filename, falling back to a hardcoded default
func GetEffectiveReportFilename(appCfg AppConfig) string {
	if appCfg.ReportFilename != "" {
		return appCfg.ReportFilename
	}
	return "crawl_report.yaml"
}
