package config

import (
	"fmt"
	"time"

	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

const (
	defaultNumWorkers = 8
	maxNumWorkers     = 16
	defaultTimeout    = 10 * time.Second
	defaultMaxPage    = 50 * 1024 * 1024 // 50 MB
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	// NumWorkers
	if c.NumWorkers < 0 {
		warnings = append(warnings, fmt.Sprintf("num_workers cannot be negative, defaulting to %d", defaultNumWorkers))
		c.NumWorkers = defaultNumWorkers
	} else if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	} else if c.NumWorkers > maxNumWorkers {
		warnings = append(warnings, fmt.Sprintf("num_workers %d exceeds %d, capping", c.NumWorkers, maxNumWorkers))
		c.NumWorkers = maxNumWorkers
	}

	// MaxRequestsPerHost
	if c.MaxRequestsPerHost < 0 {
		warnings = append(warnings, "max_requests_per_host cannot be negative, defaulting to num_workers")
		c.MaxRequestsPerHost = 0
	}
	if c.MaxRequestsPerHost == 0 || c.MaxRequestsPerHost > c.NumWorkers {
		c.MaxRequestsPerHost = c.NumWorkers
	}

	if c.RenderWait < 0 {
		warnings = append(warnings, "render_wait cannot be negative, using 0")
		c.RenderWait = 0
	}
	if c.RenderWait > 0 && !c.RenderJavaScript {
		warnings = append(warnings, "render_wait has no effect unless render_javascript is enabled")
	}

	// OutputBaseDir: category folders are created relative to the working directory by default
	if c.OutputBaseDir == "" {
		c.OutputBaseDir = "."
	}

	// Timeouts
	if c.PageTimeout < 0 {
		warnings = append(warnings, "page_timeout cannot be negative, defaulting to 10s")
		c.PageTimeout = 0
	}
	if c.PageTimeout == 0 {
		c.PageTimeout = defaultTimeout
	}
	if c.DownloadTimeout < 0 {
		warnings = append(warnings, "download_timeout cannot be negative, defaulting to 10s")
		c.DownloadTimeout = 0
	}
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = defaultTimeout
	}

	// MaxRetries; zero keeps the single-request behaviour
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}

	// Retry delays (only if retries enabled)
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}

	// InitialRetryDelay > MaxRetryDelay check
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	// Size limits
	if c.MaxPageBytes < 0 {
		warnings = append(warnings, "max_page_bytes cannot be negative, using default")
		c.MaxPageBytes = 0
	}
	if c.MaxPageBytes == 0 {
		c.MaxPageBytes = defaultMaxPage
	}
	if c.MaxDownloadBytes < 0 {
		warnings = append(warnings, "max_download_bytes cannot be negative, setting to 0 (unlimited)")
		c.MaxDownloadBytes = 0
	}

	// Report filename
	if c.EnableReport && c.ReportFilename == "" {
		warnings = append(warnings,
			"'enable_report' is true but 'report_filename' is empty. Defaulting to 'crawl_report.yaml'")
		c.ReportFilename = "crawl_report.yaml"
	}

	c.validateHTTPClientSettings()

	// Client-level timeout must not cut a download short of its own timeout
	if c.HTTPClientSettings.Timeout < c.DownloadTimeout || c.HTTPClientSettings.Timeout < c.PageTimeout {
		return warnings, fmt.Errorf("%w: http_client_settings.timeout (%v) is shorter than page_timeout (%v) or download_timeout (%v)",
			utils.ErrConfigValidation, c.HTTPClientSettings.Timeout, c.PageTimeout, c.DownloadTimeout)
	}

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = c.MaxRequestsPerHost
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 10 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
