package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/res-scraper/pkg/config"
	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

// Fetcher issues GET requests with the configured user agent and optional
// retries. With max_retries at 0 every call is exactly one request.
type Fetcher struct {
	client *http.Client
	cfg    *config.AppConfig
	log    *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, cfg *config.AppConfig, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

// Client returns the underlying HTTP client
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// NewRequest builds a GET request carrying the configured user agent
func (f *Fetcher) NewRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	return req, nil
}

// FetchWithRetry performs req under ctx. Transport errors, 5xx and 429 are
// retried with exponential backoff and jitter up to cfg.MaxRetries times.
// On a 2xx response the caller owns the body. On other 4xx/3xx statuses the
// response is returned together with a wrapped error and the caller must
// still close the body.
func (f *Fetcher) FetchWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	var resp *http.Response

	reqLog := f.log.WithField("url", req.URL.String())
	maxRetries := f.cfg.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("context done (%v) after error: %w", err, lastErr)
			}
			return nil, err
		}

		if attempt > 0 {
			delay := f.backoff(attempt)
			reqLog.WithFields(logrus.Fields{"attempt": attempt, "max_retries": maxRetries, "delay": delay}).Warn("Retrying request")

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("context done (%v) during retry delay after error: %w", ctx.Err(), lastErr)
			}
		}

		resp, lastErr = f.client.Do(req.WithContext(ctx))
		if lastErr != nil {
			drainAndClose(resp)
			if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
				// Our own timeout or cancellation is never retried
				return nil, lastErr
			}
			reqLog.WithField("attempt", attempt).Debugf("Network error: %v", lastErr)
			continue
		}

		status := resp.StatusCode
		resLog := reqLog.WithFields(logrus.Fields{"status_code": status, "attempt": attempt})

		switch {
		case status >= 200 && status < 300:
			resLog.Debug("Fetched")
			return resp, nil

		case status >= 500:
			resLog.Debug("Server error")
			lastErr = fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, status, resp.Status)
			drainAndClose(resp)
			continue

		case status == http.StatusTooManyRequests:
			resLog.Debug("Too many requests")
			lastErr = fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, status, resp.Status)
			drainAndClose(resp)
			continue

		case status >= 400:
			return resp, fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, status, resp.Status)

		default:
			return resp, fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, status, resp.Status)
		}
	}

	if maxRetries == 0 {
		// Single attempt: report the cause as-is
		return nil, lastErr
	}
	reqLog.Debugf("All %d attempts failed, last error: %v", maxRetries+1, lastErr)
	return nil, fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
}

// backoff returns initial*2^(attempt-1) capped at MaxRetryDelay, with +/-10% jitter
func (f *Fetcher) backoff(attempt int) time.Duration {
	initial := f.cfg.InitialRetryDelay
	maxDelay := f.cfg.MaxRetryDelay

	delay := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	if delay <= 0 || (maxDelay > 0 && delay > maxDelay) {
		delay = maxDelay
	}
	if delay/5 > 0 {
		delay += time.Duration(rand.Int63n(int64(delay/5))) - delay/10
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
