package fetch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

// FetchPage retrieves the target page body. Every failure (request
// construction, transport error, timeout, non-2xx status, body read,
// size limit) is wrapped in utils.ErrFetch.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	timeout := f.cfg.PageTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := f.NewRequest(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrFetch, err)
	}

	resp, err := f.FetchWithRetry(ctx, req)
	if err != nil {
		drainAndClose(resp)
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrFetch, pageURL, err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	limit := f.cfg.MaxPageBytes
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w: %w", utils.ErrFetch, pageURL, utils.ErrResponseBodyRead, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s: %w: page larger than %d bytes", utils.ErrFetch, pageURL, utils.ErrSizeLimit, limit)
	}

	f.log.WithField("url", pageURL).WithField("bytes", len(data)).Debug("Fetched page")
	return data, nil
}
