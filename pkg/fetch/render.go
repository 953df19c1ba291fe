package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/res-scraper/pkg/config"
	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

// Renderer loads the target page in headless Chrome so references added by
// scripts end up in the extracted markup. The HTTP status of the document is
// not visible here; only navigation failures and timeouts are errors.
type Renderer struct {
	cfg *config.AppConfig
	log *logrus.Entry
}

// NewRenderer creates a Renderer. Chrome is started per call.
func NewRenderer(cfg *config.AppConfig, log *logrus.Entry) *Renderer {
	return &Renderer{cfg: cfg, log: log}
}

// FetchPage navigates to pageURL and returns the rendered document's outer
// HTML. Failures are wrapped in utils.ErrFetch like Fetcher.FetchPage.
func (r *Renderer) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent(r.cfg.UserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(r.log.Debugf),
		chromedp.WithErrorf(r.log.Debugf),
	)
	defer cancelBrowser()

	timeout := r.cfg.PageTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timeoutCtx, cancel := context.WithTimeout(browserCtx, timeout+r.cfg.RenderWait)
	defer cancel()

	tasks := []chromedp.Action{
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
	}
	if r.cfg.RenderWait > 0 {
		tasks = append(tasks, chromedp.Sleep(r.cfg.RenderWait))
	}

	var pageHTML string
	tasks = append(tasks, chromedp.OuterHTML("html", &pageHTML))

	start := time.Now()
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, fmt.Errorf("%w: %s: rendering: %w", utils.ErrFetch, pageURL, err)
	}

	if limit := r.cfg.MaxPageBytes; limit > 0 && int64(len(pageHTML)) > limit {
		return nil, fmt.Errorf("%w: %s: %w: rendered page larger than %d bytes", utils.ErrFetch, pageURL, utils.ErrSizeLimit, limit)
	}

	r.log.WithFields(logrus.Fields{
		"url":      pageURL,
		"bytes":    len(pageHTML),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("Rendered page")
	return []byte(pageHTML), nil
}
