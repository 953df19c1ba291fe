package orchestrate

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/res-scraper/pkg/classify"
	"github.com/Sriram-PR/res-scraper/pkg/config"
	"github.com/Sriram-PR/res-scraper/pkg/download"
	"github.com/Sriram-PR/res-scraper/pkg/fetch"
	"github.com/Sriram-PR/res-scraper/pkg/models"
	"github.com/Sriram-PR/res-scraper/pkg/parse"
	"github.com/Sriram-PR/res-scraper/pkg/process"
	"github.com/Sriram-PR/res-scraper/pkg/storage"
	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

// Progress is a point-in-time view of a running crawl
type Progress struct {
	CrawlID   string
	State     models.CrawlState
	Found     int64 // Distinct raw references on the page
	Queued    int64 // Resources selected for download
	Attempted int64
	Succeeded int64
	Skipped   int64
}

// PageSource produces the markup of the target page. Failures must wrap
// utils.ErrFetch.
type PageSource interface {
	FetchPage(ctx context.Context, pageURL string) ([]byte, error)
}

// Orchestrator runs one crawl at a time: fetch the target page, extract and
// resolve references, keep the selected categories and download them with a
// bounded worker pool.
type Orchestrator struct {
	appCfg     *config.AppConfig
	log        *logrus.Entry
	fetcher    *fetch.Fetcher
	pages      PageSource // Defaults to fetcher, or a headless renderer
	downloader *download.Downloader
	hostSems   *fetch.HostSemaphorePool
	ownsClient bool // Close idle connections when the crawl ends

	state     atomic.Value // models.CrawlState
	crawlID   atomic.Value // string
	found     atomic.Int64
	queued    atomic.Int64
	attempted atomic.Int64
	succeeded atomic.Int64
	skipped   atomic.Int64
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithFetcher shares an existing fetcher (and its HTTP client) with the crawl
func WithFetcher(f *fetch.Fetcher) Option {
	return func(o *Orchestrator) {
		o.fetcher = f
		o.ownsClient = false
	}
}

// WithPageSource replaces how the target page is obtained
func WithPageSource(src PageSource) Option {
	return func(o *Orchestrator) { o.pages = src }
}

// WithHostSemaphorePool shares a per-host limit across several crawls
func WithHostSemaphorePool(pool *fetch.HostSemaphorePool) Option {
	return func(o *Orchestrator) { o.hostSems = pool }
}

// NewOrchestrator creates an orchestrator. appCfg must already be validated.
func NewOrchestrator(appCfg *config.AppConfig, log *logrus.Entry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		appCfg:     appCfg,
		log:        log.WithField("component", "orchestrator"),
		ownsClient: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.fetcher == nil {
		client := fetch.NewClient(appCfg.HTTPClientSettings, log.WithField("component", "http"))
		o.fetcher = fetch.NewFetcher(client, appCfg, log.WithField("component", "fetcher"))
	}
	if o.pages == nil {
		if appCfg.RenderJavaScript {
			o.pages = fetch.NewRenderer(appCfg, log.WithField("component", "renderer"))
		} else {
			o.pages = o.fetcher
		}
	}
	if o.hostSems == nil {
		o.hostSems = fetch.NewHostSemaphorePool(appCfg.MaxRequestsPerHost, log.WithField("component", "hostsem"))
	}
	o.downloader = download.NewDownloader(o.fetcher, appCfg, log.WithField("component", "downloader"))
	o.state.Store(models.StateIdle)
	o.crawlID.Store("")
	return o
}

// State returns the current step of the crawl state machine
func (o *Orchestrator) State() models.CrawlState {
	return o.state.Load().(models.CrawlState)
}

// Progress returns the live counters of the current or last crawl
func (o *Orchestrator) Progress() Progress {
	return Progress{
		CrawlID:   o.crawlID.Load().(string),
		State:     o.State(),
		Found:     o.found.Load(),
		Queued:    o.queued.Load(),
		Attempted: o.attempted.Load(),
		Succeeded: o.succeeded.Load(),
		Skipped:   o.skipped.Load(),
	}
}

func (o *Orchestrator) setState(s models.CrawlState, log *logrus.Entry) {
	o.state.Store(s)
	if s.IsFailure() {
		log.WithField("state", s).Warn("Crawl aborted")
		return
	}
	log.WithField("state", s).Debug("Crawl state changed")
}

// downloadTask is one selected resource handed to the worker pool
type downloadTask struct {
	index    int
	resource models.ResolvedResource
}

// Crawl runs the full pipeline for req. The returned error is non-nil only
// for the two crawl-level failures (utils.ErrInvalidInput, utils.ErrFetch);
// per-resource failures are counted in the result and never escalate.
// Crawl must not be called concurrently on the same Orchestrator.
func (o *Orchestrator) Crawl(ctx context.Context, req models.CrawlRequest) (models.CrawlResult, error) {
	req.TargetURL = strings.TrimSpace(req.TargetURL)
	crawlID := uuid.NewString()
	o.crawlID.Store(crawlID)
	o.found.Store(0)
	o.queued.Store(0)
	o.attempted.Store(0)
	o.succeeded.Store(0)
	o.skipped.Store(0)

	crawlLog := o.log.WithFields(logrus.Fields{"crawl_id": crawlID, "url": req.TargetURL})
	result := models.CrawlResult{
		CrawlID:   crawlID,
		TargetURL: req.TargetURL,
		StartedAt: time.Now(),
	}

	var ledger storage.ResourceLedger
	if badgerLedger, err := storage.NewBadgerLedger(crawlLog.WithField("component", "ledger")); err != nil {
		// Without a ledger the crawl still runs; the report just lists nothing
		crawlLog.Errorf("Crawl ledger unavailable: %v", err)
	} else {
		ledger = badgerLedger
		defer ledger.Close()
	}
	if o.ownsClient {
		defer o.fetcher.Client().CloseIdleConnections()
	}

	crawlErr := o.run(ctx, req, &result, ledger, crawlLog)

	result.FinishedAt = time.Now()
	result.Attempted = int(o.attempted.Load())
	result.Succeeded = int(o.succeeded.Load())
	result.Skipped = int(o.skipped.Load())

	o.setState(models.StateReporting, crawlLog)
	crawlLog.WithFields(logrus.Fields{
		"attempted": result.Attempted,
		"succeeded": result.Succeeded,
		"failed":    result.Failed(),
		"skipped":   result.Skipped,
		"duration":  result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
	}).Infof("Crawl finished: %d of %d downloads succeeded", result.Succeeded, result.Attempted)

	if o.appCfg.EnableReport {
		o.writeReport(req, result, crawlErr, ledger, crawlLog)
	}

	o.setState(models.StateDone, crawlLog)
	return result, crawlErr
}

// run walks the states up to the end of Downloading
func (o *Orchestrator) run(ctx context.Context, req models.CrawlRequest, result *models.CrawlResult, ledger storage.ResourceLedger, crawlLog *logrus.Entry) error {
	// --- Validating ---
	o.setState(models.StateValidating, crawlLog)
	if !parse.IsValidURL(req.TargetURL) {
		o.setState(models.StateInvalidURL, crawlLog)
		err := fmt.Errorf("%w: %q (must include http:// or https://)", utils.ErrInvalidInput, req.TargetURL)
		crawlLog.Error(err)
		return err
	}

	// --- Fetching ---
	o.setState(models.StateFetching, crawlLog)
	crawlLog.Info("Fetching page")
	body, err := o.pages.FetchPage(ctx, req.TargetURL)
	if err != nil {
		o.setState(models.StateFetchFailed, crawlLog)
		crawlLog.WithField("error_type", utils.CategorizeError(err)).Errorf("Page fetch failed: %v", err)
		return err
	}

	// --- Extracting ---
	o.setState(models.StateExtracting, crawlLog)
	refs, err := process.ExtractReferencesFromReader(bytes.NewReader(body))
	if err != nil {
		crawlLog.Warnf("Page markup could not be parsed, continuing with no references: %v", err)
	}
	result.Found = len(refs)
	o.found.Store(int64(len(refs)))
	crawlLog.Infof("Extracted %d distinct references", len(refs))

	// --- Filtering ---
	o.setState(models.StateFiltering, crawlLog)
	tasks := o.filter(req, refs, ledger, crawlLog)
	result.Outcomes = make([]models.ResourceOutcome, len(tasks))
	if len(tasks) == 0 {
		crawlLog.Info("No resources matched the selected categories")
		return nil
	}

	// --- Downloading ---
	o.setState(models.StateDownloading, crawlLog)
	o.downloadAll(ctx, tasks, result.Outcomes, ledger, crawlLog)
	return nil
}

// filter resolves, classifies and selects references. Unresolvable ones
// are logged and recorded as skipped.
func (o *Orchestrator) filter(req models.CrawlRequest, refs []string, ledger storage.ResourceLedger, crawlLog *logrus.Entry) []downloadTask {
	var tasks []downloadTask
	for _, ref := range refs {
		abs := parse.ResolveAbsolute(req.TargetURL, ref)
		if abs == "" {
			o.skipped.Add(1)
			skipErr := fmt.Errorf("%w: %q", utils.ErrResolution, ref)
			crawlLog.WithField("raw_ref", ref).Warnf("Skipping reference that has no absolute URL: %q", ref)
			if ledger != nil {
				if err := ledger.MarkSkipped(ref, skipErr); err != nil {
					crawlLog.Warnf("Ledger: %v", err)
				}
			}
			continue
		}

		category := classify.ClassifyByExtension(abs)
		if !req.Categories.Contains(category) {
			crawlLog.WithFields(logrus.Fields{"resource": abs, "category": category}).Debug("Category not selected")
			continue
		}

		crawlLog.WithFields(logrus.Fields{"resource": abs, "category": category}).Infof("Found %s resource: %s", category, abs)
		if ledger != nil {
			if _, err := ledger.MarkPending(ref, abs, category); err != nil {
				crawlLog.Warnf("Ledger: %v", err)
			}
		}
		tasks = append(tasks, downloadTask{
			index:    len(tasks),
			resource: models.ResolvedResource{RawRef: ref, AbsoluteURL: abs, Category: category},
		})
	}
	o.queued.Store(int64(len(tasks)))
	return tasks
}

// downloadAll fans tasks out to at most NumWorkers workers and waits for
// all of them. Each worker writes only its own slots of outcomes.
func (o *Orchestrator) downloadAll(ctx context.Context, tasks []downloadTask, outcomes []models.ResourceOutcome, ledger storage.ResourceLedger, crawlLog *logrus.Entry) {
	numWorkers := o.appCfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}

	jobs := make(chan downloadTask, len(tasks))
	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 1; i <= numWorkers; i++ {
		wg.Add(1)
		workerLog := crawlLog.WithField("worker_id", i)
		go func() {
			defer wg.Done()
			for task := range jobs {
				outcomes[task.index] = o.processTask(ctx, task, ledger, workerLog)
			}
		}()
	}
	wg.Wait()
}

// processTask downloads one resource. A panic is recovered and recorded as
// a failed download so the worker keeps going. Tasks reached after the
// crawl was cancelled are neither counted nor recorded; their ledger entry
// stays pending.
func (o *Orchestrator) processTask(ctx context.Context, task downloadTask, ledger storage.ResourceLedger, workerLog *logrus.Entry) (outcome models.ResourceOutcome) {
	res := task.resource
	taskLog := workerLog.WithFields(logrus.Fields{"resource": res.AbsoluteURL, "category": res.Category})
	outcome.Resource = res
	outcome.Result.Filename = download.FilenameFor(res.AbsoluteURL)

	if ctx.Err() != nil {
		taskLog.Debug("Crawl cancelled before download started")
		return outcome
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic downloading '%s': %v", utils.ErrDownload, res.AbsoluteURL, r)
			taskLog.WithFields(logrus.Fields{"panic_info": r, "stack_trace": string(debug.Stack())}).Error("PANIC recovered in download worker")
			if !outcome.Attempted {
				outcome.Attempted = true
				o.attempted.Add(1)
			}
			outcome.Result = models.DownloadResult{Filename: outcome.Result.Filename, Err: err, ErrorDetail: err.Error()}
		}
		if outcome.Attempted {
			o.record(task, outcome.Result, ledger, taskLog)
		}
	}()

	host := parse.HostOf(res.AbsoluteURL)
	folder := filepath.Join(o.appCfg.OutputBaseDir, res.Category.Label())

	err := o.hostSems.Do(ctx, host, func() error {
		outcome.Attempted = true
		o.attempted.Add(1)
		outcome.Result = o.downloader.Download(ctx, res.AbsoluteURL, folder)
		return nil
	})
	if err != nil {
		// Only a cancelled parent context lands here
		taskLog.Debugf("Crawl cancelled while waiting for host slot '%s': %v", host, err)
	}
	return outcome
}

// record updates the counters, the log and the ledger for one finished download
func (o *Orchestrator) record(task downloadTask, dl models.DownloadResult, ledger storage.ResourceLedger, taskLog *logrus.Entry) {
	entry := &models.ResourceDBEntry{
		RawRef:      task.resource.RawRef,
		URL:         task.resource.AbsoluteURL,
		Category:    task.resource.Category.Label(),
		LastAttempt: time.Now(),
	}

	if dl.OK {
		o.succeeded.Add(1)
		entry.Status = models.ResourceStatusSuccess
		entry.LocalPath = dl.Path
		entry.Bytes = dl.Bytes
		taskLog.WithField("bytes", dl.Bytes).Infof("Downloaded: %s", dl.Filename)
	} else {
		entry.Status = models.ResourceStatusFailure
		entry.ErrorType = utils.CategorizeError(dl.Err)
		entry.ErrorDetail = dl.ErrorDetail
		taskLog.WithField("error_type", entry.ErrorType).Warnf("Download failed %s: %s", task.resource.AbsoluteURL, dl.ErrorDetail)
	}

	if ledger != nil {
		if err := ledger.UpdateStatus(task.resource.RawRef, entry); err != nil {
			taskLog.Warnf("Ledger: %v", err)
		}
	}
}
