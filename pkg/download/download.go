package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/res-scraper/pkg/config"
	"github.com/Sriram-PR/res-scraper/pkg/fetch"
	"github.com/Sriram-PR/res-scraper/pkg/models"
	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

const (
	copyBufferSize  = 32 * 1024
	fallbackHashLen = 16
	partFilePattern = ".part-*"
)

// Downloader streams one resource at a time into a destination folder.
// It is safe for concurrent use; each call owns its request and file.
type Downloader struct {
	fetcher  *fetch.Fetcher
	timeout  time.Duration
	maxBytes int64 // 0 = unlimited
	log      *logrus.Entry
}

// NewDownloader creates a Downloader using the download settings of cfg
func NewDownloader(fetcher *fetch.Fetcher, cfg *config.AppConfig, log *logrus.Entry) *Downloader {
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Downloader{
		fetcher:  fetcher,
		timeout:  timeout,
		maxBytes: cfg.MaxDownloadBytes,
		log:      log,
	}
}

// Download fetches absoluteURL into folder. It never returns an error:
// every failure is reported through the result with OK=false. The timeout
// is derived from ctx, so it ends only this download.
func (d *Downloader) Download(ctx context.Context, absoluteURL, folder string) models.DownloadResult {
	res := models.DownloadResult{Filename: FilenameFor(absoluteURL)}
	dlLog := d.log.WithField("url", absoluteURL)

	fail := func(err error) models.DownloadResult {
		res.OK = false
		res.Err = fmt.Errorf("%w: %w", utils.ErrDownload, err)
		res.ErrorDetail = err.Error()
		dlLog.WithField("error_type", utils.CategorizeError(res.Err)).Debugf("Download failed: %v", err)
		return res
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return fail(fmt.Errorf("%w: creating folder '%s': %w", utils.ErrFilesystem, folder, err))
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := d.fetcher.NewRequest(ctx, absoluteURL)
	if err != nil {
		return fail(err)
	}

	resp, err := d.fetcher.FetchWithRetry(ctx, req)
	if err != nil {
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, resp.StatusCode, resp.Status))
	}

	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return fail(fmt.Errorf("%w: Content-Length %d > %d bytes", utils.ErrSizeLimit, resp.ContentLength, d.maxBytes))
	}

	filePath := filepath.Join(folder, res.Filename)
	written, err := d.writeFile(filePath, resp.Body)
	if err != nil {
		return fail(err)
	}

	res.OK = true
	res.Path = filePath
	res.Bytes = written
	dlLog.WithFields(logrus.Fields{"path": filePath, "bytes": written}).Debug("Saved resource")
	return res
}

// writeFile streams body into a temporary file in the destination folder
// and renames it onto filePath once the copy completes. Concurrent writers
// of the same name never interleave bytes; a failed write removes only its
// own temporary file.
func (d *Downloader) writeFile(filePath string, body io.Reader) (written int64, err error) {
	out, err := os.CreateTemp(filepath.Dir(filePath), partFilePattern)
	if err != nil {
		return 0, fmt.Errorf("%w: creating temp file for '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	tmpPath := out.Name()
	closed := false
	defer func() {
		if !closed {
			out.Close()
		}
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	reader := body
	if d.maxBytes > 0 {
		// One extra byte tells an exact fit apart from an overflow
		reader = io.LimitReader(body, d.maxBytes+1)
	}

	buf := make([]byte, copyBufferSize)
	written, err = io.CopyBuffer(out, reader, buf)
	if err != nil {
		return written, fmt.Errorf("%w: copying to '%s' after %d bytes: %w", utils.ErrResponseBodyRead, filePath, written, err)
	}
	if d.maxBytes > 0 && written > d.maxBytes {
		return written, fmt.Errorf("%w: more than %d bytes", utils.ErrSizeLimit, d.maxBytes)
	}

	closed = true
	if err = out.Close(); err != nil {
		return written, fmt.Errorf("%w: closing file '%s': %w", utils.ErrFilesystem, tmpPath, err)
	}
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return written, fmt.Errorf("%w: chmod '%s': %w", utils.ErrFilesystem, tmpPath, err)
	}
	if err = os.Rename(tmpPath, filePath); err != nil {
		return written, fmt.Errorf("%w: renaming onto '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	return written, nil
}

// FilenameFor derives the local file name from the URL's final path
// segment. URLs without one (root, trailing slash, unparseable) get a
// deterministic resource_<hash>.tmp name. Two URLs that share a final
// segment map to the same file; the last one to finish wins.
func FilenameFor(absoluteURL string) string {
	fallback := "resource_" + utils.ShortStringHash(absoluteURL, fallbackHashLen) + ".tmp"

	u, err := url.Parse(absoluteURL)
	if err != nil || u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return fallback
	}
	segment := path.Base(u.Path)
	if segment == "." || segment == "/" || segment == ".." {
		return fallback
	}
	name := utils.SanitizeFilename(segment)
	if name == "" || name == "." || name == ".." {
		return fallback
	}
	return name
}
