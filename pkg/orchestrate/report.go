package orchestrate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/res-scraper/pkg/config"
	"github.com/Sriram-PR/res-scraper/pkg/models"
	"github.com/Sriram-PR/res-scraper/pkg/storage"
	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

const notAttempted = "NotAttempted"

// BuildReport assembles the crawl report from the result and the ledger.
// ledger may be nil, in which case only the outcomes are listed.
func BuildReport(req models.CrawlRequest, result models.CrawlResult, crawlErr error, ledger storage.ResourceLedger) (*models.CrawlReport, error) {
	report := &models.CrawlReport{
		CrawlID:        result.CrawlID,
		TargetURL:      result.TargetURL,
		Categories:     req.Categories.Labels(),
		CrawlStartTime: result.StartedAt,
		CrawlEndTime:   result.FinishedAt,
		Found:          result.Found,
		Attempted:      result.Attempted,
		Succeeded:      result.Succeeded,
		Skipped:        result.Skipped,
		Resources:      []models.ReportedItem{},
	}
	if crawlErr != nil {
		report.FatalError = crawlErr.Error()
	}

	if ledger == nil {
		for _, oc := range result.Outcomes {
			item := models.ReportedItem{
				URL:      oc.Resource.AbsoluteURL,
				RawRef:   oc.Resource.RawRef,
				Category: oc.Resource.Category.Label(),
				Status:   models.ResourceStatusFailure,
				Bytes:    oc.Result.Bytes,
			}
			switch {
			case !oc.Attempted:
				item.Status = models.ResourceStatusPending
				item.ErrorType = notAttempted
			case oc.Result.OK:
				item.Status = models.ResourceStatusSuccess
				item.LocalPath = oc.Result.Path
			default:
				item.ErrorType = utils.CategorizeError(oc.Result.Err)
			}
			report.Resources = append(report.Resources, item)
		}
		return report, nil
	}

	entries, err := ledger.Entries()
	if err != nil {
		return report, err
	}
	for _, e := range entries {
		item := models.ReportedItem{
			URL:       e.URL,
			RawRef:    e.RawRef,
			Category:  e.Category,
			Status:    e.Status,
			LocalPath: e.LocalPath,
			Bytes:     e.Bytes,
			ErrorType: e.ErrorType,
		}
		// Still pending means the crawl was cancelled before a worker got to it
		if !e.Status.IsTerminal() && item.ErrorType == "" {
			item.ErrorType = notAttempted
		}
		report.Resources = append(report.Resources, item)
	}

	counts, err := ledger.StatusCounts()
	if err != nil {
		return report, err
	}
	report.StatusCounts = make(map[string]int, len(counts))
	for status, n := range counts {
		report.StatusCounts[status.String()] = n
	}
	return report, nil
}

// ReportPath is where the crawl report lands for the given config
func ReportPath(appCfg *config.AppConfig) string {
	return filepath.Join(appCfg.OutputBaseDir, config.GetEffectiveReportFilename(*appCfg))
}

// WriteReport marshals report as YAML to path
func WriteReport(path string, report *models.CrawlReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("%w: marshalling crawl report: %w", utils.ErrParsing, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: writing crawl report '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}

// writeReport is the Reporting step; failures are logged, never returned.
// A crawl that never got past fetching does not create the output directory.
func (o *Orchestrator) writeReport(req models.CrawlRequest, result models.CrawlResult, crawlErr error, ledger storage.ResourceLedger, crawlLog *logrus.Entry) {
	path := ReportPath(o.appCfg)

	report, err := BuildReport(req, result, crawlErr, ledger)
	if err != nil {
		crawlLog.Warnf("Crawl report is incomplete: %v", err)
	}
	if crawlErr == nil {
		if err := os.MkdirAll(o.appCfg.OutputBaseDir, 0755); err != nil {
			crawlLog.Errorf("Cannot create output directory for report: %v", err)
			return
		}
	}
	if err := WriteReport(path, report); err != nil {
		crawlLog.Errorf("Failed to write crawl report: %v", err)
		return
	}
	crawlLog.WithField("path", path).Infof("Wrote crawl report (%d resources)", len(report.Resources))
}
