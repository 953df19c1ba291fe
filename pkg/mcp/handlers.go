package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Sriram-PR/res-scraper/pkg/classify"
	"github.com/Sriram-PR/res-scraper/pkg/models"
	"github.com/Sriram-PR/res-scraper/pkg/orchestrate"
	"github.com/Sriram-PR/res-scraper/pkg/parse"
)

// handleDownloadResources handles the download_resources tool
func (s *Server) handleDownloadResources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetURL := strings.TrimSpace(request.GetString("url", ""))
	if targetURL == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	if !parse.IsValidURL(targetURL) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid URL %q: must include http:// or https://", targetURL)), nil
	}

	categories, err := parseTypes(request.GetString("types", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	labels := categories.Labels()

	job, created := s.jobManager.CreateJob(targetURL, labels)
	if !created {
		result := map[string]interface{}{
			"status":     "already_running",
			"message":    "A job with the same URL and categories is already in progress",
			"job_id":     job.ID,
			"url":        targetURL,
			"categories": labels,
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	go s.runDownloadJob(job.ID, models.CrawlRequest{TargetURL: targetURL, Categories: categories})

	result := map[string]interface{}{
		"status":     "started",
		"message":    "Download job started",
		"job_id":     job.ID,
		"url":        targetURL,
		"categories": labels,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// parseTypes turns the tool's types argument into a non-empty category set
func parseTypes(raw string) (models.CategorySet, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("types parameter is required")
	}
	set, invalid := models.ParseCategorySet(raw)
	if len(invalid) > 0 {
		return nil, fmt.Errorf("unknown categories: %s", strings.Join(invalid, ", "))
	}
	if len(set) == 0 {
		return nil, errors.New("no categories selected")
	}
	return set, nil
}

// runDownloadJob runs one crawl in the background
func (s *Server) runDownloadJob(jobID string, req models.CrawlRequest) {
	jobCtx := s.jobManager.GetContext(jobID)
	jobLog := s.log.WithField("job_id", jobID)

	orch := orchestrate.NewOrchestrator(s.cfg.AppConfig, jobLog,
		orchestrate.WithFetcher(s.fetcher),
		orchestrate.WithHostSemaphorePool(s.hostSems),
	)
	s.jobManager.Start(jobID, orch.Progress)

	result, err := orch.Crawl(jobCtx, req)

	var files []string
	for _, oc := range result.Outcomes {
		if oc.Result.OK {
			files = append(files, oc.Result.Path)
		}
	}

	switch {
	case jobCtx.Err() != nil:
		s.jobManager.Finish(jobID, JobStatusCancelled, orch.Progress(), files, "")
	case err != nil:
		s.jobManager.Finish(jobID, JobStatusFailed, orch.Progress(), files, err.Error())
	default:
		s.jobManager.Finish(jobID, JobStatusCompleted, orch.Progress(), files, "")
	}
}

// handleGetJobStatus handles the get_job_status tool
func (s *Server) handleGetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	job := s.jobManager.GetJob(jobID)
	if job == nil {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	return mcp.NewToolResultText(formatJSON(jobStatusMap(job))), nil
}

func jobStatusMap(job *Job) map[string]interface{} {
	result := map[string]interface{}{
		"job_id":     job.ID,
		"url":        job.TargetURL,
		"categories": job.Categories,
		"status":     job.Status,
		"started_at": job.StartedAt.Format(time.RFC3339),
		"found":      job.Found,
		"queued":     job.Queued,
		"attempted":  job.Attempted,
		"succeeded":  job.Succeeded,
		"failed":     job.Attempted - job.Succeeded,
		"skipped":    job.Skipped,
	}
	if job.CrawlState != "" {
		result["crawl_state"] = job.CrawlState
	}
	if !job.CompletedAt.IsZero() {
		result["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		result["duration_seconds"] = job.CompletedAt.Sub(job.StartedAt).Seconds()
	}
	if len(job.Files) > 0 {
		result["files"] = job.Files
	}
	if job.ErrorMessage != "" {
		result["error_message"] = job.ErrorMessage
	}
	return result
}

// handleListJobs handles the list_jobs tool
func (s *Server) handleListJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	activeOnly := request.GetBool("active_only", false)

	jobs := make([]map[string]interface{}, 0)
	for _, job := range s.jobManager.ListJobs() {
		if activeOnly && !job.Status.IsActive() {
			continue
		}
		jobs = append(jobs, map[string]interface{}{
			"job_id":     job.ID,
			"url":        job.TargetURL,
			"categories": job.Categories,
			"status":     job.Status,
			"started_at": job.StartedAt.Format(time.RFC3339),
			"succeeded":  job.Succeeded,
			"attempted":  job.Attempted,
		})
	}

	result := map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleCancelJob handles the cancel_job tool
func (s *Server) handleCancelJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	job := s.jobManager.GetJob(jobID)
	if job == nil {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}
	if !s.jobManager.CancelJob(jobID) {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' already %s", jobID, job.Status)), nil
	}

	s.log.WithField("job_id", jobID).Info("Download job cancelled")
	result := map[string]interface{}{
		"job_id":  jobID,
		"status":  JobStatusCancelled,
		"message": "Job cancelled; downloads in flight are aborted",
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleClassifyURL handles the classify_url tool
func (s *Server) handleClassifyURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := request.GetString("url", "")
	if strings.TrimSpace(ref) == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	base := request.GetString("base_url", "")

	absolute := parse.ResolveAbsolute(base, ref)
	if absolute == "" {
		return mcp.NewToolResultError(fmt.Sprintf("%q cannot be resolved to an absolute http(s) URL", ref)), nil
	}

	category := classify.ClassifyByExtension(absolute)
	result := map[string]interface{}{
		"url":         absolute,
		"extension":   classify.Extension(absolute),
		"category":    category.Label(),
		"menu_number": category.MenuNumber(),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleListCategories handles the list_categories tool
func (s *Server) handleListCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories := make([]map[string]interface{}, 0, len(models.AllCategories))
	for _, c := range models.AllCategories {
		categories = append(categories, map[string]interface{}{
			"number":     c.MenuNumber(),
			"label":      c.Label(),
			"extensions": classify.Extensions(c),
		})
	}
	result := map[string]interface{}{
		"categories":      categories,
		"output_base_dir": s.cfg.AppConfig.OutputBaseDir,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
