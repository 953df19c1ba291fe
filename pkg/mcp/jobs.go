package mcp

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sriram-PR/res-scraper/pkg/orchestrate"
)

// JobStatus represents the current state of a download job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsActive reports whether the job has not finished yet
func (s JobStatus) IsActive() bool {
	return s == JobStatusPending || s == JobStatusRunning
}

// Job is one background crawl started through the download_resources tool
type Job struct {
	ID           string    `json:"id"`
	TargetURL    string    `json:"target_url"`
	Categories   []string  `json:"categories"`
	Status       JobStatus `json:"status"`
	CrawlState   string    `json:"crawl_state,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
	Found        int64     `json:"found"`
	Queued       int64     `json:"queued"`
	Attempted    int64     `json:"attempted"`
	Succeeded    int64     `json:"succeeded"`
	Skipped      int64     `json:"skipped"`
	Files        []string  `json:"files,omitempty"` // Local paths of successful downloads
	ErrorMessage string    `json:"error_message,omitempty"`

	ctx      context.Context
	cancel   context.CancelFunc
	progress func() orchestrate.Progress // Live counters while running
}

// JobManager tracks background jobs. One active job per target and category selection.
type JobManager struct {
	jobs     map[string]*Job
	mu       sync.RWMutex
	byTarget map[string]string // jobKey -> jobID for active jobs
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:     make(map[string]*Job),
		byTarget: make(map[string]string),
	}
}

func jobKey(targetURL string, categories []string) string {
	sorted := append([]string(nil), categories...)
	sort.Strings(sorted)
	return targetURL + "|" + strings.Join(sorted, ",")
}

// CreateJob registers a job. If an identical job is still active it is
// returned instead, with created=false.
func (m *JobManager) CreateJob(targetURL string, categories []string) (job *Job, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := jobKey(targetURL, categories)
	if existingID, exists := m.byTarget[key]; exists {
		if existing := m.jobs[existingID]; existing != nil && existing.Status.IsActive() {
			return existing.snapshot(), false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	job = &Job{
		ID:         uuid.New().String(),
		TargetURL:  targetURL,
		Categories: categories,
		Status:     JobStatusPending,
		StartedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}
	m.jobs[job.ID] = job
	m.byTarget[key] = job.ID
	return job.snapshot(), true
}

// snapshot copies the job so callers can read it without holding the lock.
// Live progress is folded in for running jobs.
func (j *Job) snapshot() *Job {
	cp := *j
	cp.Categories = append([]string(nil), j.Categories...)
	cp.Files = append([]string(nil), j.Files...)
	if j.progress != nil && j.Status.IsActive() {
		cp.applyProgress(j.progress())
	}
	return &cp
}

func (j *Job) applyProgress(p orchestrate.Progress) {
	j.CrawlState = string(p.State)
	j.Found = p.Found
	j.Queued = p.Queued
	j.Attempted = p.Attempted
	j.Succeeded = p.Succeeded
	j.Skipped = p.Skipped
}

// GetJob returns a copy of the job, or nil
func (m *JobManager) GetJob(jobID string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, exists := m.jobs[jobID]; exists {
		return job.snapshot()
	}
	return nil
}

// Start marks the job running and attaches its live progress source
func (m *JobManager) Start(jobID string, progress func() orchestrate.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, exists := m.jobs[jobID]; exists && job.Status == JobStatusPending {
		job.Status = JobStatusRunning
		job.progress = progress
	}
}

// Finish records the terminal status, final counters and saved files
func (m *JobManager) Finish(jobID string, status JobStatus, final orchestrate.Progress, files []string, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	if job.Status.IsActive() {
		job.Status = status
		job.CompletedAt = time.Now()
	}
	job.applyProgress(final)
	job.Files = files
	job.progress = nil
	if errorMsg != "" {
		job.ErrorMessage = errorMsg
	}
	delete(m.byTarget, jobKey(job.TargetURL, job.Categories))
}

// CancelJob cancels an active job
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists && job.Status.IsActive() {
		job.cancel()
		job.Status = JobStatusCancelled
		job.CompletedAt = time.Now()
		delete(m.byTarget, jobKey(job.TargetURL, job.Categories))
		return true
	}
	return false
}

// CancelAll cancels every active job
func (m *JobManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.Status.IsActive() {
			job.cancel()
			job.Status = JobStatusCancelled
			job.CompletedAt = time.Now()
		}
	}
	m.byTarget = make(map[string]string)
}

// ListJobs returns copies of all jobs, newest first
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.snapshot())
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.After(jobs[j].StartedAt) })
	return jobs
}

// GetContext returns the context a job's crawl runs under
func (m *JobManager) GetContext(jobID string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if job, exists := m.jobs[jobID]; exists {
		return job.ctx
	}
	return context.Background()
}
