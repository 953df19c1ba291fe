package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/res-scraper/pkg/models"
	"github.com/Sriram-PR/res-scraper/pkg/orchestrate"
)

func createTestJob(t *testing.T, jm *JobManager, targetURL string, categories ...string) *Job {
	t.Helper()
	job, created := jm.CreateJob(targetURL, categories)
	require.True(t, created)
	require.NotNil(t, job)
	return job
}

func TestNewJobManager(t *testing.T) {
	jm := NewJobManager()
	require.NotNil(t, jm)
	assert.Empty(t, jm.ListJobs())
}

func TestCreateJob(t *testing.T) {
	t.Run("new job fields correct", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "https://example.com", "Image", "Media")

		assert.NotEmpty(t, job.ID)
		assert.Equal(t, "https://example.com", job.TargetURL)
		assert.Equal(t, []string{"Image", "Media"}, job.Categories)
		assert.Equal(t, JobStatusPending, job.Status)
		assert.False(t, job.StartedAt.IsZero())
		assert.True(t, job.CompletedAt.IsZero())
		assert.Zero(t, job.Attempted)
		assert.Empty(t, job.ErrorMessage)
	})

	t.Run("duplicate active job returns same job", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm, "https://example.com", "Image")
		job2, created := jm.CreateJob("https://example.com", []string{"Image"})
		assert.False(t, created)
		assert.Equal(t, job1.ID, job2.ID)
	})

	t.Run("category order does not matter", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm, "https://example.com", "Image", "Media")
		job2, created := jm.CreateJob("https://example.com", []string{"Media", "Image"})
		assert.False(t, created)
		assert.Equal(t, job1.ID, job2.ID)
	})

	t.Run("different categories independent", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm, "https://example.com", "Image")
		job2 := createTestJob(t, jm, "https://example.com", "Document")
		assert.NotEqual(t, job1.ID, job2.ID)
	})

	t.Run("new job allowed after finish", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm, "https://example.com", "Image")
		jm.Finish(job1.ID, JobStatusCompleted, orchestrate.Progress{}, nil, "")

		job2 := createTestJob(t, jm, "https://example.com", "Image")
		assert.NotEqual(t, job1.ID, job2.ID)
	})
}

func TestGetJob(t *testing.T) {
	jm := NewJobManager()

	t.Run("exists returns job", func(t *testing.T) {
		job := createTestJob(t, jm, "https://a.example", "Image")
		got := jm.GetJob(job.ID)
		require.NotNil(t, got)
		assert.Equal(t, job.ID, got.ID)
	})

	t.Run("missing returns nil", func(t *testing.T) {
		assert.Nil(t, jm.GetJob("nonexistent-id"))
	})

	t.Run("returned copy is detached", func(t *testing.T) {
		job := createTestJob(t, jm, "https://b.example", "Image")
		got := jm.GetJob(job.ID)
		got.Categories[0] = "mutated"
		assert.Equal(t, "Image", jm.GetJob(job.ID).Categories[0])
	})
}

func TestStartAndLiveProgress(t *testing.T) {
	jm := NewJobManager()
	job := createTestJob(t, jm, "https://example.com", "Image")

	live := orchestrate.Progress{State: models.StateDownloading, Found: 5, Queued: 3, Attempted: 2, Succeeded: 1}
	jm.Start(job.ID, func() orchestrate.Progress { return live })

	got := jm.GetJob(job.ID)
	assert.Equal(t, JobStatusRunning, got.Status)
	assert.Equal(t, "downloading", got.CrawlState)
	assert.Equal(t, int64(5), got.Found)
	assert.Equal(t, int64(3), got.Queued)
	assert.Equal(t, int64(2), got.Attempted)
	assert.Equal(t, int64(1), got.Succeeded)

	// Start only applies to pending jobs
	jm.Start(job.ID, func() orchestrate.Progress { return orchestrate.Progress{} })
	assert.Equal(t, int64(5), jm.GetJob(job.ID).Found)
}

func TestFinish(t *testing.T) {
	t.Run("records final counters and files", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "https://example.com", "Image")
		jm.Start(job.ID, nil)

		final := orchestrate.Progress{State: models.StateDone, Found: 4, Queued: 2, Attempted: 2, Succeeded: 1, Skipped: 1}
		jm.Finish(job.ID, JobStatusCompleted, final, []string{"out/Image/a.png"}, "")

		got := jm.GetJob(job.ID)
		assert.Equal(t, JobStatusCompleted, got.Status)
		assert.False(t, got.CompletedAt.IsZero())
		assert.Equal(t, "done", got.CrawlState)
		assert.Equal(t, int64(1), got.Succeeded)
		assert.Equal(t, int64(1), got.Skipped)
		assert.Equal(t, []string{"out/Image/a.png"}, got.Files)
	})

	t.Run("failed sets ErrorMessage", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "https://example.com", "Image")
		jm.Finish(job.ID, JobStatusFailed, orchestrate.Progress{State: models.StateFetchFailed}, nil, "failed to fetch page")

		got := jm.GetJob(job.ID)
		assert.Equal(t, JobStatusFailed, got.Status)
		assert.Equal(t, "failed to fetch page", got.ErrorMessage)
		assert.Equal(t, "fetch_failed", got.CrawlState)
	})

	t.Run("cancelled job keeps cancelled status", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "https://example.com", "Image")
		require.True(t, jm.CancelJob(job.ID))
		jm.Finish(job.ID, JobStatusCompleted, orchestrate.Progress{}, nil, "")
		assert.Equal(t, JobStatusCancelled, jm.GetJob(job.ID).Status)
	})

	t.Run("nonexistent is no-op", func(t *testing.T) {
		jm := NewJobManager()
		jm.Finish("fake-id", JobStatusCompleted, orchestrate.Progress{}, nil, "")
	})
}

func TestCancelJob(t *testing.T) {
	t.Run("running job cancelled", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "https://example.com", "Image")
		jm.Start(job.ID, nil)

		assert.True(t, jm.CancelJob(job.ID))

		got := jm.GetJob(job.ID)
		assert.Equal(t, JobStatusCancelled, got.Status)
		assert.False(t, got.CompletedAt.IsZero())
		assert.Error(t, jm.GetContext(job.ID).Err())
	})

	t.Run("finished job not cancellable", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "https://example.com", "Image")
		jm.Finish(job.ID, JobStatusCompleted, orchestrate.Progress{}, nil, "")
		assert.False(t, jm.CancelJob(job.ID))
	})

	t.Run("nonexistent returns false", func(t *testing.T) {
		assert.False(t, NewJobManager().CancelJob("nope"))
	})
}

func TestCancelAll(t *testing.T) {
	jm := NewJobManager()
	job1 := createTestJob(t, jm, "https://a.example", "Image")
	job2 := createTestJob(t, jm, "https://b.example", "Image")
	job3 := createTestJob(t, jm, "https://c.example", "Image")
	jm.Finish(job3.ID, JobStatusCompleted, orchestrate.Progress{}, nil, "")

	jm.CancelAll()

	assert.Equal(t, JobStatusCancelled, jm.GetJob(job1.ID).Status)
	assert.Equal(t, JobStatusCancelled, jm.GetJob(job2.ID).Status)
	assert.Equal(t, JobStatusCompleted, jm.GetJob(job3.ID).Status)

	newJob, created := jm.CreateJob("https://a.example", []string{"Image"})
	assert.True(t, created)
	assert.NotEqual(t, job1.ID, newJob.ID)
}

func TestListJobs(t *testing.T) {
	jm := NewJobManager()
	job1 := createTestJob(t, jm, "https://a.example", "Image")
	job2 := createTestJob(t, jm, "https://b.example", "Image")
	job3 := createTestJob(t, jm, "https://c.example", "Image")

	jobs := jm.ListJobs()
	assert.Len(t, jobs, 3)

	ids := make(map[string]bool)
	for _, j := range jobs {
		ids[j.ID] = true
	}
	assert.True(t, ids[job1.ID])
	assert.True(t, ids[job2.ID])
	assert.True(t, ids[job3.ID])
}

func TestGetContext(t *testing.T) {
	t.Run("valid job returns live context", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "https://example.com", "Image")
		assert.NoError(t, jm.GetContext(job.ID).Err())
	})

	t.Run("nonexistent returns background context", func(t *testing.T) {
		assert.Equal(t, context.Background(), NewJobManager().GetContext("nope"))
	})
}
