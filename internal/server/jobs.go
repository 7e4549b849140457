package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"dyscraper/pkg/douyin"
)

// JobStatus is the lifecycle state of an asynchronous harvest job.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is one harvest in flight or finished. Jobs are session-scoped:
// created on start, polled by ID, discarded on delete. This replaces the
// process-wide mutable globals the service grew out of.
type Job struct {
	ID         string               `json:"job_id"`
	ProfileURL string               `json:"profile_url"`
	Status     JobStatus            `json:"status"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Videos     []douyin.VideoRecord `json:"videos,omitempty"`
	Error      string               `json:"error,omitempty"`

	cancel context.CancelFunc
}

// JobRegistry tracks harvest jobs by ID.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobRegistry creates an empty registry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*Job)}
}

// Create registers a new running job and returns it with its cancel
// context.
func (r *JobRegistry) Create(profileURL string) (*Job, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:         uuid.NewString(),
		ProfileURL: profileURL,
		Status:     JobRunning,
		StartedAt:  time.Now().UTC(),
		cancel:     cancel,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return job, ctx
}

// Get returns a snapshot of the job, safe to serialize.
func (r *JobRegistry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Complete marks a job done with its harvested records.
func (r *JobRegistry) Complete(id string, videos []douyin.VideoRecord) {
	r.finish(id, JobDone, videos, "")
}

// Fail marks a job failed.
func (r *JobRegistry) Fail(id string, errMsg string) {
	r.finish(id, JobFailed, nil, errMsg)
}

func (r *JobRegistry) finish(id string, status JobStatus, videos []douyin.VideoRecord, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	job.Status = status
	job.FinishedAt = &now
	job.Videos = videos
	job.Error = errMsg
	// The runner is done; release the context so it does not leak until
	// a client deletes the job.
	job.cancel()
}

// Delete cancels a running job and removes it from the registry.
func (r *JobRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false
	}
	job.cancel()
	delete(r.jobs, id)
	return true
}
