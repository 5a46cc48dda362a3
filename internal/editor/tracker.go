package editor

import (
	"time"

	"lumina/internal/catalog"
	"lumina/internal/domain"
	"lumina/internal/poller"
)

// DefaultHistoryLimit is the number of completed jobs kept for display.
const DefaultHistoryLimit = 3

// Tracker holds the current job and a short history of completed ones,
// newest first. Every mutation names a job id and is ignored unless that
// job is current, so results of superseded jobs are dropped. Tracker is not
// safe for concurrent use; Session serialises access.
type Tracker struct {
	current *domain.TransformationJob
	history []domain.TransformationJob
	limit   int
	now     func() time.Time
}

// NewTracker returns an empty tracker. limit <= 0 uses DefaultHistoryLimit.
func NewTracker(limit int, now func() time.Time) *Tracker {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{limit: limit, now: now}
}

// Start makes job current in the queued state, superseding any other job.
func (t *Tracker) Start(job domain.TransformationJob) {
	ts := t.now()
	job.Status = domain.JobStatusQueued
	job.Progress = 0
	job.Attempts = 0
	job.ResultURL = ""
	if job.CreatedAt.IsZero() {
		job.CreatedAt = ts
	}
	job.UpdatedAt = ts
	t.current = &job
}

func (t *Tracker) active(id string) *domain.TransformationJob {
	if t.current == nil || t.current.ID != id || t.current.Status.Terminal() {
		return nil
	}
	return t.current
}

// MarkProcessing moves the job to processing once polling begins.
func (t *Tracker) MarkProcessing(id string) bool {
	job := t.active(id)
	if job == nil {
		return false
	}
	job.Status = domain.JobStatusProcessing
	if job.Progress < poller.StartProgress {
		job.Progress = poller.StartProgress
	}
	job.UpdatedAt = t.now()
	return true
}

// Progress records a poll attempt. Progress never decreases.
func (t *Tracker) Progress(id string, attempts int, progress float64) bool {
	job := t.active(id)
	if job == nil {
		return false
	}
	job.Status = domain.JobStatusProcessing
	if attempts > job.Attempts {
		job.Attempts = attempts
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	job.UpdatedAt = t.now()
	return true
}

// Complete finishes the job with resultURL and pushes a copy into history.
func (t *Tracker) Complete(id, resultURL string, timedOut bool) (domain.TransformationJob, bool) {
	job := t.active(id)
	if job == nil {
		return domain.TransformationJob{}, false
	}
	job.Status = domain.JobStatusCompleted
	job.Progress = 100
	job.TimedOut = timedOut
	job.ResultURL = resultURL
	job.UpdatedAt = t.now()

	done := *job
	t.history = append([]domain.TransformationJob{done}, t.history...)
	if len(t.history) > t.limit {
		t.history = t.history[:t.limit]
	}
	return done, true
}

// Fail marks the job as errored. Failed jobs are not kept in history.
func (t *Tracker) Fail(id string) bool {
	job := t.active(id)
	if job == nil {
		return false
	}
	job.Status = domain.JobStatusError
	job.UpdatedAt = t.now()
	return true
}

// Discard drops the current job without recording it, e.g. when the effect
// that started it was toggled off.
func (t *Tracker) Discard(id string) bool {
	if t.current == nil || t.current.ID != id {
		return false
	}
	t.current = nil
	return true
}

// Reset forgets the current job. History is kept.
func (t *Tracker) Reset() {
	t.current = nil
}

// Current returns a copy of the current job.
func (t *Tracker) Current() (domain.TransformationJob, bool) {
	if t.current == nil {
		return domain.TransformationJob{}, false
	}
	return *t.current, true
}

// Processing reports whether the current job is still running.
func (t *Tracker) Processing() bool {
	return t.current != nil && !t.current.Status.Terminal()
}

// History returns completed jobs, newest first.
func (t *Tracker) History() []domain.TransformationJob {
	out := make([]domain.TransformationJob, len(t.history))
	copy(out, t.history)
	return out
}

// JobView is the display projection of a job.
type JobView struct {
	ID        string           `json:"id"`
	EffectID  string           `json:"effect_id"`
	Label     string           `json:"label"`
	Status    domain.JobStatus `json:"status"`
	Progress  float64          `json:"progress"`
	Attempts  int              `json:"attempts"`
	TimedOut  bool             `json:"timed_out,omitempty"`
	ResultURL string           `json:"result_url,omitempty"`
	SetKey    string           `json:"set_key"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// View projects job for display, resolving the effect label from c.
func View(c *catalog.Catalog, job domain.TransformationJob) JobView {
	label := job.EffectID
	if c != nil {
		label = c.Label(job.EffectID)
	}
	return JobView{
		ID:        job.ID,
		EffectID:  job.EffectID,
		Label:     label,
		Status:    job.Status,
		Progress:  job.Progress,
		Attempts:  job.Attempts,
		TimedOut:  job.TimedOut,
		ResultURL: job.ResultURL,
		SetKey:    job.SetKey,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}
