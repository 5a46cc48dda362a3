package domain

import "time"

// JobStatus enumerates transformation job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// TransformationJob tracks one request/poll cycle for a transform URL to become ready.
type TransformationJob struct {
	ID         string
	EffectID   string
	SetKey     string
	RequestURL string
	Status     JobStatus
	Progress   float64
	Attempts   int
	TimedOut   bool
	ResultURL  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
