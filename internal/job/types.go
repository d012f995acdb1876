package job

import (
	"context"
	"time"

	uuid "github.com/google/uuid"
)

type Kind string

const (
	KindTranscribe Kind = "transcribe"
)

func (k Kind) Valid() bool {
	return k == KindTranscribe
}

type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusTranscribing Status = "transcribing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// stage orders the non-failed statuses; failed is reachable from any active stage.
var stage = map[Status]int{
	StatusPending:      0,
	StatusDownloading:  1,
	StatusTranscribing: 2,
	StatusCompleted:    3,
}

func (s Status) Valid() bool {
	_, ok := stage[s]
	return ok || s == StatusFailed
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a job may move from one status to another.
// Jobs advance one stage at a time and may fail from any non-terminal status.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return stage[to] == stage[from]+1
}

type Job struct {
	ID          uuid.UUID  `json:"id"`
	TargetID    string     `json:"targetId"`
	Kind        Kind       `json:"kind"`
	Status      Status     `json:"status"`
	ErrorDetail *string    `json:"errorDetail"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (j *Job) Active() bool {
	return !j.Status.Terminal()
}

// Store persists job records. Implementations return ErrJobNotFound for
// unknown ids and ErrInvalidTransition when updating a terminal job.
type Store interface {
	CreateJob(ctx context.Context, targetID string, kind Kind) (*Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	// GetActiveJob returns the most recent non-terminal job, or nil when none exists.
	GetActiveJob(ctx context.Context, targetID string, kind Kind) (*Job, error)
	// UpdateJobStatus sets completedAt for terminal statuses. detail is stored only for failed.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status Status, detail string) error
}

// MaxErrorDetail bounds the stored failure message.
const MaxErrorDetail = 1000

// ErrorDetailFor returns the errorDetail value persisted alongside status:
// nil unless the job failed, never empty for failed jobs.
func ErrorDetailFor(status Status, detail string) *string {
	if status != StatusFailed {
		return nil
	}
	if detail == "" {
		detail = "unknown error"
	}
	if r := []rune(detail); len(r) > MaxErrorDetail {
		detail = string(r[:MaxErrorDetail])
	}
	return &detail
}
