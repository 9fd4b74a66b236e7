package domain

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	JobStatusOpen         JobStatus = "open"
	JobStatusInProgress   JobStatus = "in-progress"
	JobStatusPaidInEscrow JobStatus = "paid-in-escrow"
	JobStatusDisbursed    JobStatus = "disbursed"
	JobStatusCompleted    JobStatus = "completed"
	JobStatusCanceled     JobStatus = "canceled"
)

// jobTransitions is the only place job status edges are defined.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusOpen:         {JobStatusInProgress, JobStatusCanceled},
	JobStatusInProgress:   {JobStatusPaidInEscrow, JobStatusCanceled},
	JobStatusPaidInEscrow: {JobStatusDisbursed, JobStatusCanceled},
	JobStatusDisbursed:    {JobStatusCompleted, JobStatusPaidInEscrow},
}

func ParseJobStatus(raw string) (JobStatus, error) {
	switch s := JobStatus(raw); s {
	case JobStatusOpen, JobStatusInProgress, JobStatusPaidInEscrow, JobStatusDisbursed, JobStatusCompleted, JobStatusCanceled:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown job status %q", ErrInvalidInput, raw)
	}
}

type Job struct {
	JobID          string
	Title          string
	Description    string
	Location       string
	Budget         int64
	EmployerID     string
	CraftsmanID    string
	CraftsmanName  string
	CraftsmanPhone string
	Status         JobStatus
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func CanTransitionJob(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the job to next when the edge exists.
func (j *Job) TransitionTo(next JobStatus, at time.Time) error {
	if !CanTransitionJob(j.Status, next) {
		return fmt.Errorf("%w: job %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	j.Status = next
	j.UpdatedAt = at
	return nil
}

func (j Job) IsParty(subjectID string) bool {
	return subjectID != "" && (j.EmployerID == subjectID || j.CraftsmanID == subjectID)
}
