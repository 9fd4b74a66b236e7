package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/google/uuid"
)

func (s *Service) PostJob(ctx context.Context, actor Actor, input PostJobInput) (domain.Job, error) {
	if err := requireRole(actor, domain.RoleEmployer); err != nil {
		return domain.Job{}, err
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	location := strings.TrimSpace(input.Location)
	if title == "" || description == "" || location == "" {
		return domain.Job{}, fmt.Errorf("%w: title, description and location are required", domain.ErrInvalidInput)
	}
	if input.Budget <= 0 {
		return domain.Job{}, fmt.Errorf("%w: budget must be positive", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	job := domain.Job{
		JobID:       uuid.NewString(),
		Title:       title,
		Description: description,
		Location:    location,
		Budget:      input.Budget,
		EmployerID:  actor.SubjectID,
		Status:      domain.JobStatusOpen,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	event, err := s.newEvent(domain.EventJobPosted, actor.RequestID, job.JobID, contracts.JobPostedPayload{
		JobID:      job.JobID,
		EmployerID: job.EmployerID,
		Budget:     job.Budget,
		PostedAt:   now.Format(time.RFC3339),
	}, now)
	if err != nil {
		return domain.Job{}, err
	}
	if err := s.jobs.Create(ctx, job, []ports.OutboxEvent{event}); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, actor Actor, jobID string) (domain.Job, error) {
	if err := requireActor(actor); err != nil {
		return domain.Job{}, err
	}
	if strings.TrimSpace(jobID) == "" {
		return domain.Job{}, domain.ErrInvalidInput
	}
	return s.jobs.GetByID(ctx, jobID)
}

func (s *Service) ListJobs(ctx context.Context, actor Actor, input ListJobsInput) ([]domain.Job, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	filter := ports.JobFilter{EmployerID: strings.TrimSpace(input.EmployerID)}
	if input.Status != "" {
		status, err := domain.ParseJobStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	filter.Limit, filter.Offset = normalizePage(input.Limit, input.Offset)
	return s.jobs.List(ctx, filter)
}

// CancelJob cancels a job that holds no money. Funded jobs go through RefundEscrow.
func (s *Service) CancelJob(ctx context.Context, actor Actor, jobID string) (domain.Job, error) {
	if err := requireRole(actor, domain.RoleEmployer, domain.RoleAdmin); err != nil {
		return domain.Job{}, err
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return domain.Job{}, err
	}
	if actor.Role != domain.RoleAdmin && job.EmployerID != actor.SubjectID {
		return domain.Job{}, domain.ErrForbidden
	}
	if job.Status != domain.JobStatusOpen && job.Status != domain.JobStatusInProgress {
		return domain.Job{}, fmt.Errorf("%w: job in status %s cannot be canceled", domain.ErrInvalidTransition, job.Status)
	}

	tx, err := s.transactions.GetEscrowByJob(ctx, jobID)
	switch {
	case err == nil && tx.Status == domain.TransactionStatusPending:
		return domain.Job{}, fmt.Errorf("%w: a payment for this job is pending", domain.ErrConflict)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return domain.Job{}, err
	}

	now := s.nowFn()
	if err := job.TransitionTo(domain.JobStatusCanceled, now); err != nil {
		return domain.Job{}, err
	}
	event, err := s.newEvent(domain.EventJobCanceled, actor.RequestID, job.JobID, contracts.JobCanceledPayload{
		JobID:      job.JobID,
		CanceledBy: actor.SubjectID,
		CanceledAt: now.Format(time.RFC3339),
	}, now)
	if err != nil {
		return domain.Job{}, err
	}
	if err := s.transitions.Commit(ctx, ports.Transition{Job: &job, Events: []ports.OutboxEvent{event}}); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}
