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

func (s *Service) Apply(ctx context.Context, actor Actor, input ApplyInput) (domain.Application, error) {
	if err := requireRole(actor, domain.RoleCraftsman); err != nil {
		return domain.Application{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = strings.TrimSpace(actor.Name)
	}
	if name == "" {
		return domain.Application{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	phone, err := domain.NormalizeMSISDN(input.Phone)
	if err != nil {
		return domain.Application{}, err
	}
	if err := s.ensureNotBlacklisted(ctx, phone); err != nil {
		return domain.Application{}, err
	}

	job, err := s.jobs.GetByID(ctx, input.JobID)
	if err != nil {
		return domain.Application{}, err
	}
	if job.Status != domain.JobStatusOpen {
		return domain.Application{}, fmt.Errorf("%w: job is not open for applications", domain.ErrConflict)
	}
	if _, err := s.applications.GetByJobAndCraftsman(ctx, job.JobID, actor.SubjectID); err == nil {
		return domain.Application{}, fmt.Errorf("%w: already applied to this job", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Application{}, err
	}

	now := s.nowFn()
	app := domain.Application{
		ApplicationID:  uuid.NewString(),
		JobID:          job.JobID,
		CraftsmanID:    actor.SubjectID,
		CraftsmanName:  name,
		CraftsmanPhone: phone,
		CoverNote:      strings.TrimSpace(input.CoverNote),
		Status:         domain.ApplicationStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		return domain.Application{}, err
	}
	return app, nil
}

// AcceptApplication assigns the craftsman and moves the job to in-progress.
func (s *Service) AcceptApplication(ctx context.Context, actor Actor, applicationID string) (domain.Application, domain.Job, error) {
	if err := requireRole(actor, domain.RoleEmployer); err != nil {
		return domain.Application{}, domain.Job{}, err
	}
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return domain.Application{}, domain.Job{}, err
	}
	job, err := s.jobs.GetByID(ctx, app.JobID)
	if err != nil {
		return domain.Application{}, domain.Job{}, err
	}
	if job.EmployerID != actor.SubjectID {
		return domain.Application{}, domain.Job{}, domain.ErrForbidden
	}
	if app.Status != domain.ApplicationStatusPending {
		return domain.Application{}, domain.Job{}, fmt.Errorf("%w: application is %s", domain.ErrConflict, app.Status)
	}

	now := s.nowFn()
	if err := job.TransitionTo(domain.JobStatusInProgress, now); err != nil {
		return domain.Application{}, domain.Job{}, err
	}
	job.CraftsmanID = app.CraftsmanID
	job.CraftsmanName = app.CraftsmanName
	job.CraftsmanPhone = app.CraftsmanPhone

	event, err := s.newEvent(domain.EventApplicationAccepted, actor.RequestID, job.JobID, contracts.ApplicationAcceptedPayload{
		JobID:         job.JobID,
		ApplicationID: app.ApplicationID,
		CraftsmanID:   app.CraftsmanID,
		AcceptedAt:    now.Format(time.RFC3339),
	}, now)
	if err != nil {
		return domain.Application{}, domain.Job{}, err
	}
	err = s.transitions.Commit(ctx, ports.Transition{
		Job: &job,
		Decision: &ports.ApplicationDecision{
			JobID:                 job.JobID,
			AcceptedApplicationID: app.ApplicationID,
			DecidedAt:             now,
		},
		Events: []ports.OutboxEvent{event},
	})
	if err != nil {
		return domain.Application{}, domain.Job{}, err
	}

	app.Status = domain.ApplicationStatusAccepted
	app.UpdatedAt = now
	return app, job, nil
}

func (s *Service) RejectApplication(ctx context.Context, actor Actor, applicationID string) (domain.Application, error) {
	if err := requireRole(actor, domain.RoleEmployer); err != nil {
		return domain.Application{}, err
	}
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return domain.Application{}, err
	}
	job, err := s.jobs.GetByID(ctx, app.JobID)
	if err != nil {
		return domain.Application{}, err
	}
	if job.EmployerID != actor.SubjectID {
		return domain.Application{}, domain.ErrForbidden
	}
	if app.Status != domain.ApplicationStatusPending {
		return domain.Application{}, fmt.Errorf("%w: application is %s", domain.ErrConflict, app.Status)
	}

	now := s.nowFn()
	if err := s.applications.UpdateStatus(ctx, app.ApplicationID, domain.ApplicationStatusRejected, now); err != nil {
		return domain.Application{}, err
	}
	app.Status = domain.ApplicationStatusRejected
	app.UpdatedAt = now
	return app, nil
}

func (s *Service) ListApplications(ctx context.Context, actor Actor, jobID string) ([]domain.Application, error) {
	if err := requireRole(actor, domain.RoleEmployer, domain.RoleAdmin); err != nil {
		return nil, err
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && job.EmployerID != actor.SubjectID {
		return nil, domain.ErrForbidden
	}
	return s.applications.ListByJob(ctx, jobID)
}

func (s *Service) ListMyApplications(ctx context.Context, actor Actor) ([]domain.Application, error) {
	if err := requireRole(actor, domain.RoleCraftsman); err != nil {
		return nil, err
	}
	return s.applications.ListByCraftsman(ctx, actor.SubjectID)
}
