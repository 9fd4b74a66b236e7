package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/google/uuid"
)

func (s *Service) FileReport(ctx context.Context, actor Actor, input FileReportInput) (domain.Report, error) {
	if err := requireRole(actor, domain.RoleEmployer, domain.RoleCraftsman); err != nil {
		return domain.Report{}, err
	}
	subject := strings.TrimSpace(input.Subject)
	message := strings.TrimSpace(input.Message)
	if subject == "" || message == "" {
		return domain.Report{}, fmt.Errorf("%w: subject and message are required", domain.ErrInvalidInput)
	}
	job, err := s.jobs.GetByID(ctx, input.JobID)
	if err != nil {
		return domain.Report{}, err
	}
	switch actor.Role {
	case domain.RoleEmployer:
		if job.EmployerID != actor.SubjectID {
			return domain.Report{}, domain.ErrForbidden
		}
	case domain.RoleCraftsman:
		if job.CraftsmanID != actor.SubjectID {
			return domain.Report{}, domain.ErrForbidden
		}
	}

	now := s.nowFn()
	report := domain.Report{
		ReportID:    uuid.NewString(),
		JobID:       job.JobID,
		FromRole:    actor.Role,
		EmployerID:  job.EmployerID,
		CraftsmanID: job.CraftsmanID,
		Subject:     subject,
		Message:     message,
		CreatedAt:   now,
	}
	event, err := s.newEvent(domain.EventReportFiled, actor.RequestID, job.JobID, contracts.ReportFiledPayload{
		ReportID: report.ReportID,
		JobID:    report.JobID,
		FromRole: report.FromRole,
		FiledAt:  now.Format(time.RFC3339),
	}, now)
	if err != nil {
		return domain.Report{}, err
	}
	if err := s.reports.Create(ctx, report, []ports.OutboxEvent{event}); err != nil {
		return domain.Report{}, err
	}
	return report, nil
}

func (s *Service) ListReports(ctx context.Context, actor Actor, input ListReportsInput) ([]domain.Report, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	limit, offset := normalizePage(input.Limit, input.Offset)
	return s.reports.List(ctx, ports.ReportFilter{
		JobID:  strings.TrimSpace(input.JobID),
		Seen:   input.Seen,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Service) MarkReportSeen(ctx context.Context, actor Actor, reportID string) (domain.Report, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Report{}, err
	}
	if err := s.reports.MarkSeen(ctx, reportID); err != nil {
		return domain.Report{}, err
	}
	return s.reports.GetByID(ctx, reportID)
}
