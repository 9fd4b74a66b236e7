package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

type JobRepository struct{ s *store }

func (r *JobRepository) Create(_ context.Context, job domain.Job, events []ports.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.jobs[job.JobID]; ok {
		return domain.ErrConflict
	}
	if job.Version == 0 {
		job.Version = 1
	}
	if err := r.s.enqueueLocked(events); err != nil {
		return err
	}
	r.s.jobs[job.JobID] = job
	return nil
}

func (r *JobRepository) GetByID(_ context.Context, jobID string) (domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.jobs[strings.TrimSpace(jobID)]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return job, nil
}

func (r *JobRepository) List(_ context.Context, filter ports.JobFilter) ([]domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Job, 0)
	for _, job := range r.s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.EmployerID != "" && job.EmployerID != filter.EmployerID {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

type ApplicationRepository struct{ s *store }

func (r *ApplicationRepository) Create(_ context.Context, app domain.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.applications {
		if existing.JobID == app.JobID && existing.CraftsmanID == app.CraftsmanID {
			return domain.ErrConflict
		}
	}
	r.s.applications[app.ApplicationID] = app
	return nil
}

func (r *ApplicationRepository) GetByID(_ context.Context, applicationID string) (domain.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	app, ok := r.s.applications[strings.TrimSpace(applicationID)]
	if !ok {
		return domain.Application{}, domain.ErrNotFound
	}
	return app, nil
}

func (r *ApplicationRepository) GetByJobAndCraftsman(_ context.Context, jobID, craftsmanID string) (domain.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, app := range r.s.applications {
		if app.JobID == jobID && app.CraftsmanID == craftsmanID {
			return app, nil
		}
	}
	return domain.Application{}, domain.ErrNotFound
}

func (r *ApplicationRepository) ListByJob(_ context.Context, jobID string) ([]domain.Application, error) {
	return r.list(func(app domain.Application) bool { return app.JobID == jobID }), nil
}

func (r *ApplicationRepository) ListByCraftsman(_ context.Context, craftsmanID string) ([]domain.Application, error) {
	return r.list(func(app domain.Application) bool { return app.CraftsmanID == craftsmanID }), nil
}

func (r *ApplicationRepository) list(match func(domain.Application) bool) []domain.Application {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Application, 0)
	for _, app := range r.s.applications {
		if match(app) {
			out = append(out, app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *ApplicationRepository) UpdateStatus(_ context.Context, applicationID string, status domain.ApplicationStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	app, ok := r.s.applications[applicationID]
	if !ok {
		return domain.ErrNotFound
	}
	app.Status = status
	app.UpdatedAt = at
	r.s.applications[applicationID] = app
	return nil
}

type ReportRepository struct{ s *store }

func (r *ReportRepository) Create(_ context.Context, report domain.Report, events []ports.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reports[report.ReportID]; ok {
		return domain.ErrConflict
	}
	if err := r.s.enqueueLocked(events); err != nil {
		return err
	}
	r.s.reports[report.ReportID] = report
	return nil
}

func (r *ReportRepository) GetByID(_ context.Context, reportID string) (domain.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	report, ok := r.s.reports[reportID]
	if !ok {
		return domain.Report{}, domain.ErrNotFound
	}
	return report, nil
}

func (r *ReportRepository) List(_ context.Context, filter ports.ReportFilter) ([]domain.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Report, 0)
	for _, report := range r.s.reports {
		if filter.JobID != "" && report.JobID != filter.JobID {
			continue
		}
		if filter.Seen != nil && report.Seen != *filter.Seen {
			continue
		}
		out = append(out, report)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

func (r *ReportRepository) MarkSeen(_ context.Context, reportID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	report, ok := r.s.reports[reportID]
	if !ok {
		return domain.ErrNotFound
	}
	report.Seen = true
	r.s.reports[reportID] = report
	return nil
}
