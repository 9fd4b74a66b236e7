package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"gorm.io/gorm"
)

type jobRepository struct {
	db     *gorm.DB
	sealer phoneSealer
}

func (r *jobRepository) Create(ctx context.Context, job domain.Job, events []ports.OutboxEvent) error {
	if job.Version == 0 {
		job.Version = 1
	}
	rec, err := r.sealer.toJobModel(job)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return insertEvents(tx, events)
	})
}

func (r *jobRepository) GetByID(ctx context.Context, jobID string) (domain.Job, error) {
	var rec jobModel
	if err := r.db.WithContext(ctx).Where("job_id = ?", strings.TrimSpace(jobID)).Take(&rec).Error; err != nil {
		return domain.Job{}, notFound(err)
	}
	return r.sealer.toDomainJob(rec)
}

func (r *jobRepository) List(ctx context.Context, filter ports.JobFilter) ([]domain.Job, error) {
	query := r.db.WithContext(ctx).Model(&jobModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.EmployerID != "" {
		query = query.Where("employer_id = ?", filter.EmployerID)
	}
	var rows []jobModel
	if err := paged(query.Order("created_at DESC"), filter.Limit, filter.Offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Job, 0, len(rows))
	for _, row := range rows {
		job, err := r.sealer.toDomainJob(row)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

type applicationRepository struct {
	db     *gorm.DB
	sealer phoneSealer
}

func (r *applicationRepository) Create(ctx context.Context, app domain.Application) error {
	rec, err := r.sealer.toApplicationModel(app)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, applicationID string) (domain.Application, error) {
	var rec applicationModel
	if err := r.db.WithContext(ctx).Where("application_id = ?", strings.TrimSpace(applicationID)).Take(&rec).Error; err != nil {
		return domain.Application{}, notFound(err)
	}
	return r.sealer.toDomainApplication(rec)
}

func (r *applicationRepository) GetByJobAndCraftsman(ctx context.Context, jobID, craftsmanID string) (domain.Application, error) {
	var rec applicationModel
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Where("craftsman_id = ?", craftsmanID).
		Take(&rec).Error; err != nil {
		return domain.Application{}, notFound(err)
	}
	return r.sealer.toDomainApplication(rec)
}

func (r *applicationRepository) ListByJob(ctx context.Context, jobID string) ([]domain.Application, error) {
	return r.list(ctx, "job_id = ?", jobID)
}

func (r *applicationRepository) ListByCraftsman(ctx context.Context, craftsmanID string) ([]domain.Application, error) {
	return r.list(ctx, "craftsman_id = ?", craftsmanID)
}

func (r *applicationRepository) list(ctx context.Context, where string, arg string) ([]domain.Application, error) {
	var rows []applicationModel
	if err := r.db.WithContext(ctx).Where(where, arg).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Application, 0, len(rows))
	for _, row := range rows {
		app, err := r.sealer.toDomainApplication(row)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, nil
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, applicationID string, status domain.ApplicationStatus, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&applicationModel{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type reportRepository struct {
	db *gorm.DB
}

func (r *reportRepository) Create(ctx context.Context, report domain.Report, events []ports.OutboxEvent) error {
	rec := toReportModel(report)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return insertEvents(tx, events)
	})
}

func (r *reportRepository) GetByID(ctx context.Context, reportID string) (domain.Report, error) {
	var rec reportModel
	if err := r.db.WithContext(ctx).Where("report_id = ?", reportID).Take(&rec).Error; err != nil {
		return domain.Report{}, notFound(err)
	}
	return toDomainReport(rec), nil
}

func (r *reportRepository) List(ctx context.Context, filter ports.ReportFilter) ([]domain.Report, error) {
	query := r.db.WithContext(ctx).Model(&reportModel{})
	if filter.JobID != "" {
		query = query.Where("job_id = ?", filter.JobID)
	}
	if filter.Seen != nil {
		query = query.Where("seen = ?", *filter.Seen)
	}
	var rows []reportModel
	if err := paged(query.Order("created_at DESC"), filter.Limit, filter.Offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Report, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainReport(row))
	}
	return out, nil
}

func (r *reportRepository) MarkSeen(ctx context.Context, reportID string) error {
	res := r.db.WithContext(ctx).
		Model(&reportModel{}).
		Where("report_id = ?", reportID).
		Update("seen", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
