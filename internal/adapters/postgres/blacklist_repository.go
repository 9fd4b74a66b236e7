package postgres

import (
	"context"

	"github.com/craftsmart/escrow-service/internal/domain"
	"gorm.io/gorm"
)

type blacklistRepository struct {
	db *gorm.DB
}

func (r *blacklistRepository) Add(ctx context.Context, entry domain.BlacklistEntry) error {
	rec := toBlacklistModel(entry)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *blacklistRepository) GetByMSISDN(ctx context.Context, msisdn string) (domain.BlacklistEntry, error) {
	var rec blacklistModel
	if err := r.db.WithContext(ctx).Where("msisdn = ?", msisdn).Take(&rec).Error; err != nil {
		return domain.BlacklistEntry{}, notFound(err)
	}
	return toDomainBlacklistEntry(rec), nil
}

func (r *blacklistRepository) List(ctx context.Context, limit, offset int) ([]domain.BlacklistEntry, error) {
	var rows []blacklistModel
	query := r.db.WithContext(ctx).Model(&blacklistModel{}).Order("added_at DESC")
	if err := paged(query, limit, offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.BlacklistEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainBlacklistEntry(row))
	}
	return out, nil
}

func (r *blacklistRepository) Delete(ctx context.Context, entryID string) error {
	res := r.db.WithContext(ctx).Where("entry_id = ?", entryID).Delete(&blacklistModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
