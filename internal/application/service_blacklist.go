package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/google/uuid"
)

func (s *Service) AddToBlacklist(ctx context.Context, actor Actor, input BlacklistInput) (domain.BlacklistEntry, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.BlacklistEntry{}, err
	}
	phone, err := domain.NormalizeMSISDN(input.Phone)
	if err != nil {
		return domain.BlacklistEntry{}, err
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return domain.BlacklistEntry{}, fmt.Errorf("%w: reason is required", domain.ErrInvalidInput)
	}
	entry := domain.BlacklistEntry{
		EntryID: uuid.NewString(),
		Name:    strings.TrimSpace(input.Name),
		MSISDN:  phone,
		Reason:  reason,
		AddedBy: actor.SubjectID,
		AddedAt: s.nowFn(),
	}
	if err := s.blacklist.Add(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.BlacklistEntry{}, fmt.Errorf("%w: phone number is already blacklisted", domain.ErrConflict)
		}
		return domain.BlacklistEntry{}, err
	}
	s.logger.InfoContext(ctx, "phone number blacklisted",
		"event", "blacklist_entry_added",
		"operation", "add_to_blacklist",
		"outcome", "success",
		"entry_id", entry.EntryID,
		"admin_id", actor.SubjectID,
		"request_id", actor.RequestID,
	)
	return entry, nil
}

func (s *Service) ListBlacklist(ctx context.Context, actor Actor, limit, offset int) ([]domain.BlacklistEntry, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	return s.blacklist.List(ctx, limit, offset)
}

func (s *Service) RemoveFromBlacklist(ctx context.Context, actor Actor, entryID string) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if strings.TrimSpace(entryID) == "" {
		return fmt.Errorf("%w: entry id is required", domain.ErrInvalidInput)
	}
	if err := s.blacklist.Delete(ctx, entryID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "phone number removed from blacklist",
		"event", "blacklist_entry_removed",
		"operation", "remove_from_blacklist",
		"outcome", "success",
		"entry_id", entryID,
		"admin_id", actor.SubjectID,
		"request_id", actor.RequestID,
	)
	return nil
}

// PublicBlacklist is readable without a token; numbers are masked to their last four digits.
func (s *Service) PublicBlacklist(ctx context.Context, limit, offset int) ([]domain.BlacklistEntry, error) {
	limit, offset = normalizePage(limit, offset)
	entries, err := s.blacklist.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].MSISDN = maskPhone(entries[i].MSISDN)
		entries[i].AddedBy = ""
	}
	return entries, nil
}

func (s *Service) ensureNotBlacklisted(ctx context.Context, msisdn string) error {
	if s.blacklist == nil {
		return nil
	}
	_, err := s.blacklist.GetByMSISDN(ctx, msisdn)
	switch {
	case err == nil:
		return domain.ErrBlacklisted
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

// PaymentHistory lists the employer's escrow payments, newest first, each with its job.
func (s *Service) PaymentHistory(ctx context.Context, actor Actor, limit, offset int) ([]domain.EscrowJob, error) {
	if err := requireRole(actor, domain.RoleEmployer); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	txs, err := s.transactions.List(ctx, ports.TransactionFilter{
		Type:       domain.TransactionTypeEscrow,
		EmployerID: actor.SubjectID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.EscrowJob, 0, len(txs))
	for _, tx := range txs {
		job, err := s.jobs.GetByID(ctx, tx.JobID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		out = append(out, domain.EscrowJob{Job: job, Transaction: tx})
	}
	return out, nil
}
