package memory

import (
	"context"
	"sort"

	"github.com/craftsmart/escrow-service/internal/domain"
)

// BlacklistRepository keys entries by id; MSISDN uniqueness is checked on insert.
type BlacklistRepository struct{ s *store }

func (r *BlacklistRepository) Add(_ context.Context, entry domain.BlacklistEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.blacklist {
		if existing.EntryID == entry.EntryID || existing.MSISDN == entry.MSISDN {
			return domain.ErrConflict
		}
	}
	r.s.blacklist[entry.EntryID] = entry
	return nil
}

func (r *BlacklistRepository) GetByMSISDN(_ context.Context, msisdn string) (domain.BlacklistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, entry := range r.s.blacklist {
		if entry.MSISDN == msisdn {
			return entry, nil
		}
	}
	return domain.BlacklistEntry{}, domain.ErrNotFound
}

func (r *BlacklistRepository) List(_ context.Context, limit, offset int) ([]domain.BlacklistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.BlacklistEntry, 0, len(r.s.blacklist))
	for _, entry := range r.s.blacklist {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return page(out, limit, offset), nil
}

func (r *BlacklistRepository) Delete(_ context.Context, entryID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.blacklist[entryID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.blacklist, entryID)
	return nil
}
