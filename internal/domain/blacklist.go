package domain

import "time"

// BlacklistEntry bars a mobile-money number from applying to jobs and from paying into escrow.
type BlacklistEntry struct {
	EntryID string
	Name    string
	MSISDN  string
	Reason  string
	AddedBy string
	AddedAt time.Time
}
