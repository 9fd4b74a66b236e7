package domain

import "time"

const (
	RoleEmployer  = "employer"
	RoleCraftsman = "craftsman"
	RoleAdmin     = "admin"
)

func IsKnownRole(role string) bool {
	switch role {
	case RoleEmployer, RoleCraftsman, RoleAdmin:
		return true
	default:
		return false
	}
}

// Report is a dispute raised by one party of a job against the other.
type Report struct {
	ReportID    string
	JobID       string
	FromRole    string
	EmployerID  string
	CraftsmanID string
	Subject     string
	Message     string
	Seen        bool
	CreatedAt   time.Time
}
