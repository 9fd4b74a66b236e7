package domain

import "time"

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Application is a craftsman's bid on an open job.
type Application struct {
	ApplicationID  string
	JobID          string
	CraftsmanID    string
	CraftsmanName  string
	CraftsmanPhone string
	CoverNote      string
	Status         ApplicationStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
