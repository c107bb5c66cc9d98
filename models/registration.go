package models

import (
	"time"
)

type RegistrationStatus string

const (
	StatusPending    RegistrationStatus = "pending"
	StatusRegistered RegistrationStatus = "registered"
	StatusWaitlisted RegistrationStatus = "waitlisted"
	StatusCancelled  RegistrationStatus = "cancelled"
	StatusAttended   RegistrationStatus = "attended"
	StatusNoShow     RegistrationStatus = "no_show"
)

// Registration is one user's registration for one event. The composite key
// is (EventID, UserID). WaitlistPosition is non-nil iff the status is
// waitlisted.
type Registration struct {
	EventID          string             `db:"event_id" json:"event_id"`
	UserID           string             `db:"user_id" json:"user_id"`
	Status           RegistrationStatus `db:"status" json:"status"`
	WaitlistPosition *int               `db:"waitlist_position" json:"waitlist_position"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	AttendedAt       *time.Time         `db:"attended_at" json:"attended_at"`
}

// PendingIntent is a staged, not-yet-resolved request to join an event's
// registration list. It lives only in Redis; RequestedAt is the original
// sign-up instant and decides FIFO order during resolution.
type PendingIntent struct {
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
}
