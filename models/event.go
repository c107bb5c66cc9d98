package models

import (
	"time"
)

type Event struct {
	ID                      string     `db:"id" json:"id"`
	Name                    string     `db:"name" json:"name"`
	Capacity                *int       `db:"capacity" json:"capacity"` // nil means unlimited
	RequiresSigningUp       bool       `db:"requires_signing_up" json:"requires_signing_up"`
	IsRegistrationClosed    bool       `db:"is_registration_closed" json:"is_registration_closed"`
	RegistrationStart       *time.Time `db:"registration_start" json:"registration_start"`
	EnforcesPreviousStrikes bool       `db:"enforces_previous_strikes" json:"enforces_previous_strikes"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
}

// Unlimited reports whether the event has no seat cap.
func (e *Event) Unlimited() bool {
	return e.Capacity == nil
}

// Link returns the public URL for the event, used in notifications.
func (e *Event) Link(baseURL string) string {
	return baseURL + "/events/" + e.ID
}
