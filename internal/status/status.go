package status

import "errors"

var (
	ErrEventNotFound        = errors.New("event: event not found")
	ErrRegistrationNotFound = errors.New("registration: registration not found")
	ErrSignUpClosed         = errors.New("registration: event is not open for sign up")
	ErrAlreadySignedUp      = errors.New("registration: user already signed up for event")
	ErrLockNotAcquired      = errors.New("lock: resolution already running for event")
)
