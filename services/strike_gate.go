package services

import (
	"fmt"
	"time"
)

// Strike gate policy. Accumulated strikes delay how soon after registration
// opens a user may register. The delay is always evaluated against the
// instant the user originally asked to register, never against the time the
// batch happens to run.
const (
	// SingleStrikeDelay applies to users carrying exactly one strike.
	SingleStrikeDelay = 3 * time.Hour
	// RepeatedStrikeDelay applies to users carrying two or more strikes.
	RepeatedStrikeDelay = 12 * time.Hour
)

// GateResult is the strike gate's verdict for one registration attempt.
type GateResult struct {
	Allowed   bool
	Reason    string
	AllowedAt time.Time
}

// CanRegister decides whether a user with the given accumulated strike
// count may register at requestedAt. Events without a registration start
// never gate on strikes.
func CanRegister(strikeCount int, registrationStart *time.Time, requestedAt time.Time) GateResult {
	if strikeCount <= 0 || registrationStart == nil {
		return GateResult{Allowed: true}
	}

	delay := SingleStrikeDelay
	if strikeCount >= 2 {
		delay = RepeatedStrikeDelay
	}

	allowedAt := registrationStart.Add(delay)
	if requestedAt.Before(allowedAt) {
		return GateResult{
			Allowed: false,
			Reason: fmt.Sprintf(
				"you have %d active strike(s), so you can first register %s after registration opens",
				strikeCount, formatDelay(delay),
			),
			AllowedAt: allowedAt,
		}
	}
	return GateResult{Allowed: true, AllowedAt: allowedAt}
}

func formatDelay(d time.Duration) string {
	return fmt.Sprintf("%d hours", int(d.Hours()))
}
