package services

import (
	"registration-system/models"
)

// PriorityStrikeLimit is the strike count at which a user loses priority
// pool eligibility on events that enforce previous strikes. Independent of
// the strike gate delays.
const PriorityStrikeLimit = 3

// IsPrioritized reports whether a user qualifies for any of the event's
// priority pools. A pool requires membership in every one of its groups.
// When the event enforces previous strikes, a user at or above
// PriorityStrikeLimit is never prioritized, even on a pool match.
func IsPrioritized(userGroups []string, pools []models.PriorityPool, strikeCount int, enforcesPreviousStrikes bool) bool {
	if enforcesPreviousStrikes && strikeCount >= PriorityStrikeLimit {
		return false
	}
	for i := range pools {
		if pools[i].Matches(userGroups) {
			return true
		}
	}
	return false
}
