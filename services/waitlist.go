package services

import (
	"sort"
	"time"
)

// WaitlistEntry is one waitlisted registration with its prioritization
// outcome already evaluated.
type WaitlistEntry struct {
	UserID      string
	RequestedAt time.Time
	Prioritized bool
}

// RankWaitlist computes 1-based contiguous waitlist positions. Prioritized
// users rank before non-prioritized ones; within each tier earlier
// requesters rank first. Ties on the instant break on user id so repeated
// runs produce identical positions.
func RankWaitlist(entries []WaitlistEntry) map[string]int {
	ranked := make([]WaitlistEntry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Prioritized != ranked[j].Prioritized {
			return ranked[i].Prioritized
		}
		if !ranked[i].RequestedAt.Equal(ranked[j].RequestedAt) {
			return ranked[i].RequestedAt.Before(ranked[j].RequestedAt)
		}
		return ranked[i].UserID < ranked[j].UserID
	})

	positions := make(map[string]int, len(ranked))
	for i, entry := range ranked {
		positions[entry.UserID] = i + 1
	}
	return positions
}
