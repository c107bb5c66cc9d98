package services

import (
	"sort"

	"registration-system/models"
)

// regSnapshot is the in-memory arena of registration records for one
// resolution pass, indexed by user id. The engine mutates it as it commits
// writes so later iterations in the same pass observe current capacity and
// waitlist state without re-querying the store.
type regSnapshot struct {
	byUser map[string]*models.Registration
}

func newRegSnapshot(regs []models.Registration) *regSnapshot {
	snap := &regSnapshot{byUser: make(map[string]*models.Registration, len(regs))}
	for i := range regs {
		reg := regs[i]
		snap.byUser[reg.UserID] = &reg
	}
	return snap
}

func (s *regSnapshot) put(reg *models.Registration) {
	s.byUser[reg.UserID] = reg
}

func (s *regSnapshot) registeredCount() int {
	count := 0
	for _, reg := range s.byUser {
		if reg.Status == models.StatusRegistered {
			count++
		}
	}
	return count
}

// registeredOldestFirst returns registered rows ordered by creation time,
// the deterministic order the swap search walks.
func (s *regSnapshot) registeredOldestFirst() []*models.Registration {
	return s.sortedByStatus(models.StatusRegistered)
}

func (s *regSnapshot) waitlisted() []*models.Registration {
	return s.sortedByStatus(models.StatusWaitlisted)
}

func (s *regSnapshot) sortedByStatus(st models.RegistrationStatus) []*models.Registration {
	var regs []*models.Registration
	for _, reg := range s.byUser {
		if reg.Status == st {
			regs = append(regs, reg)
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].CreatedAt.Before(regs[j].CreatedAt)
		}
		return regs[i].UserID < regs[j].UserID
	})
	return regs
}
