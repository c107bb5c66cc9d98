package models

// PriorityPool grants admission preference for one event. A user qualifies
// only when they belong to every group in RequiredGroups.
type PriorityPool struct {
	ID             string   `db:"id" json:"id"`
	EventID        string   `db:"event_id" json:"event_id"`
	PriorityScore  int      `db:"priority_score" json:"priority_score"`
	RequiredGroups []string `db:"-" json:"required_groups"`
}

// Matches reports whether the given group memberships satisfy the pool.
// An empty requirement list never matches.
func (p *PriorityPool) Matches(userGroups []string) bool {
	if len(p.RequiredGroups) == 0 {
		return false
	}
	member := make(map[string]bool, len(userGroups))
	for _, g := range userGroups {
		member[g] = true
	}
	for _, required := range p.RequiredGroups {
		if !member[required] {
			return false
		}
	}
	return true
}

// Strike is one penalty entry for a user. The strike gate consumes the sum
// of Count across all of a user's strikes.
type Strike struct {
	ID      string `db:"id" json:"id"`
	EventID string `db:"event_id" json:"event_id"`
	UserID  string `db:"user_id" json:"user_id"`
	Count   int    `db:"count" json:"count"`
	Reason  string `db:"reason" json:"reason"`
}
