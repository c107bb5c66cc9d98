package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"registration-system/models"
)

func poolRequiring(groups ...string) models.PriorityPool {
	return models.PriorityPool{ID: "pool-1", EventID: "event-1", RequiredGroups: groups}
}

func TestIsPrioritized_PoolConjunction(t *testing.T) {
	pools := []models.PriorityPool{poolRequiring("board", "volunteers")}

	// Membership in only one of the two required groups never qualifies.
	assert.False(t, IsPrioritized([]string{"board"}, pools, 0, false))
	assert.False(t, IsPrioritized([]string{"volunteers"}, pools, 0, false))
	assert.True(t, IsPrioritized([]string{"board", "volunteers"}, pools, 0, false))
	assert.True(t, IsPrioritized([]string{"board", "volunteers", "social"}, pools, 0, false))
}

func TestIsPrioritized_AnyPoolSuffices(t *testing.T) {
	pools := []models.PriorityPool{
		poolRequiring("board", "volunteers"),
		poolRequiring("mentors"),
	}

	assert.True(t, IsPrioritized([]string{"mentors"}, pools, 0, false))
}

func TestIsPrioritized_NoPools(t *testing.T) {
	assert.False(t, IsPrioritized([]string{"board"}, nil, 0, true))
}

func TestIsPrioritized_EmptyRequirementNeverMatches(t *testing.T) {
	pools := []models.PriorityPool{poolRequiring()}

	assert.False(t, IsPrioritized([]string{"board"}, pools, 0, false))
}

func TestIsPrioritized_StrikeLimit(t *testing.T) {
	pools := []models.PriorityPool{poolRequiring("mentors")}
	groups := []string{"mentors"}

	// At the limit, priority is lost only when the event enforces strikes.
	assert.False(t, IsPrioritized(groups, pools, PriorityStrikeLimit, true))
	assert.True(t, IsPrioritized(groups, pools, PriorityStrikeLimit, false))

	// Below the limit, strikes never cost priority.
	assert.True(t, IsPrioritized(groups, pools, PriorityStrikeLimit-1, true))
}
