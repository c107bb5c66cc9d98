package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanRegister_NoStrikes(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	result := CanRegister(0, &start, start)

	assert.True(t, result.Allowed)
	assert.Empty(t, result.Reason)
}

func TestCanRegister_NilRegistrationStart(t *testing.T) {
	result := CanRegister(2, nil, time.Now())

	assert.True(t, result.Allowed)
}

func TestCanRegister_SingleStrike(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		requestedAt time.Time
		wantAllowed bool
	}{
		{"two hours after open is blocked", start.Add(2 * time.Hour), false},
		{"just before the delay ends is blocked", start.Add(3*time.Hour - time.Second), false},
		{"exactly at the delay boundary is allowed", start.Add(3 * time.Hour), true},
		{"four hours after open is allowed", start.Add(4 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanRegister(1, &start, tt.requestedAt)
			assert.Equal(t, tt.wantAllowed, result.Allowed)
			if !tt.wantAllowed {
				assert.NotEmpty(t, result.Reason)
				assert.Equal(t, start.Add(SingleStrikeDelay), result.AllowedAt)
			}
		})
	}
}

func TestCanRegister_RepeatedStrikes(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		strikes     int
		requestedAt time.Time
		wantAllowed bool
	}{
		{"two strikes blocked within twelve hours", 2, start.Add(11 * time.Hour), false},
		{"two strikes allowed after twelve hours", 2, start.Add(12 * time.Hour), true},
		{"five strikes use the same delay as two", 5, start.Add(13 * time.Hour), true},
		{"five strikes blocked within the delay", 5, start.Add(4 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanRegister(tt.strikes, &start, tt.requestedAt)
			assert.Equal(t, tt.wantAllowed, result.Allowed)
		})
	}
}

func TestCanRegister_UsesOriginalIntentInstant(t *testing.T) {
	// The gate must judge the instant the user asked to register, not the
	// time the batch runs. A delayed batch for a request made inside the
	// penalty window still blocks it.
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	requestedAt := start.Add(1 * time.Hour)

	result := CanRegister(1, &start, requestedAt)

	assert.False(t, result.Allowed)
}
