package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"registration-system/models"
)

const intentKeyPrefix = "registration:"

// IntentStage stages not-yet-resolved registration intents in Redis as
// registration:{eventId}:{userId} -> RFC3339Nano instant. A staged intent
// is only removed after its registration row has been durably persisted,
// so a crash mid-pass leaves the intent to be retried, never lost.
type IntentStage struct {
	Redis *redis.Client
}

func NewIntentStage(redisClient *redis.Client) *IntentStage {
	return &IntentStage{Redis: redisClient}
}

func intentKey(eventID, userID string) string {
	return fmt.Sprintf("%s%s:%s", intentKeyPrefix, eventID, userID)
}

// Stage records a registration intent. Ids must not contain ':'.
func (s *IntentStage) Stage(ctx context.Context, eventID, userID string, requestedAt time.Time) error {
	value := requestedAt.UTC().Format(time.RFC3339Nano)
	if err := s.Redis.Set(ctx, intentKey(eventID, userID), value, 0).Err(); err != nil {
		return fmt.Errorf("stage intent: %w", err)
	}
	return nil
}

// Scan returns every pending intent for an event, sorted ascending by the
// original request instant (user id tiebreak). Entries whose value cannot
// be parsed are skipped.
func (s *IntentStage) Scan(ctx context.Context, eventID string) ([]models.PendingIntent, error) {
	prefix := intentKeyPrefix + eventID + ":"
	keys, err := s.Redis.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("scan intents: %w", err)
	}

	intents := make([]models.PendingIntent, 0, len(keys))
	for _, key := range keys {
		value, err := s.Redis.Get(ctx, key).Result()
		if err == redis.Nil {
			// Deleted between scan and read; another pass got there first.
			continue
		} else if err != nil {
			return nil, fmt.Errorf("read intent %s: %w", key, err)
		}

		requestedAt, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			continue
		}

		intents = append(intents, models.PendingIntent{
			EventID:     eventID,
			UserID:      strings.TrimPrefix(key, prefix),
			RequestedAt: requestedAt,
		})
	}

	sort.SliceStable(intents, func(i, j int) bool {
		if !intents[i].RequestedAt.Equal(intents[j].RequestedAt) {
			return intents[i].RequestedAt.Before(intents[j].RequestedAt)
		}
		return intents[i].UserID < intents[j].UserID
	})

	return intents, nil
}

// Clear discards one staged intent.
func (s *IntentStage) Clear(ctx context.Context, eventID, userID string) error {
	if err := s.Redis.Del(ctx, intentKey(eventID, userID)).Err(); err != nil {
		return fmt.Errorf("clear intent: %w", err)
	}
	return nil
}

// Events returns the distinct event ids that currently have staged
// intents.
func (s *IntentStage) Events(ctx context.Context) ([]string, error) {
	keys, err := s.Redis.Keys(ctx, intentKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("scan staged events: %w", err)
	}

	seen := make(map[string]bool)
	var eventIDs []string
	for _, key := range keys {
		parts := strings.Split(strings.TrimPrefix(key, intentKeyPrefix), ":")
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		if !seen[parts[0]] {
			seen[parts[0]] = true
			eventIDs = append(eventIDs, parts[0])
		}
	}
	sort.Strings(eventIDs)
	return eventIDs, nil
}
