package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentStage_Stage(t *testing.T) {
	db, mock := redismock.NewClientMock()
	stage := NewIntentStage(db)

	requestedAt := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	mock.ExpectSet("registration:event-1:user-1", "2025-03-01T12:00:00.123456789Z", 0).SetVal("OK")

	err := stage.Stage(context.Background(), "event-1", "user-1", requestedAt)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntentStage_StageRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	stage := NewIntentStage(db)

	mock.ExpectSet("registration:event-1:user-1", "2025-03-01T12:00:00Z", 0).
		SetErr(errors.New("connection refused"))

	err := stage.Stage(context.Background(), "event-1", "user-1",
		time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntentStage_ScanSortsByRequestInstant(t *testing.T) {
	db, mock := redismock.NewClientMock()
	stage := NewIntentStage(db)

	mock.ExpectKeys("registration:event-1:*").SetVal([]string{
		"registration:event-1:late",
		"registration:event-1:early",
	})
	mock.ExpectGet("registration:event-1:late").SetVal("2025-03-01T12:00:05Z")
	mock.ExpectGet("registration:event-1:early").SetVal("2025-03-01T12:00:01Z")

	intents, err := stage.Scan(context.Background(), "event-1")

	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.Equal(t, "early", intents[0].UserID)
	assert.Equal(t, "late", intents[1].UserID)
	assert.Equal(t, "event-1", intents[0].EventID)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC), intents[0].RequestedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntentStage_ScanTiesBreakOnUserID(t *testing.T) {
	db, mock := redismock.NewClientMock()
	stage := NewIntentStage(db)

	mock.ExpectKeys("registration:event-1:*").SetVal([]string{
		"registration:event-1:zed",
		"registration:event-1:amy",
	})
	mock.ExpectGet("registration:event-1:zed").SetVal("2025-03-01T12:00:00Z")
	mock.ExpectGet("registration:event-1:amy").SetVal("2025-03-01T12:00:00Z")

	intents, err := stage.Scan(context.Background(), "event-1")

	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.Equal(t, "amy", intents[0].UserID)
	assert.Equal(t, "zed", intents[1].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntentStage_ScanSkipsVanishedAndBadEntries(t *testing.T) {
	db, mock := redismock.NewClientMock()
	stage := NewIntentStage(db)

	mock.ExpectKeys("registration:event-1:*").SetVal([]string{
		"registration:event-1:gone",
		"registration:event-1:garbled",
		"registration:event-1:ok",
	})
	mock.ExpectGet("registration:event-1:gone").RedisNil()
	mock.ExpectGet("registration:event-1:garbled").SetVal("not-a-timestamp")
	mock.ExpectGet("registration:event-1:ok").SetVal("2025-03-01T12:00:00Z")

	intents, err := stage.Scan(context.Background(), "event-1")

	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "ok", intents[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntentStage_ScanEmpty(t *testing.T) {
	db, mock := redismock.NewClientMock()
	stage := NewIntentStage(db)

	mock.ExpectKeys("registration:event-1:*").SetVal([]string{})

	intents, err := stage.Scan(context.Background(), "event-1")

	require.NoError(t, err)
	assert.Empty(t, intents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntentStage_Clear(t *testing.T) {
	db, mock := redismock.NewClientMock()
	stage := NewIntentStage(db)

	mock.ExpectDel("registration:event-1:user-1").SetVal(1)

	err := stage.Clear(context.Background(), "event-1", "user-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntentStage_EventsDeduplicatesAndSorts(t *testing.T) {
	db, mock := redismock.NewClientMock()
	stage := NewIntentStage(db)

	mock.ExpectKeys("registration:*").SetVal([]string{
		"registration:event-b:user-1",
		"registration:event-a:user-2",
		"registration:event-b:user-3",
		"registration:malformed",
	})

	eventIDs, err := stage.Events(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"event-a", "event-b"}, eventIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
