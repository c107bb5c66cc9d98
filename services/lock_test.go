package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registration-system/internal/status"
)

func TestEventLocker_Acquire(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewEventLocker(db, 30*time.Second)

	mock.Regexp().ExpectSetNX("lock:resolve:event-1", `^[0-9a-f-]{36}$`, 30*time.Second).SetVal(true)

	token, err := locker.Acquire(context.Background(), "event-1")

	require.NoError(t, err)
	assert.Len(t, token, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLocker_AcquireHeldByAnotherPass(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewEventLocker(db, 30*time.Second)

	mock.Regexp().ExpectSetNX("lock:resolve:event-1", `^[0-9a-f-]{36}$`, 30*time.Second).SetVal(false)

	token, err := locker.Acquire(context.Background(), "event-1")

	require.ErrorIs(t, err, status.ErrLockNotAcquired)
	assert.Empty(t, token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLocker_AcquireRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewEventLocker(db, 30*time.Second)

	mock.Regexp().ExpectSetNX("lock:resolve:event-1", `^[0-9a-f-]{36}$`, 30*time.Second).
		SetErr(errors.New("connection refused"))

	_, err := locker.Acquire(context.Background(), "event-1")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, status.ErrLockNotAcquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLocker_Release(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewEventLocker(db, 30*time.Second)

	token := "a3f1c2d4-0000-1111-2222-333344445555"
	mock.ExpectEval(releaseLockScript, []string{"lock:resolve:event-1"}, token).SetVal(int64(1))

	err := locker.Release(context.Background(), "event-1", token)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLocker_ReleaseExpiredLockIsNotAnError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewEventLocker(db, 30*time.Second)

	token := "a3f1c2d4-0000-1111-2222-333344445555"
	mock.ExpectEval(releaseLockScript, []string{"lock:resolve:event-1"}, token).RedisNil()

	err := locker.Release(context.Background(), "event-1", token)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
