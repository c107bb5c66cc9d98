// Package store implements the persistence layer on sqlite through dbx.
// All writes are scoped to a single row per call; the resolution engine
// relies on the atomic status+position update in SetRegistrationStatus.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pocketbase/dbx"

	"registration-system/internal/status"
	"registration-system/models"
)

type Store struct {
	db *dbx.DB
}

// Open connects to the sqlite database at path and ensures the schema
// exists. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := dbx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetEvent returns a single event or status.ErrEventNotFound.
func (s *Store) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := s.db.Select(
		"id",
		"name",
		"capacity",
		"requires_signing_up",
		"is_registration_closed",
		"registration_start",
		"enforces_previous_strikes",
		"created_at",
	).
		From("events").
		Where(dbx.HashExp{"id": eventID}).
		WithContext(ctx).
		One(&event)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

// ListPools returns the event's priority pools with their required group
// slugs assembled from the join table.
func (s *Store) ListPools(ctx context.Context, eventID string) ([]models.PriorityPool, error) {
	var pools []models.PriorityPool
	err := s.db.Select("id", "event_id", "priority_score").
		From("priority_pools").
		Where(dbx.HashExp{"event_id": eventID}).
		OrderBy("priority_score DESC", "id ASC").
		WithContext(ctx).
		All(&pools)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}

	for i := range pools {
		var groups []string
		err := s.db.Select("group_slug").
			From("pool_groups").
			Where(dbx.HashExp{"pool_id": pools[i].ID}).
			OrderBy("group_slug ASC").
			WithContext(ctx).
			Column(&groups)
		if err != nil {
			return nil, fmt.Errorf("list pool groups: %w", err)
		}
		pools[i].RequiredGroups = groups
	}
	return pools, nil
}

// ListRegistrations returns all non-pending registrations for an event,
// earliest created first.
func (s *Store) ListRegistrations(ctx context.Context, eventID string) ([]models.Registration, error) {
	var regs []models.Registration
	err := s.db.Select("event_id", "user_id", "status", "waitlist_position", "created_at", "attended_at").
		From("registrations").
		Where(dbx.HashExp{"event_id": eventID}).
		AndWhere(dbx.NewExp("status != {:pending}", dbx.Params{"pending": string(models.StatusPending)})).
		OrderBy("created_at ASC", "user_id ASC").
		WithContext(ctx).
		All(&regs)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// GetRegistration returns one registration row or
// status.ErrRegistrationNotFound.
func (s *Store) GetRegistration(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	var reg models.Registration
	err := s.db.Select("event_id", "user_id", "status", "waitlist_position", "created_at", "attended_at").
		From("registrations").
		Where(dbx.HashExp{"event_id": eventID, "user_id": userID}).
		WithContext(ctx).
		One(&reg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}

// CreateRegistration inserts a new registration row. The sign-up path
// always creates rows in pending status.
func (s *Store) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	var position any
	if reg.WaitlistPosition != nil {
		position = *reg.WaitlistPosition
	}
	_, err := s.db.Insert("registrations", dbx.Params{
		"event_id":          reg.EventID,
		"user_id":           reg.UserID,
		"status":            string(reg.Status),
		"waitlist_position": position,
		"created_at":        reg.CreatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// SetRegistrationStatus atomically updates status and waitlist position for
// one registration. Position must be nil for every status except
// waitlisted.
func (s *Store) SetRegistrationStatus(ctx context.Context, eventID, userID string, st models.RegistrationStatus, position *int) error {
	var pos any
	if position != nil {
		pos = *position
	}
	result, err := s.db.Update("registrations", dbx.Params{
		"status":            string(st),
		"waitlist_position": pos,
	}, dbx.HashExp{"event_id": eventID, "user_id": userID}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return status.ErrRegistrationNotFound
	}
	return nil
}

// UserGroups returns the slugs of every group the user belongs to.
func (s *Store) UserGroups(ctx context.Context, userID string) ([]string, error) {
	var groups []string
	err := s.db.Select("group_slug").
		From("user_groups").
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("group_slug ASC").
		WithContext(ctx).
		Column(&groups)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	return groups, nil
}

// StrikeCount returns the summed strike count for a user across all
// events. Strikes accumulate globally rather than per event, so a penalty
// earned anywhere delays future registrations everywhere.
func (s *Store) StrikeCount(ctx context.Context, userID string) (int, error) {
	var total int
	err := s.db.NewQuery(`SELECT COALESCE(SUM("count"), 0) FROM strikes WHERE user_id = {:user}`).
		Bind(dbx.Params{"user": userID}).
		WithContext(ctx).
		Row(&total)
	if err != nil {
		return 0, fmt.Errorf("sum strikes: %w", err)
	}
	return total, nil
}

// CreateEvent inserts a new event, generating an id when absent.
func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	var capacity any
	if event.Capacity != nil {
		capacity = *event.Capacity
	}
	var start any
	if event.RegistrationStart != nil {
		start = *event.RegistrationStart
	}
	_, err := s.db.Insert("events", dbx.Params{
		"id":                        event.ID,
		"name":                      event.Name,
		"capacity":                  capacity,
		"requires_signing_up":       event.RequiresSigningUp,
		"is_registration_closed":    event.IsRegistrationClosed,
		"registration_start":        start,
		"enforces_previous_strikes": event.EnforcesPreviousStrikes,
		"created_at":                event.CreatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CreatePool inserts a priority pool together with its required groups.
func (s *Store) CreatePool(ctx context.Context, pool *models.PriorityPool) error {
	if pool.ID == "" {
		pool.ID = uuid.New().String()
	}
	_, err := s.db.Insert("priority_pools", dbx.Params{
		"id":             pool.ID,
		"event_id":       pool.EventID,
		"priority_score": pool.PriorityScore,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}
	for _, slug := range pool.RequiredGroups {
		_, err := s.db.Insert("pool_groups", dbx.Params{
			"pool_id":    pool.ID,
			"group_slug": slug,
		}).WithContext(ctx).Execute()
		if err != nil {
			return fmt.Errorf("insert pool group: %w", err)
		}
	}
	return nil
}

// AddUserToGroup records a group membership.
func (s *Store) AddUserToGroup(ctx context.Context, userID, groupSlug string) error {
	_, err := s.db.Insert("user_groups", dbx.Params{
		"user_id":    userID,
		"group_slug": groupSlug,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert user group: %w", err)
	}
	return nil
}

// AddStrike records a penalty entry for a user.
func (s *Store) AddStrike(ctx context.Context, strike *models.Strike) error {
	if strike.ID == "" {
		strike.ID = uuid.New().String()
	}
	if strike.Count == 0 {
		strike.Count = 1
	}
	_, err := s.db.Insert("strikes", dbx.Params{
		"id":       strike.ID,
		"event_id": strike.EventID,
		"user_id":  strike.UserID,
		"count":    strike.Count,
		"reason":   strike.Reason,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert strike: %w", err)
	}
	return nil
}
