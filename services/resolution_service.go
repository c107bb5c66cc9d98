package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"registration-system/internal/status"
	"registration-system/logger"
	"registration-system/models"
	"registration-system/monitoring"
)

// Store is the persistence contract the resolution engine consumes.
type Store interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListPools(ctx context.Context, eventID string) ([]models.PriorityPool, error)
	ListRegistrations(ctx context.Context, eventID string) ([]models.Registration, error)
	GetRegistration(ctx context.Context, eventID, userID string) (*models.Registration, error)
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	SetRegistrationStatus(ctx context.Context, eventID, userID string, st models.RegistrationStatus, position *int) error
	UserGroups(ctx context.Context, userID string) ([]string, error)
	StrikeCount(ctx context.Context, userID string) (int, error)
}

// Stage is the intent staging contract the engine consumes.
type Stage interface {
	Stage(ctx context.Context, eventID, userID string, requestedAt time.Time) error
	Scan(ctx context.Context, eventID string) ([]models.PendingIntent, error)
	Clear(ctx context.Context, eventID, userID string) error
}

// ResolutionService turns a batch of staged registration intents for one
// event into final seat allocations: capacity accounting, strike gating,
// priority pools, swaps and waitlist ordering. One pass is strictly
// sequential to preserve FIFO and capacity correctness; every staged
// intent is deleted only after its registration row has been persisted.
type ResolutionService struct {
	store    Store
	stage    Stage
	notifier Notifier
}

func NewResolutionService(st Store, stage Stage, notifier Notifier) *ResolutionService {
	return &ResolutionService{store: st, stage: stage, notifier: notifier}
}

// ResolveEvent runs one resolution pass for the event. Persistence errors
// abort the pass; everything committed so far stays valid and the
// remaining intents are retried on a later pass.
func (s *ResolutionService) ResolveEvent(ctx context.Context, eventID string) error {
	started := time.Now()

	intents, err := s.stage.Scan(ctx, eventID)
	if err != nil {
		return err
	}
	if len(intents) == 0 {
		return nil
	}

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		// Referential failure: the caller logs and retries on its next
		// tick, intents stay staged.
		return err
	}

	if !event.RequiresSigningUp || event.IsRegistrationClosed {
		for _, intent := range intents {
			if err := s.stage.Clear(ctx, eventID, intent.UserID); err != nil {
				return err
			}
		}
		logger.Info("discarded intents for closed event",
			zap.String("event_id", eventID),
			zap.Int("count", len(intents)),
		)
		return nil
	}

	pools, err := s.store.ListPools(ctx, eventID)
	if err != nil {
		return err
	}
	regs, err := s.store.ListRegistrations(ctx, eventID)
	if err != nil {
		return err
	}

	snap := newRegSnapshot(regs)
	available := 0
	if !event.Unlimited() {
		available = *event.Capacity - snap.registeredCount()
		if available < 0 {
			available = 0
		}
	}

	// Prioritization of users already persisted is evaluated lazily and
	// cached for the remainder of the pass.
	prioCache := make(map[string]bool)

	for _, intent := range intents {
		if err := s.resolveIntent(ctx, event, pools, snap, prioCache, intent, &available); err != nil {
			return err
		}
	}

	monitoring.ObservePassDuration(eventID, time.Since(started).Seconds())
	logger.Info("resolution pass complete",
		zap.String("event_id", eventID),
		zap.Int("intents", len(intents)),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

func (s *ResolutionService) resolveIntent(
	ctx context.Context,
	event *models.Event,
	pools []models.PriorityPool,
	snap *regSnapshot,
	prioCache map[string]bool,
	intent models.PendingIntent,
	available *int,
) error {
	// Re-fetch before acting: an overlapping or crashed earlier pass may
	// already have resolved this intent.
	reg, err := s.store.GetRegistration(ctx, event.ID, intent.UserID)
	if errors.Is(err, status.ErrRegistrationNotFound) {
		return s.discardStale(ctx, event.ID, intent.UserID)
	}
	if err != nil {
		return err
	}
	if reg.Status != models.StatusPending {
		return s.discardStale(ctx, event.ID, intent.UserID)
	}

	groups, err := s.store.UserGroups(ctx, intent.UserID)
	if err != nil {
		return err
	}
	strikes, err := s.store.StrikeCount(ctx, intent.UserID)
	if err != nil {
		return err
	}

	gate := CanRegister(strikes, event.RegistrationStart, intent.RequestedAt)
	if !gate.Allowed {
		if err := s.store.SetRegistrationStatus(ctx, event.ID, intent.UserID, models.StatusCancelled, nil); err != nil {
			return err
		}
		if err := s.stage.Clear(ctx, event.ID, intent.UserID); err != nil {
			return err
		}
		reg.Status = models.StatusCancelled
		reg.WaitlistPosition = nil
		snap.put(reg)
		s.notifier.Blocked(intent.UserID, event, gate.Reason)
		monitoring.TrackOutcome("blocked")
		return nil
	}

	prioritized := IsPrioritized(groups, pools, strikes, event.EnforcesPreviousStrikes)
	prioCache[intent.UserID] = prioritized

	if event.Unlimited() || *available > 0 {
		return s.seat(ctx, event, snap, reg, available)
	}

	if prioritized {
		target, err := s.findSwapTarget(ctx, event, pools, snap, prioCache)
		if err != nil {
			return err
		}
		if target != nil {
			return s.swap(ctx, event, pools, snap, prioCache, reg, target)
		}
	}

	// Full event and no swap possible: onto the waitlist. A prioritized
	// arrival can reorder users already waitlisted behind them.
	return s.waitlist(ctx, event, pools, snap, prioCache, reg, false)
}

// seat assigns the user a spot.
func (s *ResolutionService) seat(ctx context.Context, event *models.Event, snap *regSnapshot, reg *models.Registration, available *int) error {
	if err := s.store.SetRegistrationStatus(ctx, event.ID, reg.UserID, models.StatusRegistered, nil); err != nil {
		return err
	}
	if err := s.stage.Clear(ctx, event.ID, reg.UserID); err != nil {
		return err
	}
	reg.Status = models.StatusRegistered
	reg.WaitlistPosition = nil
	snap.put(reg)
	if !event.Unlimited() {
		*available--
	}
	s.notifier.Registered(reg.UserID, event)
	monitoring.TrackOutcome("registered")
	return nil
}

// swap demotes the earliest-registered non-prioritized user to the
// waitlist and seats the prioritized newcomer in their place.
func (s *ResolutionService) swap(
	ctx context.Context,
	event *models.Event,
	pools []models.PriorityPool,
	snap *regSnapshot,
	prioCache map[string]bool,
	reg *models.Registration,
	target *models.Registration,
) error {
	target.Status = models.StatusWaitlisted
	target.WaitlistPosition = nil
	snap.put(target)

	// Re-ranking persists the demoted row with its new position in one
	// atomic write, and renumbers (and notifies) everyone a swap shifted.
	if err := s.reRankWaitlist(ctx, event, pools, snap, prioCache, true); err != nil {
		return err
	}

	if err := s.store.SetRegistrationStatus(ctx, event.ID, reg.UserID, models.StatusRegistered, nil); err != nil {
		return err
	}
	if err := s.stage.Clear(ctx, event.ID, reg.UserID); err != nil {
		return err
	}
	reg.Status = models.StatusRegistered
	reg.WaitlistPosition = nil
	snap.put(reg)

	s.notifier.Registered(reg.UserID, event)
	if target.WaitlistPosition != nil {
		s.notifier.Displaced(target.UserID, event, *target.WaitlistPosition)
	}
	monitoring.TrackOutcome("registered")
	monitoring.TrackSwap(event.ID)
	logger.Info("swapped registration",
		zap.String("event_id", event.ID),
		zap.String("seated", reg.UserID),
		zap.String("demoted", target.UserID),
	)
	return nil
}

// waitlist places the user on the waitlist and renumbers it.
func (s *ResolutionService) waitlist(
	ctx context.Context,
	event *models.Event,
	pools []models.PriorityPool,
	snap *regSnapshot,
	prioCache map[string]bool,
	reg *models.Registration,
	notifyDisplaced bool,
) error {
	reg.Status = models.StatusWaitlisted
	reg.WaitlistPosition = nil
	snap.put(reg)

	if err := s.reRankWaitlist(ctx, event, pools, snap, prioCache, notifyDisplaced); err != nil {
		return err
	}
	if err := s.stage.Clear(ctx, event.ID, reg.UserID); err != nil {
		return err
	}

	position := 0
	if reg.WaitlistPosition != nil {
		position = *reg.WaitlistPosition
	}
	s.notifier.Waitlisted(reg.UserID, event, position)
	monitoring.TrackOutcome("waitlisted")
	return nil
}

// findSwapTarget returns the earliest-registered non-prioritized
// registered user, or nil when every seated user is prioritized.
func (s *ResolutionService) findSwapTarget(
	ctx context.Context,
	event *models.Event,
	pools []models.PriorityPool,
	snap *regSnapshot,
	prioCache map[string]bool,
) (*models.Registration, error) {
	for _, candidate := range snap.registeredOldestFirst() {
		prioritized, err := s.prioritizedFor(ctx, event, pools, prioCache, candidate.UserID)
		if err != nil {
			return nil, err
		}
		if !prioritized {
			return candidate, nil
		}
	}
	return nil, nil
}

// reRankWaitlist recomputes positions for every waitlisted registration of
// the event and persists the ones that changed. When notifyDisplaced is
// set (a swap invalidated the ordering), users pushed to a new position
// are told about it; users receiving their first position are notified by
// the caller with the regular waitlisted outcome instead.
func (s *ResolutionService) reRankWaitlist(
	ctx context.Context,
	event *models.Event,
	pools []models.PriorityPool,
	snap *regSnapshot,
	prioCache map[string]bool,
	notifyDisplaced bool,
) error {
	waitlisted := snap.waitlisted()
	entries := make([]WaitlistEntry, 0, len(waitlisted))
	for _, reg := range waitlisted {
		prioritized, err := s.prioritizedFor(ctx, event, pools, prioCache, reg.UserID)
		if err != nil {
			return err
		}
		entries = append(entries, WaitlistEntry{
			UserID:      reg.UserID,
			RequestedAt: reg.CreatedAt,
			Prioritized: prioritized,
		})
	}

	positions := RankWaitlist(entries)
	for _, reg := range waitlisted {
		newPosition := positions[reg.UserID]
		if reg.WaitlistPosition != nil && *reg.WaitlistPosition == newPosition {
			continue
		}
		hadPosition := reg.WaitlistPosition != nil

		position := newPosition
		if err := s.store.SetRegistrationStatus(ctx, event.ID, reg.UserID, models.StatusWaitlisted, &position); err != nil {
			return err
		}
		reg.WaitlistPosition = &position
		snap.put(reg)

		if notifyDisplaced && hadPosition {
			s.notifier.Displaced(reg.UserID, event, position)
		}
	}
	return nil
}

func (s *ResolutionService) prioritizedFor(
	ctx context.Context,
	event *models.Event,
	pools []models.PriorityPool,
	prioCache map[string]bool,
	userID string,
) (bool, error) {
	if prioritized, ok := prioCache[userID]; ok {
		return prioritized, nil
	}
	groups, err := s.store.UserGroups(ctx, userID)
	if err != nil {
		return false, err
	}
	strikes, err := s.store.StrikeCount(ctx, userID)
	if err != nil {
		return false, err
	}
	prioritized := IsPrioritized(groups, pools, strikes, event.EnforcesPreviousStrikes)
	prioCache[userID] = prioritized
	return prioritized, nil
}

func (s *ResolutionService) discardStale(ctx context.Context, eventID, userID string) error {
	if err := s.stage.Clear(ctx, eventID, userID); err != nil {
		return err
	}
	logger.Debug("discarded stale intent",
		zap.String("event_id", eventID),
		zap.String("user_id", userID),
	)
	monitoring.TrackOutcome("stale")
	return nil
}
