package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"registration-system/internal/status"
	"registration-system/logger"
	"registration-system/monitoring"
)

// Resolver runs one resolution pass for an event.
type Resolver interface {
	ResolveEvent(ctx context.Context, eventID string) error
}

// Scheduler periodically scans the intent stage for events with staged
// intents and runs one locked resolution pass per event. Events are
// resolved concurrently; work for one event is serialized by the per-event
// lock.
type Scheduler struct {
	stage    *IntentStage
	resolver Resolver
	locks    *EventLocker
	interval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(stage *IntentStage, resolver Resolver, locks *EventLocker, interval time.Duration) *Scheduler {
	return &Scheduler{
		stage:    stage,
		resolver: resolver,
		locks:    locks,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background resolution loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	logger.Info("resolution scheduler started", zap.Duration("interval", s.interval))
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	eventIDs, err := s.stage.Events(ctx)
	if err != nil {
		logger.Error("scanning staged events failed", zap.Error(err))
		return
	}

	for _, eventID := range eventIDs {
		s.wg.Add(1)
		go func(eventID string) {
			defer s.wg.Done()
			s.resolveLocked(ctx, eventID)
		}(eventID)
	}
}

func (s *Scheduler) resolveLocked(ctx context.Context, eventID string) {
	token, err := s.locks.Acquire(ctx, eventID)
	if errors.Is(err, status.ErrLockNotAcquired) {
		// Another pass is still running; the next tick retries.
		return
	}
	if err != nil {
		logger.Error("lock acquisition failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		return
	}
	defer func() {
		if err := s.locks.Release(ctx, eventID, token); err != nil {
			logger.Warn("lock release failed",
				zap.String("event_id", eventID),
				zap.Error(err),
			)
		}
	}()

	if err := s.resolver.ResolveEvent(ctx, eventID); err != nil {
		logger.Error("resolution pass failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		monitoring.TrackPass(eventID, "error")
		return
	}
	monitoring.TrackPass(eventID, "success")
}

// Shutdown stops the loop and waits for in-flight passes, bounded by a
// timeout.
func (s *Scheduler) Shutdown() {
	close(s.stopChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("scheduler stopped")
	case <-time.After(30 * time.Second):
		logger.Warn("timeout waiting for resolution passes to stop")
	}
}
