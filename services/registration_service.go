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

// RegistrationService is the upstream write path: it accepts sign-up
// intents immediately and leaves the outcome to a later resolution pass.
// The pending row is written before the intent is staged, so the store is
// always the source of truth for whether an intent is live.
type RegistrationService struct {
	store Store
	stage Stage
}

func NewRegistrationService(st Store, stage Stage) *RegistrationService {
	return &RegistrationService{store: st, stage: stage}
}

// SignUp records a registration intent for the user. It never resolves the
// outcome synchronously; the user is notified once a resolution pass has
// run.
func (s *RegistrationService) SignUp(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.RequiresSigningUp || event.IsRegistrationClosed {
		return nil, status.ErrSignUpClosed
	}

	if _, err := s.store.GetRegistration(ctx, eventID, userID); err == nil {
		return nil, status.ErrAlreadySignedUp
	} else if !errors.Is(err, status.ErrRegistrationNotFound) {
		return nil, err
	}

	reg := &models.Registration{
		EventID:   eventID,
		UserID:    userID,
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRegistration(ctx, reg); err != nil {
		return nil, err
	}
	if err := s.stage.Stage(ctx, eventID, userID, reg.CreatedAt); err != nil {
		return nil, err
	}

	logger.Debug("sign-up staged",
		zap.String("event_id", eventID),
		zap.String("user_id", userID),
	)
	monitoring.TrackSignUp(eventID)
	return reg, nil
}
