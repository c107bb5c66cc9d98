package services

import (
	"time"

	pubnub "github.com/pubnub/go"
	"go.uber.org/zap"

	"registration-system/logger"
	"registration-system/models"
	"registration-system/utils"
)

// Notifier delivers resolution outcomes to users. Delivery is
// fire-and-forget: a failed notification never affects the outcome of a
// resolution pass.
type Notifier interface {
	Registered(userID string, event *models.Event)
	Waitlisted(userID string, event *models.Event, position int)
	Blocked(userID string, event *models.Event, reason string)
	Displaced(userID string, event *models.Event, newPosition int)
}

// PubNubNotifier publishes outcome messages to the user's personal channel
// user-{userId}. Publishes run through a circuit breaker so a dead
// provider cannot stall resolution.
type PubNubNotifier struct {
	pubnub  *pubnub.PubNub
	baseURL string
	breaker *utils.CircuitBreaker
}

func NewPubNubNotifier(pn *pubnub.PubNub, baseURL string) *PubNubNotifier {
	return &PubNubNotifier{
		pubnub:  pn,
		baseURL: baseURL,
		breaker: utils.NewCircuitBreaker("pubnub", 5, 30*time.Second),
	}
}

func (n *PubNubNotifier) Registered(userID string, event *models.Event) {
	n.publish(userID, map[string]any{
		"type":       "registration_resolved",
		"outcome":    "registered",
		"event_id":   event.ID,
		"event_name": event.Name,
		"link":       event.Link(n.baseURL),
	})
}

func (n *PubNubNotifier) Waitlisted(userID string, event *models.Event, position int) {
	n.publish(userID, map[string]any{
		"type":       "registration_resolved",
		"outcome":    "waitlisted",
		"event_id":   event.ID,
		"event_name": event.Name,
		"link":       event.Link(n.baseURL),
		"position":   position,
	})
}

func (n *PubNubNotifier) Blocked(userID string, event *models.Event, reason string) {
	n.publish(userID, map[string]any{
		"type":       "registration_resolved",
		"outcome":    "blocked",
		"event_id":   event.ID,
		"event_name": event.Name,
		"reason":     reason,
	})
}

func (n *PubNubNotifier) Displaced(userID string, event *models.Event, newPosition int) {
	n.publish(userID, map[string]any{
		"type":         "registration_resolved",
		"outcome":      "displaced",
		"event_id":     event.ID,
		"event_name":   event.Name,
		"link":         event.Link(n.baseURL),
		"new_position": newPosition,
	})
}

func (n *PubNubNotifier) publish(userID string, message map[string]any) {
	channel := "user-" + userID
	err := n.breaker.Execute(func() error {
		_, _, err := n.pubnub.Publish().
			Channel(channel).
			Message(message).
			Execute()
		return err
	})
	if err != nil {
		logger.Warn("notification dropped",
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}
