package services

import "fleet-wars-backend/internal/models"

// Broadcaster delivers match events to live subscribers.
type Broadcaster interface {
	BroadcastMatchEvent(event models.MatchEvent)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastMatchEvent(models.MatchEvent) {}
