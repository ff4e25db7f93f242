package engine

import (
	"fleet-wars-backend/internal/models"
)

// CheckCheckout validates moving an active match into the fast venue.
// Only the creator may do it.
func CheckCheckout(m *models.MatchRecord, actor models.Identity) error {
	if m.State != models.StateActive {
		return models.ErrInvalidState
	}
	if actor != m.Player1 {
		return models.ErrUnauthorized
	}
	return nil
}

// CheckAbort validates ending a venue session early, e.g. when the opponent
// walked away. Aborting never touches game fields.
func CheckAbort(m *models.MatchRecord, actor models.Identity) error {
	if m.State != models.StateActive && m.State != models.StateWaitingReveal {
		return models.ErrGameNotActive
	}
	if !m.IsParticipant(actor) {
		return models.ErrUnauthorized
	}
	return nil
}
