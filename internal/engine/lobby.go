// Package engine holds the match rules: lobby, turn machine, reveal and adjudication.
//
// Every operation takes the record by reference and validates all preconditions
// before it writes a single field, so a rejected call leaves the record untouched.
// Storage, escrow and venue handling live in the services package.
package engine

import (
	"fleet-wars-backend/internal/models"
)

// CreateMatch initializes a record owned by creator. The caller must have checked
// that no record exists under the same key and must escrow Wager when it is non-zero.
func CreateMatch(id uint64, creator models.Identity, commitment models.Digest, wager uint64) (*models.MatchRecord, error) {
	if creator.IsZero() {
		return nil, models.ErrUnauthorized
	}
	return &models.MatchRecord{
		Player1:      creator,
		P1Commitment: commitment,
		Wager:        wager,
		MatchID:      id,
		LastShotCell: models.CellNone,
		Turn:         models.TurnP1Fire,
		State:        models.StateWaitingForPlayer,
		Winner:       models.WinnerNone,
	}, nil
}

// JoinMatch seats joiner as player2 and activates the match.
func JoinMatch(m *models.MatchRecord, joiner models.Identity, commitment models.Digest) error {
	if m.State != models.StateWaitingForPlayer {
		return models.ErrInvalidState
	}
	if !m.Player2.IsZero() {
		return models.ErrInvalidState
	}
	if joiner.IsZero() || joiner == m.Player1 {
		return models.ErrUnauthorized
	}

	m.Player2 = joiner
	m.P2Commitment = commitment
	m.State = models.StateActive
	return nil
}
