package engine

import (
	"fleet-wars-backend/internal/models"
)

// ShotOutcome reports what a response did to the match.
type ShotOutcome struct {
	Cell     uint8
	Hit      bool
	GameOver bool
	Winner   models.Winner
}

// FireShot records actor's shot at cell and hands the turn to the opponent's response.
func FireShot(m *models.MatchRecord, actor models.Identity, cell uint8) error {
	if m.State != models.StateActive {
		return models.ErrGameNotActive
	}
	if !models.CellValid(cell) {
		return models.ErrInvalidCell
	}

	var shots *models.Bitboard
	var next models.TurnState
	switch m.Turn {
	case models.TurnP1Fire:
		if actor != m.Player1 {
			return models.ErrNotYourTurn
		}
		shots, next = &m.P1Shots, models.TurnP2Respond
	case models.TurnP2Fire:
		if actor != m.Player2 {
			return models.ErrNotYourTurn
		}
		shots, next = &m.P2Shots, models.TurnP1Respond
	default:
		return models.ErrNotYourTurn
	}
	if shots.Has(cell) {
		return models.ErrCellAlreadyShot
	}

	*shots = shots.With(cell)
	m.LastShotCell = cell
	m.Turn = next
	return nil
}

// RespondToShot records actor's hit or miss claim for the pending shot.
// Claims are trusted here; they are checked against the real boards only at finalize.
func RespondToShot(m *models.MatchRecord, actor models.Identity, claimedHit bool) (ShotOutcome, error) {
	if m.State != models.StateActive {
		return ShotOutcome{}, models.ErrGameNotActive
	}
	var declared *models.Bitboard
	var hits *uint8
	var firer models.Winner
	var next models.TurnState
	switch m.Turn {
	case models.TurnP2Respond:
		if actor != m.Player2 {
			return ShotOutcome{}, models.ErrNotYourTurn
		}
		declared, hits, firer, next = &m.P2DeclaredHits, &m.P1HitsOnP2, models.WinnerPlayer1, models.TurnP2Fire
	case models.TurnP1Respond:
		if actor != m.Player1 {
			return ShotOutcome{}, models.ErrNotYourTurn
		}
		declared, hits, firer, next = &m.P1DeclaredHits, &m.P2HitsOnP1, models.WinnerPlayer2, models.TurnP1Fire
	default:
		return ShotOutcome{}, models.ErrNotYourTurn
	}
	cell := m.LastShotCell
	if !models.CellValid(cell) {
		return ShotOutcome{}, models.ErrInvalidCell
	}

	out := ShotOutcome{Cell: cell, Hit: claimedHit}
	if claimedHit {
		*declared = declared.With(cell)
		if *hits < 255 {
			*hits++
		}
	}
	m.LastShotCell = models.CellNone

	if *hits >= models.TotalShipCells {
		m.Winner = firer
		m.State = models.StateWaitingReveal
		out.GameOver = true
		out.Winner = firer
		return out, nil
	}
	m.Turn = next
	return out, nil
}

// TurnOwner returns the player whose action the current turn state expects.
func TurnOwner(m *models.MatchRecord) models.Identity {
	switch m.Turn {
	case models.TurnP1Fire, models.TurnP1Respond:
		return m.Player1
	case models.TurnP2Fire, models.TurnP2Respond:
		return m.Player2
	}
	return models.Identity{}
}
