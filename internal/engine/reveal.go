package engine

import (
	"fleet-wars-backend/internal/commitment"
	"fleet-wars-backend/internal/models"
)

// Reveal opens actor's commitment with board and salt and stores the board.
// A mismatch rejects the call; it does not produce a cheat verdict.
func Reveal(m *models.MatchRecord, actor models.Identity, board models.Bitboard, salt models.Salt, scheme commitment.Scheme) error {
	if m.State != models.StateWaitingReveal {
		return models.ErrInvalidState
	}
	if board.Count() != models.TotalShipCells {
		return models.ErrInvalidBoard
	}

	var (
		want     models.Digest
		revealed *bool
		stored   *models.Bitboard
	)
	switch {
	case actor.IsZero():
		return models.ErrUnauthorized
	case actor == m.Player1:
		want, revealed, stored = m.P1Commitment, &m.P1Revealed, &m.P1Board
	case actor == m.Player2:
		want, revealed, stored = m.P2Commitment, &m.P2Revealed, &m.P2Board
	default:
		return models.ErrUnauthorized
	}
	if *revealed {
		return models.ErrInvalidState
	}
	if !commitment.Open(scheme, want, board, salt) {
		return models.ErrBoardHashMismatch
	}

	*stored = board
	*revealed = true
	return nil
}
