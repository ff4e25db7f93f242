package engine

import (
	"fleet-wars-backend/internal/models"
)

// CheatReport compares each player's declarations against their revealed board.
type CheatReport struct {
	P1Expected models.Bitboard
	P2Expected models.Bitboard
	P1Cheated  bool
	P2Cheated  bool
}

// DetectCheating computes, for each player, the cells the opponent shot that
// really held a ship. Any difference from the declared hits, over or under, is a lie.
func DetectCheating(m *models.MatchRecord) CheatReport {
	p1Expected := m.P2Shots.And(m.P1Board)
	p2Expected := m.P1Shots.And(m.P2Board)
	return CheatReport{
		P1Expected: p1Expected,
		P2Expected: p2Expected,
		P1Cheated:  m.P1DeclaredHits != p1Expected,
		P2Cheated:  m.P2DeclaredHits != p2Expected,
	}
}

// ResolveWinner punishes a lone cheater. With no cheater, or two, the
// tentative winner from play stands.
func ResolveWinner(tentative models.Winner, p1Cheated, p2Cheated bool) models.Winner {
	switch {
	case p2Cheated && !p1Cheated:
		return models.WinnerPlayer1
	case p1Cheated && !p2Cheated:
		return models.WinnerPlayer2
	}
	return tentative
}

// Finalize adjudicates a fully revealed match and closes it.
// When the pot is non-zero, recipient must name the resolved winner; the
// returned verdict is the payout instruction for the escrow.
func Finalize(m *models.MatchRecord, recipient models.Identity) (*models.Verdict, error) {
	if m.State != models.StateWaitingReveal {
		return nil, models.ErrInvalidState
	}
	if !m.P1Revealed || !m.P2Revealed {
		return nil, models.ErrGameNotReady
	}

	report := DetectCheating(m)
	winner := ResolveWinner(m.Winner, report.P1Cheated, report.P2Cheated)
	winnerID := m.WinnerIdentity(winner)
	pot := m.Pot()
	if pot > 0 && (winnerID.IsZero() || recipient != winnerID) {
		return nil, models.ErrUnauthorized
	}

	m.Winner = winner
	m.State = models.StateFinished

	return &models.Verdict{
		MatchKey:        m.Key().String(),
		Winner:          winner,
		PayoutRecipient: winnerID,
		Pot:             pot,
		P1Cheated:       report.P1Cheated,
		P2Cheated:       report.P2Cheated,
	}, nil
}
