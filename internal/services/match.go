package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fleet-wars-backend/internal/commitment"
	"fleet-wars-backend/internal/engine"
	"fleet-wars-backend/internal/models"
)

// MatchService runs match operations against whichever domain currently
// holds the record: the in-process venue when checked out, the store otherwise.
type MatchService struct {
	store           *RedisService
	venue           *Venue
	scheme          commitment.Scheme
	broadcaster     Broadcaster
	startingBalance uint64
	logger          *zap.Logger
}

func NewMatchService(store *RedisService, venue *Venue, scheme commitment.Scheme, startingBalance uint64, logger *zap.Logger) *MatchService {
	return &MatchService{
		store:           store,
		venue:           venue,
		scheme:          scheme,
		broadcaster:     nopBroadcaster{},
		startingBalance: startingBalance,
		logger:          logger.Named("match"),
	}
}

func (s *MatchService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func (s *MatchService) Scheme() commitment.Scheme {
	return s.scheme
}

func (s *MatchService) emit(t models.MatchEventType, key models.MatchKey, actor models.Identity, data interface{}) {
	ev := models.MatchEvent{Type: t, MatchKey: key.String(), Data: data}
	if !actor.IsZero() {
		ev.Actor = &actor
	}
	s.broadcaster.BroadcastMatchEvent(ev)
}

// mutate routes a rule function to the domain holding write authority.
func (s *MatchService) mutate(ctx context.Context, key models.MatchKey, fn func(*models.MatchRecord) error) (*models.MatchRecord, error) {
	if s.venue.Holds(key) {
		m, err := s.venue.Mutate(ctx, key, fn)
		if !errors.Is(err, errNotHeld) {
			return m, err
		}
		// checked in by a concurrent call; the store has it now
	}
	return s.store.MutateMatch(ctx, key, fn)
}

func (s *MatchService) GetMatch(ctx context.Context, key models.MatchKey) (*models.MatchRecord, error) {
	if m, ok := s.venue.Get(key); ok {
		return m, nil
	}
	return s.store.GetMatch(ctx, key)
}

// GetRaw returns the encoded record as the holding domain currently sees it.
func (s *MatchService) GetRaw(ctx context.Context, key models.MatchKey) ([]byte, error) {
	if m, ok := s.venue.Get(key); ok {
		return m.MarshalBinary()
	}
	return s.store.GetMatchRaw(ctx, key)
}

func (s *MatchService) CreateMatch(ctx context.Context, creator models.Identity, req *models.CreateMatchRequest) (*models.MatchRecord, error) {
	id := req.MatchID
	if id == 0 {
		id = models.GenerateMatchID()
	}
	m, err := engine.CreateMatch(id, creator, req.Commitment, req.Wager)
	if err != nil {
		return nil, err
	}
	key := m.Key()

	if _, err := s.store.GetMatch(ctx, key); err == nil {
		return nil, models.ErrMatchExists
	} else if !errors.Is(err, models.ErrMatchNotFound) {
		return nil, err
	}

	if err := s.escrow(ctx, creator, key, m.Wager); err != nil {
		return nil, err
	}
	if err := s.store.CreateMatch(ctx, m); err != nil {
		s.refund(ctx, creator, key, m.Wager)
		return nil, err
	}

	if err := s.store.AddActiveMatch(ctx, creator, key); err != nil {
		s.logger.Warn("failed to index match", zap.Stringer("match", key), zap.Error(err))
	}
	s.logger.Info("match created", zap.Stringer("match", key), zap.Uint64("wager", m.Wager))
	s.emit(models.EventMatchCreated, key, creator, m.View())
	return m, nil
}

// JoinMatch seats player two. The join is validated on a copy first so no
// wager is taken for a join that cannot succeed.
func (s *MatchService) JoinMatch(ctx context.Context, joiner models.Identity, key models.MatchKey, commit models.Digest) (*models.MatchRecord, error) {
	current, err := s.GetMatch(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := engine.JoinMatch(current.Clone(), joiner, commit); err != nil {
		return nil, err
	}

	if err := s.escrow(ctx, joiner, key, current.Wager); err != nil {
		return nil, err
	}
	m, err := s.mutate(ctx, key, func(m *models.MatchRecord) error {
		return engine.JoinMatch(m, joiner, commit)
	})
	if err != nil {
		s.refund(ctx, joiner, key, current.Wager)
		return nil, err
	}

	if err := s.store.AddActiveMatch(ctx, joiner, key); err != nil {
		s.logger.Warn("failed to index match", zap.Stringer("match", key), zap.Error(err))
	}
	s.logger.Info("player joined", zap.Stringer("match", key), zap.Stringer("player", joiner))
	s.emit(models.EventPlayerJoined, key, joiner, m.View())
	return m, nil
}

func (s *MatchService) escrow(ctx context.Context, owner models.Identity, key models.MatchKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := s.store.OpenWallet(ctx, owner, s.startingBalance); err != nil {
		return err
	}
	if err := s.store.EscrowWager(ctx, owner, key, amount); err != nil {
		return err
	}
	s.recordTransaction(ctx, owner, models.TransactionTypeEscrow, amount, key, "wager escrowed")
	return nil
}

func (s *MatchService) refund(ctx context.Context, owner models.Identity, key models.MatchKey, amount uint64) {
	if amount == 0 {
		return
	}
	if err := s.store.RefundWager(ctx, owner, key, amount); err != nil {
		s.logger.Error("refund failed", zap.Stringer("match", key), zap.Stringer("player", owner), zap.Error(err))
		return
	}
	s.recordTransaction(ctx, owner, models.TransactionTypeRefund, amount, key, "wager refunded")
}

func (s *MatchService) recordTransaction(ctx context.Context, owner models.Identity, typ models.TransactionType, amount uint64, key models.MatchKey, desc string) {
	tx := &models.Transaction{
		ID:          models.GenerateTransactionID(),
		Owner:       owner,
		Type:        typ,
		Amount:      amount,
		MatchKey:    key.String(),
		Description: desc,
		CreatedAt:   time.Now(),
	}
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		s.logger.Warn("failed to record transaction", zap.String("tx", tx.ID), zap.Error(err))
	}
}

// Checkout moves an active match into the fast venue.
func (s *MatchService) Checkout(ctx context.Context, actor models.Identity, key models.MatchKey) (*models.MatchRecord, error) {
	current, err := s.GetMatch(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckCheckout(current, actor); err != nil {
		return nil, err
	}

	m, err := s.venue.Checkout(ctx, key)
	if err != nil {
		return nil, err
	}
	s.emit(models.EventCheckedOut, key, actor, nil)
	return m, nil
}

// Checkin hands a venue-held match back to the store.
func (s *MatchService) Checkin(ctx context.Context, actor models.Identity, key models.MatchKey) (*models.MatchRecord, error) {
	current, ok := s.venue.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not checked out", models.ErrInvalidState, key)
	}
	if !current.IsParticipant(actor) {
		return nil, models.ErrUnauthorized
	}

	m, err := s.venue.Checkin(ctx, key)
	if err != nil {
		return nil, err
	}
	s.emit(models.EventCheckedIn, key, actor, nil)
	return m, nil
}

func (s *MatchService) FireShot(ctx context.Context, actor models.Identity, key models.MatchKey, cell uint8) (*models.MatchRecord, error) {
	m, err := s.mutate(ctx, key, func(m *models.MatchRecord) error {
		return engine.FireShot(m, actor, cell)
	})
	if err != nil {
		return nil, err
	}

	s.emit(models.EventShotFired, key, actor, fields{"cell": cell, "coord": models.FormatCell(cell), "next_turn": engine.TurnOwner(m)})
	return m, nil
}

func (s *MatchService) RespondToShot(ctx context.Context, actor models.Identity, key models.MatchKey, hit bool) (*models.MatchRecord, engine.ShotOutcome, error) {
	var out engine.ShotOutcome
	m, err := s.mutate(ctx, key, func(m *models.MatchRecord) error {
		var err error
		out, err = engine.RespondToShot(m, actor, hit)
		return err
	})
	if err != nil {
		return nil, engine.ShotOutcome{}, err
	}

	s.emit(models.EventShotAnswered, key, actor, fields{"cell": out.Cell, "hit": out.Hit, "next_turn": engine.TurnOwner(m)})
	if !out.GameOver {
		return m, out, nil
	}

	s.logger.Info("game over", zap.Stringer("match", key), zap.Stringer("tentative_winner", out.Winner))
	s.emit(models.EventGameOver, key, models.Identity{}, fields{"tentative_winner": out.Winner})
	if s.venue.Holds(key) {
		if _, err := s.venue.Checkin(ctx, key); err != nil {
			s.logger.Error("checkin after game over failed", zap.Stringer("match", key), zap.Error(err))
		} else {
			s.emit(models.EventCheckedIn, key, models.Identity{}, nil)
		}
	}
	return m, out, nil
}

func (s *MatchService) Reveal(ctx context.Context, actor models.Identity, key models.MatchKey, board models.Bitboard, salt models.Salt) (*models.MatchRecord, error) {
	m, err := s.mutate(ctx, key, func(m *models.MatchRecord) error {
		return engine.Reveal(m, actor, board, salt, s.scheme)
	})
	if err != nil {
		return nil, err
	}

	s.emit(models.EventBoardRevealed, key, actor, fields{"board": board.Cells()})
	return m, nil
}

// Finalize adjudicates the match and pays the pot to the resolved winner.
// A nil recipient defaults to the caller.
func (s *MatchService) Finalize(ctx context.Context, actor models.Identity, key models.MatchKey, recipient *models.Identity) (*models.Verdict, error) {
	to := actor
	if recipient != nil {
		to = *recipient
	}

	var verdict *models.Verdict
	m, err := s.mutate(ctx, key, func(m *models.MatchRecord) error {
		var err error
		verdict, err = engine.Finalize(m, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	if verdict.Pot > 0 {
		if err := s.payout(ctx, m, verdict.PayoutRecipient); err != nil {
			s.logger.Error("payout failed, settle to retry", zap.Stringer("match", key), zap.Error(err))
			return nil, fmt.Errorf("match %s finalized but payout failed: %w", key, err)
		}
	}

	s.archive(ctx, m)

	s.logger.Info("match finalized",
		zap.Stringer("match", key),
		zap.Stringer("winner", verdict.Winner),
		zap.Bool("p1_cheated", verdict.P1Cheated),
		zap.Bool("p2_cheated", verdict.P2Cheated),
	)
	s.emit(models.EventMatchFinalized, key, actor, verdict)
	return verdict, nil
}

func (s *MatchService) payout(ctx context.Context, m *models.MatchRecord, recipient models.Identity) error {
	if err := s.store.PayoutPot(ctx, m, recipient); err != nil {
		return err
	}
	s.recordTransaction(ctx, recipient, models.TransactionTypePayout, m.Pot(), m.Key(), "pot won")
	return nil
}

func (s *MatchService) archive(ctx context.Context, m *models.MatchRecord) {
	for _, p := range []models.Identity{m.Player1, m.Player2} {
		if err := s.store.CompleteMatch(ctx, p, m.Key()); err != nil {
			s.logger.Warn("failed to archive match", zap.Stringer("match", m.Key()), zap.Error(err))
		}
	}
}

// Settle pays the pot of a finished match to its recorded winner. It retries
// a payout that failed after finalize had already closed the match.
func (s *MatchService) Settle(ctx context.Context, actor models.Identity, key models.MatchKey) (*models.MatchRecord, error) {
	m, err := s.GetMatch(ctx, key)
	if err != nil {
		return nil, err
	}
	if m.State != models.StateFinished {
		return nil, models.ErrInvalidState
	}
	pot, err := s.store.PotBalance(ctx, key)
	if err != nil {
		return nil, err
	}
	winner := m.WinnerIdentity(m.Winner)
	if pot == 0 || winner.IsZero() {
		return nil, fmt.Errorf("%w: nothing to settle", models.ErrInvalidState)
	}

	if err := s.payout(ctx, m, winner); err != nil {
		return nil, err
	}
	s.archive(ctx, m)
	s.logger.Info("pot settled", zap.Stringer("match", key), zap.Stringer("by", actor), zap.Uint64("pot", pot))
	return m, nil
}

// Abort ends a venue session early and forces the record back to the store.
// Game fields are left alone. Aborting a record already in the store is a no-op.
func (s *MatchService) Abort(ctx context.Context, actor models.Identity, key models.MatchKey) (*models.MatchRecord, error) {
	current, err := s.GetMatch(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckAbort(current, actor); err != nil {
		return nil, err
	}
	if !s.venue.Holds(key) {
		return current, nil
	}

	m, err := s.venue.Checkin(ctx, key)
	if errors.Is(err, errLeaseLost) {
		// the venue already lost authority; the store copy is the record
		return s.store.GetMatch(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("session aborted", zap.Stringer("match", key), zap.Stringer("by", actor))
	s.emit(models.EventSessionEnded, key, actor, nil)
	return m, nil
}

func (s *MatchService) Wallet(ctx context.Context, owner models.Identity) (*models.Wallet, error) {
	if err := s.store.OpenWallet(ctx, owner, s.startingBalance); err != nil {
		return nil, err
	}
	return s.store.GetWallet(ctx, owner)
}

// Deposit credits amount to the owner's wallet, opening it first if needed.
func (s *MatchService) Deposit(ctx context.Context, owner models.Identity, amount uint64) (*models.Wallet, error) {
	if amount == 0 {
		return nil, ErrZeroDeposit
	}
	if err := s.store.OpenWallet(ctx, owner, s.startingBalance); err != nil {
		return nil, err
	}
	if err := s.store.Deposit(ctx, owner, amount); err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:          models.GenerateTransactionID(),
		Owner:       owner,
		Type:        models.TransactionTypeDeposit,
		Amount:      amount,
		Description: "deposit",
		CreatedAt:   time.Now(),
	}
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		s.logger.Warn("failed to record transaction", zap.String("tx", tx.ID), zap.Error(err))
	}
	return s.store.GetWallet(ctx, owner)
}

type History struct {
	Active       []string              `json:"active"`
	Completed    []string              `json:"completed"`
	Transactions []*models.Transaction `json:"transactions"`
}

func (s *MatchService) History(ctx context.Context, owner models.Identity, limit int64) (*History, error) {
	active, err := s.store.GetActiveMatches(ctx, owner)
	if err != nil {
		return nil, err
	}
	completed, err := s.store.GetMatchHistory(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.GetUserTransactions(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	return &History{Active: active, Completed: completed, Transactions: txs}, nil
}

type fields = map[string]interface{}
