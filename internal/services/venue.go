package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fleet-wars-backend/internal/models"
)

// Venue is the fast execution domain. A checked-out record lives in memory
// and is written back to the store on a fixed interval and at checkin.
// The redis lease guarantees at most one venue holds write authority.
type Venue struct {
	store          *RedisService
	holder         string
	leaseTTL       time.Duration
	commitInterval time.Duration
	maxIdle        time.Duration
	logger         *zap.Logger

	mu       sync.Mutex
	sessions map[models.MatchKey]*venueSession
}

type venueSession struct {
	record     *models.MatchRecord
	checkedOut time.Time
	lastUpdate time.Time
	dirty      bool
}

type VenueOptions struct {
	LeaseTTL       time.Duration
	CommitInterval time.Duration
	MaxIdle        time.Duration
}

func NewVenue(store *RedisService, opts VenueOptions, logger *zap.Logger) *Venue {
	return &Venue{
		store:          store,
		holder:         uuid.New().String(),
		leaseTTL:       opts.LeaseTTL,
		commitInterval: opts.CommitInterval,
		maxIdle:        opts.MaxIdle,
		logger:         logger.Named("venue"),
		sessions:       make(map[models.MatchKey]*venueSession),
	}
}

func (v *Venue) Holder() string {
	return v.holder
}

// Checkout takes the lease and loads the authoritative record into memory.
func (v *Venue) Checkout(ctx context.Context, key models.MatchKey) (*models.MatchRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.sessions[key]; ok {
		return nil, fmt.Errorf("%w: %s already checked out", models.ErrInvalidState, key)
	}
	if err := v.store.AcquireLease(ctx, key, v.holder, v.leaseTTL); err != nil {
		return nil, err
	}

	record, err := v.store.GetMatch(ctx, key)
	if err != nil {
		v.store.ReleaseLease(ctx, key, v.holder)
		return nil, err
	}

	now := time.Now()
	v.sessions[key] = &venueSession{record: record, checkedOut: now, lastUpdate: now}
	v.logger.Info("match checked out", zap.Stringer("match", key))
	return record.Clone(), nil
}

func (v *Venue) Holds(key models.MatchKey) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.sessions[key]
	return ok
}

func (v *Venue) Get(key models.MatchKey) (*models.MatchRecord, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.sessions[key]
	if !ok {
		return nil, false
	}
	return s.record.Clone(), true
}

var (
	errNotHeld   = fmt.Errorf("%w: record not checked out", models.ErrInvalidState)
	errLeaseLost = fmt.Errorf("%w: venue lease lost", models.ErrRecordCheckedOut)
)

// Mutate applies fn to a copy of the held record and keeps the copy only on success.
// Every write renews the lease first; a venue that lost its lease drops the
// session and refuses the write, leaving the store as the only writer.
func (v *Venue) Mutate(ctx context.Context, key models.MatchKey, fn func(*models.MatchRecord) error) (*models.MatchRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	s, ok := v.sessions[key]
	if !ok {
		return nil, errNotHeld
	}
	if err := v.store.RenewLease(ctx, key, v.holder, v.leaseTTL); err != nil {
		if errors.Is(err, models.ErrRecordCheckedOut) {
			v.dropLocked(key, s)
			return nil, errLeaseLost
		}
		return nil, err
	}

	next := s.record.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.record = next
	s.dirty = true
	s.lastUpdate = time.Now()
	return next.Clone(), nil
}

// Checkin writes the record back and drops the lease.
func (v *Venue) Checkin(ctx context.Context, key models.MatchKey) (*models.MatchRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.checkinLocked(ctx, key)
}

func (v *Venue) checkinLocked(ctx context.Context, key models.MatchKey) (*models.MatchRecord, error) {
	s, ok := v.sessions[key]
	if !ok {
		return nil, errNotHeld
	}
	if err := v.store.CommitMatch(ctx, s.record, v.holder, true); err != nil {
		if errors.Is(err, models.ErrRecordCheckedOut) {
			v.dropLocked(key, s)
			return nil, fmt.Errorf("checkin %s: %w", key, errLeaseLost)
		}
		return nil, fmt.Errorf("checkin %s: %w", key, err)
	}
	delete(v.sessions, key)

	v.logger.Info("match checked in",
		zap.Stringer("match", key),
		zap.Duration("held", time.Since(s.checkedOut)),
	)
	return s.record.Clone(), nil
}

// dropLocked forgets a session whose lease expired or was taken over.
// Uncommitted moves are lost; the store copy is authoritative again.
func (v *Venue) dropLocked(key models.MatchKey, s *venueSession) {
	delete(v.sessions, key)
	v.logger.Error("venue lease lost, dropping session",
		zap.Stringer("match", key),
		zap.Bool("uncommitted_moves", s.dirty),
	)
}

// Flush commits dirty records and renews every lease.
func (v *Venue) Flush(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for key, s := range v.sessions {
		if s.dirty {
			err := v.store.CommitMatch(ctx, s.record, v.holder, false)
			if errors.Is(err, models.ErrRecordCheckedOut) {
				v.dropLocked(key, s)
				continue
			}
			if err != nil {
				v.logger.Error("periodic commit failed", zap.Stringer("match", key), zap.Error(err))
				continue
			}
			s.dirty = false
		}
		err := v.store.RenewLease(ctx, key, v.holder, v.leaseTTL)
		if errors.Is(err, models.ErrRecordCheckedOut) {
			v.dropLocked(key, s)
			continue
		}
		if err != nil {
			v.logger.Warn("lease renewal failed", zap.Stringer("match", key), zap.Error(err))
		}
	}
}

// Sweep checks in records idle for longer than maxIdle and returns their keys.
func (v *Venue) Sweep(ctx context.Context, now time.Time) []models.MatchKey {
	v.mu.Lock()
	defer v.mu.Unlock()

	var swept []models.MatchKey
	for key, s := range v.sessions {
		if now.Sub(s.lastUpdate) <= v.maxIdle {
			continue
		}
		if _, err := v.checkinLocked(ctx, key); err != nil {
			v.logger.Error("idle checkin failed", zap.Stringer("match", key), zap.Error(err))
			continue
		}
		swept = append(swept, key)
	}
	return swept
}

// Run flushes and sweeps until ctx is done, then checks everything in.
func (v *Venue) Run(ctx context.Context) error {
	ticker := time.NewTicker(v.commitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			v.Flush(ctx)
			if swept := v.Sweep(ctx, time.Now()); len(swept) > 0 {
				v.logger.Info("swept idle matches", zap.Int("count", len(swept)))
			}
		case <-ctx.Done():
			v.Shutdown(context.Background())
			return nil
		}
	}
}

func (v *Venue) Shutdown(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for key := range v.sessions {
		if _, err := v.checkinLocked(ctx, key); err != nil {
			v.logger.Error("shutdown checkin failed", zap.Stringer("match", key), zap.Error(err))
		}
	}
}

func (v *Venue) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.sessions)
}
