package services_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-wars-backend/internal/config"
	"fleet-wars-backend/internal/engine"
	"fleet-wars-backend/internal/models"
	"fleet-wars-backend/internal/services"
)

func TestMatchStoreCreateAndGet(t *testing.T) {
	store, _ := newStore(t)
	m := activeRecord(t, 1, 0)

	require.NoError(t, store.CreateMatch(ctx, m))
	assert.ErrorIs(t, store.CreateMatch(ctx, m), models.ErrInvalidState)

	got, err := store.GetMatch(ctx, m.Key())
	require.NoError(t, err)
	assert.Equal(t, m, got)

	raw, err := store.GetMatchRaw(ctx, m.Key())
	require.NoError(t, err)
	assert.Len(t, raw, models.RecordSize)

	_, err = store.GetMatch(ctx, models.MatchKey{Creator: alice, ID: 99})
	assert.ErrorIs(t, err, models.ErrMatchNotFound)
}

func TestMutateMatchRejectedCallLeavesRecord(t *testing.T) {
	store, _ := newStore(t)
	m := activeRecord(t, 1, 0)
	require.NoError(t, store.CreateMatch(ctx, m))

	_, err := store.MutateMatch(ctx, m.Key(), func(r *models.MatchRecord) error {
		return engine.FireShot(r, bob, 3)
	})
	assert.ErrorIs(t, err, models.ErrNotYourTurn)

	got, err := store.GetMatch(ctx, m.Key())
	require.NoError(t, err)
	assert.Equal(t, m, got)

	updated, err := store.MutateMatch(ctx, m.Key(), func(r *models.MatchRecord) error {
		return engine.FireShot(r, alice, 3)
	})
	require.NoError(t, err)
	assert.Equal(t, models.TurnP2Respond, updated.Turn)

	got, err = store.GetMatch(ctx, m.Key())
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestMutateMatchMissing(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.MutateMatch(ctx, models.MatchKey{Creator: alice, ID: 5}, func(*models.MatchRecord) error {
		return nil
	})
	assert.ErrorIs(t, err, models.ErrMatchNotFound)
}

func TestLeaseBlocksStoreWrites(t *testing.T) {
	store, mr := newStore(t)
	m := activeRecord(t, 1, 0)
	require.NoError(t, store.CreateMatch(ctx, m))

	require.NoError(t, store.AcquireLease(ctx, m.Key(), "venue-a", time.Minute))
	assert.ErrorIs(t, store.AcquireLease(ctx, m.Key(), "venue-b", time.Minute), models.ErrRecordCheckedOut)

	_, err := store.MutateMatch(ctx, m.Key(), func(r *models.MatchRecord) error {
		return engine.FireShot(r, alice, 3)
	})
	assert.ErrorIs(t, err, models.ErrRecordCheckedOut)

	next := m.Clone()
	require.NoError(t, engine.FireShot(next, alice, 3))
	assert.ErrorIs(t, store.CommitMatch(ctx, next, "venue-b", false), models.ErrRecordCheckedOut)
	assert.ErrorIs(t, store.RenewLease(ctx, m.Key(), "venue-b", time.Minute), models.ErrRecordCheckedOut)
	require.NoError(t, store.RenewLease(ctx, m.Key(), "venue-a", time.Minute))

	require.NoError(t, store.CommitMatch(ctx, next, "venue-a", true))
	holder, err := store.LeaseHolder(ctx, m.Key())
	require.NoError(t, err)
	assert.Empty(t, holder)
	assert.False(t, mr.Exists(fmt.Sprintf(services.KeyMatchLease, alice, 1)))

	got, err := store.GetMatch(ctx, m.Key())
	require.NoError(t, err)
	assert.Equal(t, next, got)
}

func TestReleaseLeaseOnlyByHolder(t *testing.T) {
	store, _ := newStore(t)
	key := models.MatchKey{Creator: alice, ID: 1}

	require.NoError(t, store.AcquireLease(ctx, key, "venue-a", time.Minute))
	require.NoError(t, store.ReleaseLease(ctx, key, "venue-b"))
	holder, err := store.LeaseHolder(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "venue-a", holder)

	require.NoError(t, store.ReleaseLease(ctx, key, "venue-a"))
	holder, err = store.LeaseHolder(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, holder)
}

func TestFinishedMatchGetsTTL(t *testing.T) {
	store, mr := newStore(t)
	m := activeRecord(t, 1, 0)
	require.NoError(t, store.CreateMatch(ctx, m))

	_, err := store.MutateMatch(ctx, m.Key(), func(r *models.MatchRecord) error {
		r.State = models.StateFinished
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, services.TTLFinishedMatch, mr.TTL(fmt.Sprintf(services.KeyMatch, alice, 1)))
}

func TestMatchIndexes(t *testing.T) {
	store, _ := newStore(t)
	k1 := models.MatchKey{Creator: alice, ID: 1}
	k2 := models.MatchKey{Creator: alice, ID: 2}

	require.NoError(t, store.AddActiveMatch(ctx, bob, k1))
	require.NoError(t, store.AddActiveMatch(ctx, bob, k2))
	active, err := store.GetActiveMatches(ctx, bob)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{k1.String(), k2.String()}, active)

	require.NoError(t, store.CompleteMatch(ctx, bob, k1))
	active, err = store.GetActiveMatches(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{k2.String()}, active)

	history, err := store.GetMatchHistory(ctx, bob, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{k1.String()}, history)
}

func TestTransactionsNewestFirst(t *testing.T) {
	store, _ := newStore(t)
	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveTransaction(ctx, &models.Transaction{
			ID:        fmt.Sprintf("tx_%d", i),
			Owner:     alice,
			Type:      models.TransactionTypeEscrow,
			Amount:    uint64(i + 1),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	txs, err := store.GetUserTransactions(ctx, alice, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "tx_2", txs[0].ID)
	assert.Equal(t, "tx_1", txs[1].ID)

	none, err := store.GetUserTransactions(ctx, bob, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCheckRateLimit(t *testing.T) {
	store, mr := newStore(t)

	for i := 0; i < 3; i++ {
		ok, err := store.CheckRateLimit(ctx, alice, "fire", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := store.CheckRateLimit(ctx, alice, "fire", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = store.CheckRateLimit(ctx, alice, "fire", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRedisServiceUnreachable(t *testing.T) {
	_, err := services.NewRedisService(&config.Config{RedisURL: "127.0.0.1:1"})
	assert.ErrorContains(t, err, "failed to connect to redis")
}
