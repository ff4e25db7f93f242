package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleet-wars-backend/internal/commitment"
	"fleet-wars-backend/internal/config"
	"fleet-wars-backend/internal/engine"
	"fleet-wars-backend/internal/models"
	"fleet-wars-backend/internal/services"
)

var (
	alice = identity(0xA1)
	bob   = identity(0xB0)
	eve   = identity(0xEE)

	aliceBoard = models.FromCells(0, 1, 8, 9, 10, 16, 17, 18, 19)
	bobBoard   = models.FromCells(40, 41, 48, 49, 50, 56, 57, 58, 59)
	aliceSalt  = salt(1)
	bobSalt    = salt(2)

	scheme = commitment.SHA256{}
	ctx    = context.Background()
)

func identity(b byte) models.Identity {
	var id models.Identity
	for i := range id {
		id[i] = b
	}
	return id
}

func salt(b byte) models.Salt {
	var s models.Salt
	s[0], s[31] = b, b
	return s
}

func newStore(t *testing.T) (*services.RedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := services.NewRedisService(&config.Config{RedisURL: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func newVenue(store *services.RedisService) *services.Venue {
	return services.NewVenue(store, services.VenueOptions{
		LeaseTTL:       time.Minute,
		CommitInterval: 10 * time.Millisecond,
		MaxIdle:        time.Minute,
	}, zap.NewNop())
}

// activeRecord builds an ACTIVE match between alice and bob without the store.
func activeRecord(t *testing.T, id, wager uint64) *models.MatchRecord {
	t.Helper()
	m, err := engine.CreateMatch(id, alice, scheme.Commit(aliceBoard, aliceSalt), wager)
	require.NoError(t, err)
	require.NoError(t, engine.JoinMatch(m, bob, scheme.Commit(bobBoard, bobSalt)))
	return m
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []models.MatchEvent
}

func (r *recordingBroadcaster) BroadcastMatchEvent(ev models.MatchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingBroadcaster) types() []models.MatchEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.MatchEventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recordingBroadcaster) last() models.MatchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}
