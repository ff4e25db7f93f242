package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleet-wars-backend/internal/config"
	"fleet-wars-backend/internal/models"
)

// RedisService is the authoritative match store. Records are kept in their
// fixed binary layout; every mutation is an optimistic WATCH/MULTI cycle.
type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func matchKey(k models.MatchKey) string {
	return fmt.Sprintf(KeyMatch, k.Creator, k.ID)
}

func leaseKey(k models.MatchKey) string {
	return fmt.Sprintf(KeyMatchLease, k.Creator, k.ID)
}

func potKey(k models.MatchKey) string {
	return fmt.Sprintf(KeyPot, k.Creator, k.ID)
}

func decodeMatch(data []byte) (*models.MatchRecord, error) {
	var m models.MatchRecord
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("failed to decode match: %w", err)
	}
	return &m, nil
}

// CreateMatch stores a new record, failing if the key is taken.
func (s *RedisService) CreateMatch(ctx context.Context, m *models.MatchRecord) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, matchKey(m.Key()), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	if !ok {
		return models.ErrMatchExists
	}
	return nil
}

func (s *RedisService) GetMatch(ctx context.Context, key models.MatchKey) (*models.MatchRecord, error) {
	data, err := s.client.Get(ctx, matchKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", models.ErrMatchNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return decodeMatch(data)
}

// GetMatchRaw returns the stored bytes untouched.
func (s *RedisService) GetMatchRaw(ctx context.Context, key models.MatchKey) ([]byte, error) {
	data, err := s.client.Get(ctx, matchKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", models.ErrMatchNotFound, key)
	}
	return data, err
}

// MutateMatch applies fn to a copy of the stored record and writes the copy
// back only if fn succeeds and nobody else wrote the record meanwhile.
// A record leased to a venue cannot be mutated here.
func (s *RedisService) MutateMatch(ctx context.Context, key models.MatchKey, fn func(*models.MatchRecord) error) (*models.MatchRecord, error) {
	mk, lk := matchKey(key), leaseKey(key)

	var result *models.MatchRecord
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, mk).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", models.ErrMatchNotFound, key)
		}
		if err != nil {
			return err
		}
		leased, err := tx.Exists(ctx, lk).Result()
		if err != nil {
			return err
		}
		if leased > 0 {
			return models.ErrRecordCheckedOut
		}

		m, err := decodeMatch(data)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
		updated, err := m.MarshalBinary()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, mk, updated, ttlFor(m))
			return nil
		})
		if err == nil {
			result = m
		}
		return err
	}

	for i := 0; i < maxMutateAttempts; i++ {
		err := s.client.Watch(ctx, txf, mk, lk)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return result, err
	}
	return nil, fmt.Errorf("match %s: too much contention", key)
}

func ttlFor(m *models.MatchRecord) time.Duration {
	if m.State == models.StateFinished {
		return TTLFinishedMatch
	}
	return 0
}

// AcquireLease grants holder exclusive write authority over the record.
func (s *RedisService) AcquireLease(ctx context.Context, key models.MatchKey, holder string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, leaseKey(key), holder, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire lease: %w", err)
	}
	if !ok {
		return models.ErrRecordCheckedOut
	}
	return nil
}

var renewLeaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) ~= ARGV[1] then
		return 0
	end
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return 1
`)

func (s *RedisService) RenewLease(ctx context.Context, key models.MatchKey, holder string, ttl time.Duration) error {
	n, err := renewLeaseScript.Run(ctx, s.client, []string{leaseKey(key)}, holder, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to renew lease: %w", err)
	}
	if n == 0 {
		return models.ErrRecordCheckedOut
	}
	return nil
}

var releaseLeaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

func (s *RedisService) ReleaseLease(ctx context.Context, key models.MatchKey, holder string) error {
	return releaseLeaseScript.Run(ctx, s.client, []string{leaseKey(key)}, holder).Err()
}

// commitScript writes the record if the caller still holds the lease, and
// drops the lease when ARGV[3] is "release". ARGV[4] is the record TTL in ms, 0 for none.
var commitScript = redis.NewScript(`
	if redis.call("GET", KEYS[2]) ~= ARGV[1] then
		return 0
	end
	if tonumber(ARGV[4]) > 0 then
		redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[4])
	else
		redis.call("SET", KEYS[1], ARGV[2])
	end
	if ARGV[3] == "release" then
		redis.call("DEL", KEYS[2])
	end
	return 1
`)

// CommitMatch writes a venue-held record back to the store.
func (s *RedisService) CommitMatch(ctx context.Context, m *models.MatchRecord, holder string, release bool) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	mode := "keep"
	if release {
		mode = "release"
	}

	keys := []string{matchKey(m.Key()), leaseKey(m.Key())}
	n, err := commitScript.Run(ctx, s.client, keys, holder, data, mode, ttlFor(m).Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to commit match: %w", err)
	}
	if n == 0 {
		return models.ErrRecordCheckedOut
	}
	return nil
}

func (s *RedisService) LeaseHolder(ctx context.Context, key models.MatchKey) (string, error) {
	holder, err := s.client.Get(ctx, leaseKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return holder, err
}

func (s *RedisService) AddActiveMatch(ctx context.Context, player models.Identity, key models.MatchKey) error {
	k := fmt.Sprintf(KeyUserActiveMatches, player)
	if err := s.client.SAdd(ctx, k, key.String()).Err(); err != nil {
		return fmt.Errorf("failed to add to active matches: %w", err)
	}
	return nil
}

func (s *RedisService) GetActiveMatches(ctx context.Context, player models.Identity) ([]string, error) {
	matches, err := s.client.SMembers(ctx, fmt.Sprintf(KeyUserActiveMatches, player)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get active matches: %w", err)
	}
	return matches, nil
}

func (s *RedisService) CompleteMatch(ctx context.Context, player models.Identity, key models.MatchKey) error {
	if err := s.client.SRem(ctx, fmt.Sprintf(KeyUserActiveMatches, player), key.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove from active matches: %w", err)
	}

	completedKey := fmt.Sprintf(KeyUserCompletedMatches, player)
	if err := s.client.ZAdd(ctx, completedKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: key.String(),
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to completed matches: %w", err)
	}

	// Keep only the last 100
	s.client.ZRemRangeByRank(ctx, completedKey, 0, -101)
	return nil
}

func (s *RedisService) GetMatchHistory(ctx context.Context, player models.Identity, limit int64) ([]string, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	keys, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyUserCompletedMatches, player), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get match history: %w", err)
	}
	return keys, nil
}

func (s *RedisService) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	if err := s.client.Set(ctx, fmt.Sprintf(KeyTransaction, tx.ID), data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.Owner)
	if err := s.client.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt.UnixNano()),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to user transactions: %w", err)
	}

	// Keep only last 100 transactions
	s.client.ZRemRangeByRank(ctx, userTxKey, 0, -101)
	return nil
}

func (s *RedisService) GetUserTransactions(ctx context.Context, owner models.Identity, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	txIDs, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyUserTransactions, owner), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %w", err)
	}
	if len(txIDs) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(txIDs))
	for i, id := range txIDs {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyTransaction, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	var transactions []*models.Transaction
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var tx models.Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}
	return transactions, nil
}

func (s *RedisService) CheckRateLimit(ctx context.Context, player models.Identity, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, player, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count == 1 {
		s.client.Expire(ctx, key, window)
	}
	return count <= int64(limit), nil
}
