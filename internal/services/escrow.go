package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"fleet-wars-backend/internal/models"
)

func walletKey(owner models.Identity) string {
	return fmt.Sprintf(KeyWallet, owner)
}

// openWalletScript creates a wallet with the starting balance on first use.
var openWalletScript = redis.NewScript(`
	if redis.call("HSETNX", KEYS[1], "balance", ARGV[1]) == 1 then
		redis.call("HSET", KEYS[1], "locked_balance", 0, "total_wagered", 0, "total_won", 0)
	end
	return redis.call("HGET", KEYS[1], "balance")
`)

func (s *RedisService) OpenWallet(ctx context.Context, owner models.Identity, startingBalance uint64) error {
	if err := openWalletScript.Run(ctx, s.client, []string{walletKey(owner)}, startingBalance).Err(); err != nil {
		return fmt.Errorf("failed to open wallet: %w", err)
	}
	return nil
}

func (s *RedisService) GetWallet(ctx context.Context, owner models.Identity) (*models.Wallet, error) {
	wallet := &models.Wallet{Owner: owner}
	if err := s.client.HGetAll(ctx, walletKey(owner)).Scan(wallet); err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

func (s *RedisService) Deposit(ctx context.Context, owner models.Identity, amount uint64) error {
	if err := s.client.HIncrBy(ctx, walletKey(owner), "balance", int64(amount)).Err(); err != nil {
		return fmt.Errorf("failed to deposit: %w", err)
	}
	return nil
}

// escrowScript moves a wager from the wallet balance into the match pot.
var escrowScript = redis.NewScript(`
	local amount = tonumber(ARGV[1])
	local balance = tonumber(redis.call("HGET", KEYS[1], "balance") or "0")

	if balance < amount then
		return redis.error_reply("insufficient balance")
	end

	redis.call("HINCRBY", KEYS[1], "balance", -amount)
	redis.call("HINCRBY", KEYS[1], "locked_balance", amount)
	redis.call("HINCRBY", KEYS[1], "total_wagered", amount)
	return redis.call("INCRBY", KEYS[2], amount)
`)

// EscrowWager locks amount from owner into the pot of the match.
func (s *RedisService) EscrowWager(ctx context.Context, owner models.Identity, key models.MatchKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	err := escrowScript.Run(ctx, s.client, []string{walletKey(owner), potKey(key)}, amount).Err()
	if err != nil && strings.Contains(err.Error(), "insufficient balance") {
		return models.ErrInsufficientBalance
	}
	if err != nil {
		return fmt.Errorf("failed to escrow wager: %w", err)
	}
	return nil
}

// refundScript undoes an escrow of ARGV[1].
var refundScript = redis.NewScript(`
	local amount = tonumber(ARGV[1])
	local pot = tonumber(redis.call("GET", KEYS[2]) or "0")

	if pot < amount then
		return redis.error_reply("pot underflow")
	end

	redis.call("HINCRBY", KEYS[1], "balance", amount)
	redis.call("HINCRBY", KEYS[1], "locked_balance", -amount)
	redis.call("HINCRBY", KEYS[1], "total_wagered", -amount)
	if pot == amount then
		redis.call("DEL", KEYS[2])
	else
		redis.call("DECRBY", KEYS[2], amount)
	end
	return "OK"
`)

func (s *RedisService) RefundWager(ctx context.Context, owner models.Identity, key models.MatchKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := refundScript.Run(ctx, s.client, []string{walletKey(owner), potKey(key)}, amount).Err(); err != nil {
		return fmt.Errorf("failed to refund wager: %w", err)
	}
	return nil
}

// payoutScript releases both locked stakes and credits the whole pot to the
// recipient. KEYS: pot, recipient wallet, player1 wallet, player2 wallet.
var payoutScript = redis.NewScript(`
	local wager = tonumber(ARGV[1])
	local pot = tonumber(redis.call("GET", KEYS[1]) or "0")

	if pot ~= wager * 2 then
		return redis.error_reply("pot mismatch")
	end

	redis.call("HINCRBY", KEYS[3], "locked_balance", -wager)
	redis.call("HINCRBY", KEYS[4], "locked_balance", -wager)
	redis.call("HINCRBY", KEYS[2], "balance", pot)
	redis.call("HINCRBY", KEYS[2], "total_won", pot)
	redis.call("DEL", KEYS[1])
	return pot
`)

var (
	ErrPotMismatch = errors.New("pot does not hold both stakes")
	ErrZeroDeposit = errors.New("deposit amount must be positive")
)

// PayoutPot transfers the pot of a finished match to recipient.
func (s *RedisService) PayoutPot(ctx context.Context, m *models.MatchRecord, recipient models.Identity) error {
	if m.Pot() == 0 {
		return nil
	}
	keys := []string{potKey(m.Key()), walletKey(recipient), walletKey(m.Player1), walletKey(m.Player2)}
	err := payoutScript.Run(ctx, s.client, keys, m.Wager).Err()
	if err != nil && strings.Contains(err.Error(), "pot mismatch") {
		return ErrPotMismatch
	}
	if err != nil {
		return fmt.Errorf("failed to pay out pot: %w", err)
	}
	return nil
}

func (s *RedisService) PotBalance(ctx context.Context, key models.MatchKey) (uint64, error) {
	n, err := s.client.Get(ctx, potKey(key)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
