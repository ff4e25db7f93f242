package services

import "time"

const (
	KeyMatch                = "match:%s:%d"
	KeyMatchLease           = "match:%s:%d:lease"
	KeyPot                  = "pot:%s:%d"
	KeyWallet               = "wallet:%s"
	KeyTransaction          = "transaction:%s"
	KeyUserTransactions     = "user:%s:transactions"
	KeyUserActiveMatches    = "user:%s:active_matches"
	KeyUserCompletedMatches = "user:%s:completed_matches"
	KeyRateLimit            = "ratelimit:%s:%s"

	TTLFinishedMatch = 30 * 24 * time.Hour // 30 days
	TTLTransaction   = 30 * 24 * time.Hour // 30 days

	DefaultRateLimitMoves = 120 // Max 120 fire/respond calls per minute
	DefaultRateLimitLobby = 20  // Max 20 creates/joins per minute

	maxMutateAttempts = 5
)
