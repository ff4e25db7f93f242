package models

import "time"

type Wallet struct {
	Owner         Identity `json:"owner" redis:"-"`
	Balance       uint64   `json:"balance" redis:"balance"`
	LockedBalance uint64   `json:"locked_balance" redis:"locked_balance"`
	TotalWagered  uint64   `json:"total_wagered" redis:"total_wagered"`
	TotalWon      uint64   `json:"total_won" redis:"total_won"`
}

type TransactionType string

const (
	TransactionTypeEscrow  TransactionType = "escrow"
	TransactionTypePayout  TransactionType = "payout"
	TransactionTypeRefund  TransactionType = "refund"
	TransactionTypeDeposit TransactionType = "deposit"
)

type Transaction struct {
	ID          string          `json:"id"`
	Owner       Identity        `json:"owner"`
	Type        TransactionType `json:"type"`
	Amount      uint64          `json:"amount"`
	MatchKey    string          `json:"match_key,omitempty"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

type BalanceResponse struct {
	Balance       uint64 `json:"balance"`
	LockedBalance uint64 `json:"locked_balance"`
	TotalWagered  uint64 `json:"total_wagered"`
	TotalWon      uint64 `json:"total_won"`
}

func (w *Wallet) Response() BalanceResponse {
	return BalanceResponse{
		Balance:       w.Balance,
		LockedBalance: w.LockedBalance,
		TotalWagered:  w.TotalWagered,
		TotalWon:      w.TotalWon,
	}
}
