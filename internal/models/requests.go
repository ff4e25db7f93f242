package models

type CreateMatchRequest struct {
	MatchID    uint64 `json:"match_id"`
	Commitment Digest `json:"commitment"`
	Wager      uint64 `json:"wager"`
}

type JoinMatchRequest struct {
	Commitment Digest `json:"commitment"`
}

type FireShotRequest struct {
	Cell *uint8 `json:"cell" binding:"required"`
}

type RespondShotRequest struct {
	Hit *bool `json:"hit" binding:"required"`
}

type RevealBoardRequest struct {
	Board uint64 `json:"board,string"`
	Salt  Salt   `json:"salt"`
}

type FinalizeRequest struct {
	PayoutRecipient *Identity `json:"payout_recipient"`
}

type DepositRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

type TokenRequest struct {
	Identity Identity `json:"identity"`
}

// Verdict is the terminal outcome of adjudication.
type Verdict struct {
	MatchKey        string   `json:"match_key"`
	Winner          Winner   `json:"winner"`
	PayoutRecipient Identity `json:"payout_recipient"`
	Pot             uint64   `json:"pot"`
	P1Cheated       bool     `json:"p1_cheated"`
	P2Cheated       bool     `json:"p2_cheated"`
}

type MatchEventType string

const (
	EventMatchCreated   MatchEventType = "MATCH_CREATED"
	EventPlayerJoined   MatchEventType = "PLAYER_JOINED"
	EventCheckedOut     MatchEventType = "CHECKED_OUT"
	EventCheckedIn      MatchEventType = "CHECKED_IN"
	EventShotFired      MatchEventType = "SHOT_FIRED"
	EventShotAnswered   MatchEventType = "SHOT_ANSWERED"
	EventGameOver       MatchEventType = "GAME_OVER"
	EventBoardRevealed  MatchEventType = "BOARD_REVEALED"
	EventMatchFinalized MatchEventType = "MATCH_FINALIZED"
	EventSessionEnded   MatchEventType = "SESSION_ENDED"
)

type MatchEvent struct {
	Type     MatchEventType `json:"type"`
	MatchKey string         `json:"match_key"`
	Actor    *Identity      `json:"actor,omitempty"`
	Data     interface{}    `json:"data,omitempty"`
}
