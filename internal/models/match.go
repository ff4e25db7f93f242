package models

import (
	"encoding/hex"
	"fmt"
	"math/bits"
)

const (
	BoardCells     = 64
	BoardWidth     = 8
	TotalShipCells = 9 // fleet of 2 + 3 + 4 cells

	// CellNone marks that no shot is waiting for a response.
	CellNone uint8 = 255
)

// Identity is an opaque 32-byte player handle. The zero value means unset.
type Identity [32]byte

func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid identity: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("invalid identity: want %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// Digest is a 32-byte board commitment.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid digest: %w", err)
	}
	if len(raw) != len(d) {
		return fmt.Errorf("invalid digest: want %d bytes, got %d", len(d), len(raw))
	}
	copy(d[:], raw)
	return nil
}

// Bitboard is a set of cells on the 8x8 grid; bit i is cell i.
type Bitboard uint64

func CellValid(cell uint8) bool {
	return cell < BoardCells
}

func (b Bitboard) Has(cell uint8) bool {
	return CellValid(cell) && b&(1<<cell) != 0
}

func (b Bitboard) With(cell uint8) Bitboard {
	return b | 1<<cell
}

func (b Bitboard) And(o Bitboard) Bitboard {
	return b & o
}

func (b Bitboard) Count() int {
	return bits.OnesCount64(uint64(b))
}

// Cells lists the set cells in ascending order.
func (b Bitboard) Cells() []uint8 {
	out := make([]uint8, 0, b.Count())
	for v := uint64(b); v != 0; v &= v - 1 {
		out = append(out, uint8(bits.TrailingZeros64(v)))
	}
	return out
}

// FromCells builds a bitboard, ignoring indexes outside the grid.
func FromCells(cells ...uint8) Bitboard {
	var b Bitboard
	for _, c := range cells {
		if CellValid(c) {
			b = b.With(c)
		}
	}
	return b
}

type TurnState uint8

const (
	TurnP1Fire    TurnState = 1
	TurnP2Respond TurnState = 2
	TurnP2Fire    TurnState = 3
	TurnP1Respond TurnState = 4
)

func (t TurnState) String() string {
	switch t {
	case TurnP1Fire:
		return "P1_FIRE"
	case TurnP2Respond:
		return "P2_RESPOND"
	case TurnP2Fire:
		return "P2_FIRE"
	case TurnP1Respond:
		return "P1_RESPOND"
	}
	return fmt.Sprintf("TurnState(%d)", uint8(t))
}

func (t TurnState) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

type MatchState uint8

// Value 1 is reserved; older records used it for a ready state that was never entered.
const (
	StateWaitingForPlayer MatchState = 0
	StateActive           MatchState = 2
	StateWaitingReveal    MatchState = 3
	StateFinished         MatchState = 4
)

func (s MatchState) String() string {
	switch s {
	case StateWaitingForPlayer:
		return "WAITING_FOR_PLAYER"
	case StateActive:
		return "ACTIVE"
	case StateWaitingReveal:
		return "WAITING_REVEAL"
	case StateFinished:
		return "FINISHED"
	}
	return fmt.Sprintf("MatchState(%d)", uint8(s))
}

func (s MatchState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Winner uint8

const (
	WinnerNone    Winner = 0
	WinnerPlayer1 Winner = 1
	WinnerPlayer2 Winner = 2
)

func (w Winner) String() string {
	switch w {
	case WinnerNone:
		return "NONE"
	case WinnerPlayer1:
		return "PLAYER1"
	case WinnerPlayer2:
		return "PLAYER2"
	}
	return fmt.Sprintf("Winner(%d)", uint8(w))
}

func (w Winner) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// MatchKey addresses one record in the store.
type MatchKey struct {
	Creator Identity
	ID      uint64
}

func (k MatchKey) String() string {
	return fmt.Sprintf("%s:%d", k.Creator, k.ID)
}

// MatchRecord holds every persisted field of one match.
type MatchRecord struct {
	Player1 Identity `json:"player1"`
	Player2 Identity `json:"player2"`

	P1Commitment Digest `json:"p1_commitment"`
	P2Commitment Digest `json:"p2_commitment"`

	P1Shots        Bitboard `json:"p1_shots"`
	P2Shots        Bitboard `json:"p2_shots"`
	P1DeclaredHits Bitboard `json:"p1_declared_hits"`
	P2DeclaredHits Bitboard `json:"p2_declared_hits"`
	P1Board        Bitboard `json:"p1_board"`
	P2Board        Bitboard `json:"p2_board"`

	Wager   uint64 `json:"wager"`
	MatchID uint64 `json:"match_id"`

	P1HitsOnP2   uint8      `json:"p1_hits_on_p2"`
	P2HitsOnP1   uint8      `json:"p2_hits_on_p1"`
	LastShotCell uint8      `json:"last_shot_cell"`
	Turn         TurnState  `json:"turn_state"`
	State        MatchState `json:"match_state"`
	P1Revealed   bool       `json:"p1_revealed"`
	P2Revealed   bool       `json:"p2_revealed"`
	Winner       Winner     `json:"winner"`
}

func (m *MatchRecord) Key() MatchKey {
	return MatchKey{Creator: m.Player1, ID: m.MatchID}
}

func (m *MatchRecord) Pot() uint64 {
	return m.Wager * 2
}

// IsParticipant reports whether id is one of the two seated players.
func (m *MatchRecord) IsParticipant(id Identity) bool {
	if id.IsZero() {
		return false
	}
	return id == m.Player1 || (!m.Player2.IsZero() && id == m.Player2)
}

// WinnerIdentity resolves w to a seated player, or the zero identity.
func (m *MatchRecord) WinnerIdentity(w Winner) Identity {
	switch w {
	case WinnerPlayer1:
		return m.Player1
	case WinnerPlayer2:
		return m.Player2
	}
	return Identity{}
}

func (m *MatchRecord) Clone() *MatchRecord {
	c := *m
	return &c
}

// MatchView is the public projection of a record. Boards stay hidden until revealed.
type MatchView struct {
	MatchID        uint64     `json:"match_id"`
	Player1        Identity   `json:"player1"`
	Player2        *Identity  `json:"player2,omitempty"`
	Wager          uint64     `json:"wager"`
	Pot            uint64     `json:"pot"`
	State          MatchState `json:"match_state"`
	Turn           TurnState  `json:"turn_state"`
	P1Shots        []uint8    `json:"p1_shots"`
	P2Shots        []uint8    `json:"p2_shots"`
	P1DeclaredHits []uint8    `json:"p1_declared_hits"`
	P2DeclaredHits []uint8    `json:"p2_declared_hits"`
	P1HitsOnP2     uint8      `json:"p1_hits_on_p2"`
	P2HitsOnP1     uint8      `json:"p2_hits_on_p1"`
	PendingShot    *uint8     `json:"pending_shot,omitempty"`
	P1Board        []uint8    `json:"p1_board,omitempty"`
	P2Board        []uint8    `json:"p2_board,omitempty"`
	Winner         Winner     `json:"winner"`
}

func (m *MatchRecord) View() *MatchView {
	v := &MatchView{
		MatchID:        m.MatchID,
		Player1:        m.Player1,
		Wager:          m.Wager,
		Pot:            m.Pot(),
		State:          m.State,
		Turn:           m.Turn,
		P1Shots:        m.P1Shots.Cells(),
		P2Shots:        m.P2Shots.Cells(),
		P1DeclaredHits: m.P1DeclaredHits.Cells(),
		P2DeclaredHits: m.P2DeclaredHits.Cells(),
		P1HitsOnP2:     m.P1HitsOnP2,
		P2HitsOnP1:     m.P2HitsOnP1,
		Winner:         m.Winner,
	}
	if !m.Player2.IsZero() {
		p2 := m.Player2
		v.Player2 = &p2
	}
	if CellValid(m.LastShotCell) {
		cell := m.LastShotCell
		v.PendingShot = &cell
	}
	if m.P1Revealed {
		v.P1Board = m.P1Board.Cells()
	}
	if m.P2Revealed {
		v.P2Board = m.P2Board.Cells()
	}
	return v
}
