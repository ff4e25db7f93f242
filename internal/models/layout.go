package models

import (
	"encoding/binary"
	"fmt"
)

// RecordSize is the payload length of an encoded MatchRecord:
// four 32-byte fields, eight 8-byte fields and eight 1-byte fields.
const RecordSize = 4*32 + 8*8 + 8

// MarshalBinary encodes the record in the fixed interoperable layout.
// Integers are little-endian; booleans are one byte.
func (m *MatchRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	off := 0

	put32 := func(b [32]byte) {
		copy(buf[off:off+32], b[:])
		off += 32
	}
	put64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[off:], v)
		off += 8
	}
	put8 := func(v uint8) {
		buf[off] = v
		off++
	}

	put32(m.Player1)
	put32(m.Player2)
	put32(m.P1Commitment)
	put32(m.P2Commitment)
	put64(uint64(m.P1Shots))
	put64(uint64(m.P2Shots))
	put64(uint64(m.P1DeclaredHits))
	put64(uint64(m.P2DeclaredHits))
	put64(uint64(m.P1Board))
	put64(uint64(m.P2Board))
	put64(m.Wager)
	put64(m.MatchID)
	put8(m.P1HitsOnP2)
	put8(m.P2HitsOnP1)
	put8(m.LastShotCell)
	put8(uint8(m.Turn))
	put8(uint8(m.State))
	put8(boolByte(m.P1Revealed))
	put8(boolByte(m.P2Revealed))
	put8(uint8(m.Winner))

	return buf[:off], nil
}

// UnmarshalBinary decodes a record. Trailing framing bytes beyond RecordSize are ignored.
func (m *MatchRecord) UnmarshalBinary(data []byte) error {
	if len(data) < RecordSize {
		return fmt.Errorf("match record too short: %d bytes", len(data))
	}

	var r MatchRecord
	off := 0
	get32 := func() (out [32]byte) {
		copy(out[:], data[off:off+32])
		off += 32
		return out
	}
	get64 := func() uint64 {
		v := binary.LittleEndian.Uint64(data[off:])
		off += 8
		return v
	}
	get8 := func() uint8 {
		v := data[off]
		off++
		return v
	}

	r.Player1 = get32()
	r.Player2 = get32()
	r.P1Commitment = get32()
	r.P2Commitment = get32()
	r.P1Shots = Bitboard(get64())
	r.P2Shots = Bitboard(get64())
	r.P1DeclaredHits = Bitboard(get64())
	r.P2DeclaredHits = Bitboard(get64())
	r.P1Board = Bitboard(get64())
	r.P2Board = Bitboard(get64())
	r.Wager = get64()
	r.MatchID = get64()
	r.P1HitsOnP2 = get8()
	r.P2HitsOnP1 = get8()
	r.LastShotCell = get8()
	r.Turn = TurnState(get8())
	r.State = MatchState(get8())
	p1Revealed, p2Revealed := get8(), get8()
	r.Winner = Winner(get8())

	if p1Revealed > 1 || p2Revealed > 1 {
		return fmt.Errorf("match record: invalid revealed flag")
	}
	r.P1Revealed = p1Revealed == 1
	r.P2Revealed = p2Revealed == 1

	switch r.Turn {
	case TurnP1Fire, TurnP2Respond, TurnP2Fire, TurnP1Respond:
	default:
		return fmt.Errorf("match record: invalid turn state %d", uint8(r.Turn))
	}
	switch r.State {
	case StateWaitingForPlayer, StateActive, StateWaitingReveal, StateFinished:
	default:
		return fmt.Errorf("match record: invalid match state %d", uint8(r.State))
	}
	if r.Winner > WinnerPlayer2 {
		return fmt.Errorf("match record: invalid winner %d", uint8(r.Winner))
	}

	*m = r
	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
