package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-wars-backend/internal/models"
)

func sampleRecord() *models.MatchRecord {
	var p1, p2 models.Identity
	for i := range p1 {
		p1[i] = byte(i + 1)
		p2[i] = byte(200 - i)
	}
	return &models.MatchRecord{
		Player1:        p1,
		Player2:        p2,
		P1Commitment:   models.Digest{0xAA, 1},
		P2Commitment:   models.Digest{0xBB, 2},
		P1Shots:        models.FromCells(0, 63),
		P2Shots:        models.FromCells(5),
		P1DeclaredHits: models.FromCells(5),
		P2DeclaredHits: models.FromCells(63),
		P1Board:        0x0F0F,
		P2Board:        0xF0F0_0000_0000_0000,
		Wager:          1234,
		MatchID:        0xDEADBEEF,
		P1HitsOnP2:     1,
		P2HitsOnP1:     1,
		LastShotCell:   models.CellNone,
		Turn:           models.TurnP2Fire,
		State:          models.StateWaitingReveal,
		P1Revealed:     true,
		Winner:         models.WinnerPlayer2,
	}
}

func TestRecordLayout(t *testing.T) {
	m := sampleRecord()
	data, err := m.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, models.RecordSize)
	assert.Equal(t, 200, models.RecordSize)

	assert.Equal(t, m.Player1[:], data[0:32])
	assert.Equal(t, m.P2Commitment[:], data[96:128])
	assert.Equal(t, byte(0x01), data[128], "p1_shots low byte, little-endian")
	assert.Equal(t, byte(0x80), data[135], "p1_shots high byte")
	assert.Equal(t, []byte{0xEF, 0xBE, 0xAD, 0xDE}, data[184:188], "match id")
	assert.Equal(t, []byte{1, 1, 255, 3, 3, 1, 0, 2}, data[192:200])

	var back models.MatchRecord
	require.NoError(t, back.UnmarshalBinary(append(data, 0xFF)))
	assert.Equal(t, *m, back)
}

func TestRecordLayoutRejectsCorruptData(t *testing.T) {
	data, err := sampleRecord().MarshalBinary()
	require.NoError(t, err)

	var m models.MatchRecord
	assert.Error(t, m.UnmarshalBinary(data[:150]))

	cases := map[string]int{
		"turn":     195,
		"state":    196,
		"revealed": 197,
		"winner":   199,
	}
	for name, off := range cases {
		t.Run(name, func(t *testing.T) {
			bad := append([]byte(nil), data...)
			bad[off] = 9
			assert.Error(t, m.UnmarshalBinary(bad))
		})
	}
}

func TestBitboard(t *testing.T) {
	b := models.FromCells(3, 0, 63, 64, 200)
	assert.Equal(t, []uint8{0, 3, 63}, b.Cells())
	assert.Equal(t, 3, b.Count())
	assert.True(t, b.Has(63))
	assert.False(t, b.Has(64))
	assert.False(t, b.Has(1))
	assert.Equal(t, models.FromCells(3), b.And(models.FromCells(1, 3)))
	assert.Equal(t, 4, b.With(1).Count())
}

func TestIdentityText(t *testing.T) {
	id := sampleRecord().Player1
	parsed, err := models.ParseIdentity(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = models.ParseIdentity("abcd")
	assert.Error(t, err)
	_, err = models.ParseIdentity("zz")
	assert.Error(t, err)
}

func TestViewHidesUnrevealedBoards(t *testing.T) {
	m := sampleRecord()
	v := m.View()
	assert.NotEmpty(t, v.P1Board)
	assert.Empty(t, v.P2Board)
	assert.Nil(t, v.PendingShot)
	assert.Equal(t, uint64(2468), v.Pot)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"match_state":"WAITING_REVEAL"`)
	assert.Contains(t, string(data), `"winner":"PLAYER2"`)
	assert.NotContains(t, string(data), `"p2_board"`)
}

func TestRequestsDecode(t *testing.T) {
	var req models.RevealBoardRequest
	body := `{"board":"18446744073709551615","salt":"` + models.Salt{1}.String() + `"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, ^uint64(0), req.Board)
	assert.Equal(t, byte(1), req.Salt[0])

	var bad models.RevealBoardRequest
	assert.Error(t, json.Unmarshal([]byte(`{"board":"1","salt":"00"}`), &bad))
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "A1", models.FormatCell(0))
	assert.Equal(t, "H8", models.FormatCell(63))
	assert.Equal(t, "none", models.FormatCell(models.CellNone))
	assert.NotZero(t, models.GenerateMatchID())
	assert.NotEmpty(t, models.GenerateTransactionID())
}
