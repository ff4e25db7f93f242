package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-wars-backend/internal/commitment"
	"fleet-wars-backend/internal/models"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestBoardWithPlacements(t *testing.T) {
	out, err := execute(t, "board", "--place", "0:2:h", "--place", "8:3:h", "--place", "16:4:h")
	require.NoError(t, err)
	assert.Contains(t, out, "A # # . . . . . .")
	assert.Contains(t, out, "C # # # # . . . .")

	secret := decodeSecret(t, out)
	assert.Equal(t, models.FromCells(0, 1, 8, 9, 10, 16, 17, 18, 19), secret.Board)
	assert.True(t, commitment.Open(commitment.SHA256{}, secret.Commitment, secret.Board, secret.Salt))
}

func TestBoardRandomMiMC(t *testing.T) {
	out, err := execute(t, "board", "--scheme", "mimc")
	require.NoError(t, err)
	secret := decodeSecret(t, out)
	assert.Equal(t, commitment.SchemeMiMC, secret.Scheme)
	assert.Equal(t, models.TotalShipCells, secret.Board.Count())
}

func TestBoardRejectsBadPlacement(t *testing.T) {
	_, err := execute(t, "board", "--place", "7:2:h", "--place", "8:3:h", "--place", "16:4:h")
	assert.ErrorIs(t, err, commitment.ErrOffGrid)

	_, err = execute(t, "board", "--place", "0:2:x")
	assert.Error(t, err)
}

func TestCommitAndVerify(t *testing.T) {
	board := models.FromCells(0, 1, 8, 9, 10, 16, 17, 18, 19)
	var salt models.Salt
	salt[0] = 9

	boardArg := fmt.Sprintf("0x%x", uint64(board))
	out, err := execute(t, "commit", "--board", boardArg, "--salt", salt.String())
	require.NoError(t, err)
	digest := strings.TrimSpace(out)
	assert.Equal(t, commitment.SHA256{}.Commit(board, salt).String(), digest)

	out, err = execute(t, "verify", "--board", boardArg, "--salt", salt.String(), "--commitment", digest)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	salt[0] = 10
	_, err = execute(t, "verify", "--board", boardArg, "--salt", salt.String(), "--commitment", digest)
	assert.ErrorIs(t, err, models.ErrBoardHashMismatch)
}

func TestDecode(t *testing.T) {
	m := &models.MatchRecord{
		MatchID:      3,
		LastShotCell: models.CellNone,
		Turn:         models.TurnP1Fire,
		State:        models.StateWaitingForPlayer,
	}
	m.Player1[0] = 1
	raw, err := m.MarshalBinary()
	require.NoError(t, err)

	out, err := execute(t, "decode", base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Contains(t, out, `"match_state": "WAITING_FOR_PLAYER"`)
	assert.Contains(t, out, `"match_id": 3`)
}

func decodeSecret(t *testing.T, out string) commitment.Secret {
	t.Helper()
	start := strings.Index(out, "{")
	require.GreaterOrEqual(t, start, 0, out)

	var secret commitment.Secret
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &secret))
	return secret
}
