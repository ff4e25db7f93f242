package commitment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-wars-backend/internal/commitment"
	"fleet-wars-backend/internal/models"
)

func TestSHA256Vectors(t *testing.T) {
	var salt models.Salt
	salt[0], salt[31] = 7, 7

	cases := []struct {
		board models.Bitboard
		salt  models.Salt
		want  string
	}{
		{0x1FF, models.Salt{}, "1f1680c0571fa75460121d3cf4c918ba02cc90af6bdb62bfaef1ffef7580729c"},
		{1<<63 | 1, salt, "254f44e3db44d915912cd1d5d395661df01f3c599307552a05b5649db35cc0c7"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, commitment.SHA256{}.Commit(tc.board, tc.salt).String())
	}
}

func TestOpenBinding(t *testing.T) {
	for _, s := range []commitment.Scheme{commitment.SHA256{}, commitment.MiMC{}} {
		t.Run(s.Name(), func(t *testing.T) {
			board := models.FromCells(0, 1, 8, 9, 10, 16, 17, 18, 19)
			salt := models.Salt{9, 9, 9}
			d := s.Commit(board, salt)

			assert.True(t, commitment.Open(s, d, board, salt))
			assert.False(t, commitment.Open(s, d, board.With(20), salt))
			assert.False(t, commitment.Open(s, d, board, models.Salt{9, 9, 8}))
		})
	}
}

func TestMiMCReducesLargeSalt(t *testing.T) {
	var salt models.Salt
	for i := range salt {
		salt[i] = 0xFF
	}
	d := commitment.MiMC{}.Commit(0x1FF, salt)
	assert.NotEqual(t, models.Digest{}, d)
	assert.NotEqual(t, commitment.SHA256{}.Commit(0x1FF, salt), d)
}

func TestByName(t *testing.T) {
	s, err := commitment.ByName("")
	require.NoError(t, err)
	assert.Equal(t, commitment.SchemeSHA256, s.Name())

	s, err = commitment.ByName("mimc")
	require.NoError(t, err)
	assert.Equal(t, commitment.SchemeMiMC, s.Name())

	_, err = commitment.ByName("md5")
	assert.Error(t, err)
}

func TestBuildBoard(t *testing.T) {
	board, err := commitment.BuildBoard([]commitment.Placement{
		{Cell: 0, Length: 2},
		{Cell: 8, Length: 3},
		{Cell: 16, Length: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, models.FromCells(0, 1, 8, 9, 10, 16, 17, 18, 19), board)

	board, err = commitment.BuildBoard([]commitment.Placement{
		{Cell: 7, Length: 2, Vertical: true},
		{Cell: 0, Length: 3, Vertical: true},
		{Cell: 60, Length: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, models.FromCells(7, 15, 0, 8, 16, 60, 61, 62, 63), board)
}

func TestBuildBoardErrors(t *testing.T) {
	cases := map[string]struct {
		placements []commitment.Placement
		err        error
	}{
		"off right edge": {[]commitment.Placement{{Cell: 7, Length: 2}, {Cell: 8, Length: 3}, {Cell: 16, Length: 4}}, commitment.ErrOffGrid},
		"off bottom":     {[]commitment.Placement{{Cell: 56, Length: 2, Vertical: true}, {Cell: 8, Length: 3}, {Cell: 16, Length: 4}}, commitment.ErrOffGrid},
		"overlap":        {[]commitment.Placement{{Cell: 0, Length: 2}, {Cell: 1, Length: 3, Vertical: true}, {Cell: 16, Length: 4}}, commitment.ErrOverlap},
		"short fleet":    {[]commitment.Placement{{Cell: 0, Length: 2}}, commitment.ErrBadFleet},
		"wrong lengths":  {[]commitment.Placement{{Cell: 0, Length: 2}, {Cell: 8, Length: 2}, {Cell: 16, Length: 4}}, commitment.ErrBadFleet},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := commitment.BuildBoard(tc.placements)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestRandomBoardAndSeal(t *testing.T) {
	for i := 0; i < 20; i++ {
		board, placements, err := commitment.RandomBoard()
		require.NoError(t, err)
		assert.Equal(t, models.TotalShipCells, board.Count())

		again, err := commitment.BuildBoard(placements)
		require.NoError(t, err)
		assert.Equal(t, board, again)

		sec, err := commitment.Seal(commitment.SHA256{}, board)
		require.NoError(t, err)
		assert.True(t, commitment.Open(commitment.SHA256{}, sec.Commitment, sec.Board, sec.Salt))
	}

	_, err := commitment.Seal(commitment.SHA256{}, models.FromCells(1, 2))
	assert.ErrorIs(t, err, models.ErrInvalidBoard)
}
