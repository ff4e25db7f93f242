package commitment

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"fleet-wars-backend/internal/models"
)

// Fleet lists ship lengths; they sum to models.TotalShipCells.
var Fleet = []int{2, 3, 4}

// Placement puts one ship on the grid starting at Cell and running right or down.
type Placement struct {
	Cell     uint8 `json:"cell"`
	Length   int   `json:"length"`
	Vertical bool  `json:"vertical"`
}

var (
	ErrOffGrid  = errors.New("ship runs off the grid")
	ErrOverlap  = errors.New("ships overlap")
	ErrBadFleet = errors.New("placements do not match the fleet")
)

// Cells returns the grid cells a placement covers.
func (p Placement) Cells() ([]uint8, error) {
	if !models.CellValid(p.Cell) || p.Length <= 0 {
		return nil, ErrOffGrid
	}
	row, col := int(p.Cell)/models.BoardWidth, int(p.Cell)%models.BoardWidth
	cells := make([]uint8, 0, p.Length)
	for i := 0; i < p.Length; i++ {
		r, c := row, col+i
		if p.Vertical {
			r, c = row+i, col
		}
		if r >= models.BoardWidth || c >= models.BoardWidth {
			return nil, ErrOffGrid
		}
		cells = append(cells, uint8(r*models.BoardWidth+c))
	}
	return cells, nil
}

// BuildBoard lays out a full fleet and returns its bitboard.
func BuildBoard(placements []Placement) (models.Bitboard, error) {
	if len(placements) != len(Fleet) {
		return 0, ErrBadFleet
	}
	want := make(map[int]int, len(Fleet))
	for _, l := range Fleet {
		want[l]++
	}

	var board models.Bitboard
	for _, p := range placements {
		if want[p.Length] == 0 {
			return 0, fmt.Errorf("%w: unexpected ship of length %d", ErrBadFleet, p.Length)
		}
		want[p.Length]--

		cells, err := p.Cells()
		if err != nil {
			return 0, err
		}
		for _, c := range cells {
			if board.Has(c) {
				return 0, ErrOverlap
			}
			board = board.With(c)
		}
	}
	return board, nil
}

// RandomBoard places the fleet at random without overlap.
func RandomBoard() (models.Bitboard, []Placement, error) {
	for tries := 0; tries < 10000; tries++ {
		placements := make([]Placement, 0, len(Fleet))
		for _, l := range Fleet {
			cell, err := randIntn(models.BoardCells)
			if err != nil {
				return 0, nil, err
			}
			vert, err := randIntn(2)
			if err != nil {
				return 0, nil, err
			}
			placements = append(placements, Placement{Cell: uint8(cell), Length: l, Vertical: vert == 1})
		}
		board, err := BuildBoard(placements)
		if err == nil {
			return board, placements, nil
		}
	}
	return 0, nil, errors.New("failed to place ships")
}

func randIntn(n int64) (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

// Secret is what a player keeps private until the reveal phase.
type Secret struct {
	Board      models.Bitboard `json:"board,string"`
	Salt       models.Salt     `json:"salt"`
	Scheme     string          `json:"scheme"`
	Commitment models.Digest   `json:"commitment"`
}

// Seal draws a fresh salt and commits to board.
func Seal(s Scheme, board models.Bitboard) (*Secret, error) {
	if board.Count() != models.TotalShipCells {
		return nil, models.ErrInvalidBoard
	}
	salt, err := models.NewSalt()
	if err != nil {
		return nil, err
	}
	return &Secret{
		Board:      board,
		Salt:       salt,
		Scheme:     s.Name(),
		Commitment: s.Commit(board, salt),
	}, nil
}
