package models

import (
	"errors"
	"fmt"
)

// One error per rejection kind. A call that returns one of these left the record unchanged.
var (
	ErrInvalidState      = errors.New("match is not in the expected state")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrCellAlreadyShot   = errors.New("cell already shot")
	ErrInvalidCell       = errors.New("invalid cell: out of bounds (0-63)")
	ErrGameNotActive     = errors.New("match is not active")
	ErrBoardHashMismatch = errors.New("board hash mismatch")
	ErrInvalidBoard      = errors.New("invalid board: must have exactly 9 ship cells")
	ErrGameNotReady      = errors.New("both players must reveal before finalize")
	ErrUnauthorized      = errors.New("unauthorized")
)

// Errors raised by the storage and escrow collaborators rather than the rules.
var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchExists         = fmt.Errorf("%w: match already exists", ErrInvalidState)
	ErrRecordCheckedOut    = errors.New("match is checked out to another venue")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
