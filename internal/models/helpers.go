package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%s",
		time.Now().Format("20060102"),
		uuid.NewString())
}

// GenerateMatchID returns a random non-zero match id.
func GenerateMatchID() uint64 {
	id := uint64(uuid.New().ID())<<32 | uint64(uuid.New().ID())
	if id == 0 {
		return 1
	}
	return id
}

// Salt is the 32-byte secret mixed into a board commitment.
type Salt [32]byte

func NewSalt() (Salt, error) {
	var s Salt
	if _, err := rand.Read(s[:]); err != nil {
		return s, fmt.Errorf("failed to generate salt: %w", err)
	}
	return s, nil
}

func (s Salt) String() string {
	return hex.EncodeToString(s[:])
}

func (s Salt) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Salt) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid salt: %w", err)
	}
	if len(raw) != len(s) {
		return fmt.Errorf("invalid salt: want %d bytes, got %d", len(s), len(raw))
	}
	copy(s[:], raw)
	return nil
}

func FormatCell(cell uint8) string {
	if !CellValid(cell) {
		return "none"
	}
	return fmt.Sprintf("%c%d", 'A'+cell/BoardWidth, cell%BoardWidth+1)
}
