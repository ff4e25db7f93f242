// Package commitment binds a secret board to a public 32-byte digest.
package commitment

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	bnmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"fleet-wars-backend/internal/models"
)

// Scheme computes hash(board || salt).
type Scheme interface {
	Name() string
	Commit(board models.Bitboard, salt models.Salt) models.Digest
}

const (
	SchemeSHA256 = "sha256"
	SchemeMiMC   = "mimc"
)

// ByName resolves a configured scheme name.
func ByName(name string) (Scheme, error) {
	switch name {
	case "", SchemeSHA256:
		return SHA256{}, nil
	case SchemeMiMC:
		return MiMC{}, nil
	}
	return nil, fmt.Errorf("unknown commitment scheme %q", name)
}

// SHA256 hashes the board as 8 little-endian bytes followed by the salt.
// This is the layout existing records were committed with.
type SHA256 struct{}

func (SHA256) Name() string { return SchemeSHA256 }

func (SHA256) Commit(board models.Bitboard, salt models.Salt) models.Digest {
	var buf [8 + 32]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(board))
	copy(buf[8:], salt[:])
	return models.Digest(sha256.Sum256(buf[:]))
}

// MiMC hashes board and salt as two BN254 field elements, so the same
// commitment can be opened inside a SNARK circuit. The salt is reduced mod r.
type MiMC struct{}

func (MiMC) Name() string { return SchemeMiMC }

func (MiMC) Commit(board models.Bitboard, salt models.Salt) models.Digest {
	h := bnmimc.NewMiMC()
	h.Write(feBytes(new(big.Int).SetUint64(uint64(board))))
	s := new(big.Int).SetBytes(salt[:])
	h.Write(feBytes(s.Mod(s, fr.Modulus())))

	var d models.Digest
	copy(d[:], h.Sum(nil))
	return d
}

// feBytes encodes a field element as 32 big-endian bytes.
func feBytes(x *big.Int) []byte {
	out := make([]byte, fr.Bytes)
	return x.FillBytes(out)
}

// Open reports whether board and salt open d under s.
func Open(s Scheme, d models.Digest, board models.Bitboard, salt models.Salt) bool {
	return s.Commit(board, salt) == d
}
