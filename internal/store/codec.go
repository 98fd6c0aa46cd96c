package store

import (
	"github.com/gagliardetto/solana-go"

	"FeeRouter/internal/errors"
)

// Int converts an amount for an INTEGER column. The conversion keeps all
// 64 bits and is reversed by Uint.
func Int(v uint64) int64 { return int64(v) }

// Uint reverses Int.
func Uint(v int64) uint64 { return uint64(v) }

// Bool converts a flag for an INTEGER column.
func Bool(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Key parses a base58 public key read from a TEXT column.
func Key(s string) (solana.PublicKey, error) {
	k, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, errors.Wrapf(errors.ErrInvalidState, "stored key %q", s)
	}
	return k, nil
}
