package treasury

import (
	"github.com/gagliardetto/solana-go"
)

const (
	seedVault         = "vault"
	seedPositionOwner = "investor_fee_pos_owner"
	seedTreasury      = "treasury"
)

// DerivePositionOwner derives the address that owns the fee position of a
// vault.
func DerivePositionOwner(programID, vault solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{[]byte(seedVault), vault.Bytes(), []byte(seedPositionOwner)}
	pda, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return pda, nil
}

// DeriveTreasuryAuthority derives the owner of the treasury holdings.
func DeriveTreasuryAuthority(programID solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{[]byte(seedTreasury)}
	pda, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return pda, nil
}

// DeriveHolding derives the treasury holding account for a mint.
func DeriveHolding(programID, authority, mint solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{[]byte(seedTreasury), authority.Bytes(), mint.Bytes()}
	pda, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return pda, nil
}
