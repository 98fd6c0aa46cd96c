package distributor

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Claimed is what a fee claim reports for both currencies of the pair.
type Claimed struct {
	Base  uint64
	Quote uint64
}

// FeeSource claims the fees accrued by the managed position into the
// treasury holding accounts.
type FeeSource interface {
	Claim(ctx context.Context) (Claimed, error)
}

// LockedBalanceOracle reports how much of an investor's allocation is still
// locked at a point in time.
type LockedBalanceOracle interface {
	LockedAmount(ctx context.Context, stream solana.PublicKey, asOf time.Time) (uint64, error)
}

// Ledger moves value between accounts. Transfer must fail without effect
// when the source cannot cover the amount or the destination is invalid.
type Ledger interface {
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
	Mint(ctx context.Context, account solana.PublicKey) (solana.PublicKey, error)
	Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error
}

// Holdings are the treasury accounts that receive claimed fees. Payouts are
// made from the quote holding.
type Holdings struct {
	Base  solana.PublicKey
	Quote solana.PublicKey
}
