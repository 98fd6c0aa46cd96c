package model

import (
	"github.com/gagliardetto/solana-go"
)

// BpsDenominator is the basis point scale: 10000 bps = 100%.
const BpsDenominator = 10_000

// Policy holds the immutable distribution parameters.
type Policy struct {
	BaselineAllocation  uint64           `json:"baseline_allocation"`
	MaxInvestorShareBps uint16           `json:"max_investor_share_bps"`
	DailyCap            uint64           `json:"daily_cap"` // 0 = unlimited
	MinPayout           uint64           `json:"min_payout"`
	QuoteMint           solana.PublicKey `json:"quote_mint"`
	CreatorWallet       solana.PublicKey `json:"creator_wallet"`
	Authority           solana.PublicKey `json:"authority"`
}
