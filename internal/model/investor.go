package model

import "github.com/gagliardetto/solana-go"

// Investor is one entry of a page batch: the vesting stream that reports
// the investor's locked balance and the quote account that receives payouts.
type Investor struct {
	Stream      solana.PublicKey `json:"stream"`
	Destination solana.PublicKey `json:"destination"`
}

// Payout is a single investor transfer made by a page.
type Payout struct {
	Investor Investor `json:"investor"`
	Locked   uint64   `json:"locked"`
	Amount   uint64   `json:"amount"`
	Withheld bool     `json:"withheld"` // below the minimum payout, rolled into carry-over
}
