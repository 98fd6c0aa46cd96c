// Package vesting reports how much of each investor's allocation is still
// locked in its vesting stream.
package vesting

import (
	"context"
	"math/bits"
	"time"

	"github.com/gagliardetto/solana-go"

	"FeeRouter/internal/model"
)

// Stream is a stepped linear vesting schedule with an optional cliff.
// Period and AmountPerPeriod describe the release after Start; CliffAmount
// is released at once at Cliff.
type Stream struct {
	Key             solana.PublicKey `json:"key"`
	Recipient       solana.PublicKey `json:"recipient"`
	NetDeposited    uint64           `json:"net_deposited"`
	Start           int64            `json:"start"`
	Period          int64            `json:"period"`
	AmountPerPeriod uint64           `json:"amount_per_period"`
	Cliff           int64            `json:"cliff"`
	CliffAmount     uint64           `json:"cliff_amount"`
}

// Unlocked returns the amount released by at.
func (s Stream) Unlocked(at time.Time) uint64 {
	ts := at.Unix()
	var cliff uint64
	if s.CliffAmount > 0 && ts >= s.Cliff {
		cliff = min(s.CliffAmount, s.NetDeposited)
	}
	var vested uint64
	if s.Period > 0 && ts >= s.Start {
		periods := uint64((ts - s.Start) / s.Period)
		hi, lo := bits.Mul64(periods, s.AmountPerPeriod)
		vested = lo
		if hi != 0 {
			vested = s.NetDeposited
		}
		vested = min(vested, s.NetDeposited-cliff)
	}
	return cliff + vested
}

// Locked returns the amount still locked at at, never below zero.
func (s Stream) Locked(at time.Time) uint64 {
	unlocked := s.Unlocked(at)
	if unlocked >= s.NetDeposited {
		return 0
	}
	return s.NetDeposited - unlocked
}

// Investor returns the page entry for the stream.
func (s Stream) Investor() model.Investor {
	return model.Investor{Stream: s.Key, Destination: s.Recipient}
}

// Registry lists the investors a day covers, in a stable order.
type Registry interface {
	Investors(ctx context.Context) ([]model.Investor, error)
}
