// Package calculator holds the pure integer math of the fee split. All
// functions floor their results and compute products in 128 bits.
package calculator

import (
	"math/bits"

	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
)

// LockedFractionBps returns floor(lockedTotal * 10000 / y0).
func LockedFractionBps(lockedTotal, y0 uint64) (uint64, error) {
	if y0 == 0 {
		return 0, errors.Wrap(errors.ErrOverflow, "zero baseline allocation")
	}
	if lockedTotal == 0 {
		return 0, nil
	}
	if lockedTotal > y0 {
		return 0, errors.Wrapf(errors.ErrLockedExceedsTotal, "locked %d > baseline %d", lockedTotal, y0)
	}
	return mulDiv(lockedTotal, model.BpsDenominator, y0)
}

// EligibleShareBps caps the locked fraction at the configured maximum share.
func EligibleShareBps(lockedFractionBps uint64, maxShareBps uint16) uint64 {
	return min(lockedFractionBps, uint64(maxShareBps))
}

// InvestorAllocation returns floor(totalAvailable * eligibleShareBps / 10000).
func InvestorAllocation(totalAvailable, eligibleShareBps uint64) (uint64, error) {
	return mulDiv(totalAvailable, eligibleShareBps, model.BpsDenominator)
}

// ApplyDailyCap splits available into the amount that still fits under the
// daily cap and the overflow carried to a later day. A zero cap is unlimited.
func ApplyDailyCap(available, dailyCap, alreadyDistributed uint64) (distributable, carry uint64) {
	if dailyCap == 0 {
		return available, 0
	}
	var remaining uint64
	if alreadyDistributed < dailyCap {
		remaining = dailyCap - alreadyDistributed
	}
	if available <= remaining {
		return available, 0
	}
	return remaining, available - remaining
}

// InvestorPayout returns floor(distributable * investorLocked / totalLocked).
func InvestorPayout(investorLocked, totalLocked, distributable uint64) (uint64, error) {
	if totalLocked == 0 {
		return 0, errors.Wrap(errors.ErrOverflow, "zero total locked")
	}
	if investorLocked == 0 {
		return 0, nil
	}
	return mulDiv(distributable, investorLocked, totalLocked)
}

// MeetsMinimumThreshold reports whether payout is large enough to transfer.
func MeetsMinimumThreshold(payout, minPayout uint64) bool {
	return payout >= minPayout
}

// mulDiv returns floor(a*b/c). The quotient must fit in 64 bits.
func mulDiv(a, b, c uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d*%d/%d", a, b, c)
	}
	quo, _ := bits.Div64(hi, lo, c)
	return quo, nil
}
