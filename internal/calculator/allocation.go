package calculator

// CumulativeAllocation is the investor allocation of a day pool for a
// cumulative locked total: InvestorAllocation(pool, EligibleShareBps(
// LockedFractionBps(locked, y0), maxShareBps)).
func CumulativeAllocation(pool, locked, y0 uint64, maxShareBps uint16) (uint64, error) {
	fraction, err := LockedFractionBps(locked, y0)
	if err != nil {
		return 0, err
	}
	return InvestorAllocation(pool, EligibleShareBps(fraction, maxShareBps))
}

// PageAllocation returns the part of the day's investor allocation earned by
// a page whose locked total moves the day's cumulative locked total from
// lockedBefore to lockedBefore+pageLocked. Summed over every page of a day the
// results equal CumulativeAllocation of the day's total locked.
func PageAllocation(pool, lockedBefore, pageLocked, y0 uint64, maxShareBps uint16) (alloc, cumulative uint64, err error) {
	lockedAfter, err := Add(lockedBefore, pageLocked)
	if err != nil {
		return 0, 0, err
	}
	before, err := CumulativeAllocation(pool, lockedBefore, y0, maxShareBps)
	if err != nil {
		return 0, 0, err
	}
	after, err := CumulativeAllocation(pool, lockedAfter, y0, maxShareBps)
	if err != nil {
		return 0, 0, err
	}
	return after - before, after, nil
}
