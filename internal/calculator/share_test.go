package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeeRouter/internal/errors"
)

func TestLockedFractionBps(t *testing.T) {
	cases := map[string]struct {
		locked, y0 uint64
		want       uint64
		wantErr    *errors.Error
	}{
		"half locked":      {locked: 5000, y0: 10000, want: 5000},
		"fully locked":     {locked: 10000, y0: 10000, want: 10000},
		"nothing locked":   {locked: 0, y0: 10000, want: 0},
		"quarter locked":   {locked: 2500, y0: 10000, want: 2500},
		"floors":           {locked: 1, y0: 3, want: 3333},
		"large values":     {locked: math.MaxUint64 / 2, y0: math.MaxUint64, want: 4999},
		"zero baseline":    {locked: 1, y0: 0, wantErr: errors.ErrOverflow},
		"exceeds baseline": {locked: 10001, y0: 10000, wantErr: errors.ErrLockedExceedsTotal},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := LockedFractionBps(tc.locked, tc.y0)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tc.wantErr.Is(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEligibleShareBps(t *testing.T) {
	assert.Equal(t, uint64(3000), EligibleShareBps(3000, 5000))
	assert.Equal(t, uint64(5000), EligibleShareBps(8000, 5000))
	assert.Equal(t, uint64(5000), EligibleShareBps(5000, 5000))
	assert.Equal(t, uint64(0), EligibleShareBps(8000, 0))
}

func TestInvestorAllocation(t *testing.T) {
	got, err := InvestorAllocation(10000, 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), got)

	got, err = InvestorAllocation(10000, 2500)
	require.NoError(t, err)
	assert.Equal(t, uint64(2500), got)

	got, err = InvestorAllocation(10000, 10000)
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), got)

	got, err = InvestorAllocation(math.MaxUint64, 10000)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)

	got, err = InvestorAllocation(999, 3333)
	require.NoError(t, err)
	assert.Equal(t, uint64(332), got)
}

func TestApplyDailyCap(t *testing.T) {
	cases := map[string]struct {
		available, dailyCap, already uint64
		distributable, carry         uint64
	}{
		"unlimited":         {10000, 0, 0, 10000, 0},
		"within cap":        {5000, 10000, 0, 5000, 0},
		"exceeds cap":       {15000, 10000, 0, 10000, 5000},
		"partially used":    {8000, 10000, 3000, 7000, 1000},
		"cap exhausted":     {8000, 10000, 10000, 0, 8000},
		"already above cap": {8000, 10000, 12000, 0, 8000},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d, c := ApplyDailyCap(tc.available, tc.dailyCap, tc.already)
			assert.Equal(t, tc.distributable, d)
			assert.Equal(t, tc.carry, c)
			assert.Equal(t, tc.available, d+c)
		})
	}
}

func TestInvestorPayout(t *testing.T) {
	got, err := InvestorPayout(3000, 10000, 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), got)

	got, err = InvestorPayout(5000, 10000, 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(2500), got)

	got, err = InvestorPayout(0, 10000, 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)

	got, err = InvestorPayout(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)

	_, err = InvestorPayout(1, 0, 5000)
	assert.True(t, errors.ErrOverflow.Is(err))
}

func TestInvestorPayoutProportional(t *testing.T) {
	// Payouts never exceed the distributable amount and the shortfall is
	// below one unit per investor.
	locked := []uint64{1, 7, 333, 12345, 99999}
	var total uint64
	for _, l := range locked {
		total += l
	}
	const distributable = 1_000_003
	var paid uint64
	for _, l := range locked {
		p, err := InvestorPayout(l, total, distributable)
		require.NoError(t, err)
		paid += p
	}
	assert.LessOrEqual(t, paid, uint64(distributable))
	assert.Less(t, uint64(distributable)-paid, uint64(len(locked)))
}

func TestMeetsMinimumThreshold(t *testing.T) {
	assert.True(t, MeetsMinimumThreshold(1000, 500))
	assert.True(t, MeetsMinimumThreshold(500, 500))
	assert.False(t, MeetsMinimumThreshold(499, 500))
	assert.False(t, MeetsMinimumThreshold(0, 1))
	assert.True(t, MeetsMinimumThreshold(0, 0))
}

func TestMulDivOverflow(t *testing.T) {
	_, err := mulDiv(math.MaxUint64, 2, 1)
	assert.True(t, errors.ErrOverflow.Is(err))
}

func TestChecked(t *testing.T) {
	s, err := Add(2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), s)
	_, err = Add(math.MaxUint64, 1)
	assert.True(t, errors.ErrOverflow.Is(err))

	d, err := Sub(5, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), d)
	_, err = Sub(3, 5)
	assert.True(t, errors.ErrOverflow.Is(err))

	p, err := AddUint16(65534, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), p)
	_, err = AddUint16(65535, 1)
	assert.True(t, errors.ErrOverflow.Is(err))
}
