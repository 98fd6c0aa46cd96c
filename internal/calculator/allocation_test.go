package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeeRouter/internal/errors"
)

func TestPageAllocationTelescopes(t *testing.T) {
	const (
		pool     = 1_000_000
		y0       = 1_000_000
		maxShare = 8000
	)
	pages := [][]uint64{
		{120_000, 33_333},
		{250_001},
		{7, 99_999, 180_000},
	}

	var cum, sum uint64
	for _, page := range pages {
		var pageLocked uint64
		for _, l := range page {
			pageLocked += l
		}
		alloc, after, err := PageAllocation(pool, cum, pageLocked, y0, maxShare)
		require.NoError(t, err)
		cum += pageLocked
		sum += alloc

		want, err := CumulativeAllocation(pool, cum, y0, maxShare)
		require.NoError(t, err)
		assert.Equal(t, want, after)
	}

	single, err := CumulativeAllocation(pool, cum, y0, maxShare)
	require.NoError(t, err)
	assert.Equal(t, single, sum)
}

func TestPageAllocationMonotonic(t *testing.T) {
	var prev uint64
	for locked := uint64(0); locked <= 10_000; locked += 250 {
		got, err := CumulativeAllocation(50_000, locked, 10_000, 6000)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	assert.Equal(t, uint64(30_000), prev)
}

func TestPageAllocationExceedsBaseline(t *testing.T) {
	_, _, err := PageAllocation(1000, 900, 200, 1000, 10000)
	assert.True(t, errors.ErrLockedExceedsTotal.Is(err))
}

func TestPageAllocationZeroLocked(t *testing.T) {
	alloc, cum, err := PageAllocation(1000, 0, 0, 1000, 10000)
	require.NoError(t, err)
	assert.Zero(t, alloc)
	assert.Zero(t, cum)
}
