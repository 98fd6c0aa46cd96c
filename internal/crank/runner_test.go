package crank

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"FeeRouter/internal/distributor"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
	"FeeRouter/internal/recorder"
	"FeeRouter/internal/store"
	"FeeRouter/internal/treasury"
	"FeeRouter/internal/vesting"
)

func key(n byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = n
	k[31] = 0x5C
	return k
}

var (
	programID = key(1)
	quoteMint = key(2)
	baseMint  = key(3)
	creator   = key(4)
	authority = key(5)
)

type harness struct {
	t      *testing.T
	store  *store.Store
	runner *Runner
	now    time.Time
}

// newHarness sets up a crank with one stream per locked amount, each fully
// locked, paging pageSize investors at a time.
func newHarness(t *testing.T, pageSize int, locked ...uint64) *harness {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "crank.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	var entries []string
	for i, amount := range locked {
		entries = append(entries, fmt.Sprintf(`{"key":%q,"recipient":%q,"net_deposited":%d}`,
			key(byte(100+i)), key(byte(150+i)), amount))
	}
	path := filepath.Join(dir, "streams.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"streams":[`+strings.Join(entries, ",")+`]}`), 0o600))
	oracle, err := vesting.LoadFile(path)
	require.NoError(t, err)

	h := &harness{t: t, store: st, now: time.Unix(1_700_000_000, 0)}
	h.runner = NewRunner(st, recorder.NewSQLiteRecorder(zap.NewNop()), oracle, oracle, programID,
		WithMaxInvestorsPerPage(pageSize),
		WithClock(func() time.Time { return h.now }))
	return h
}

func (h *harness) init(policy model.Policy, totalInvestors uint16) {
	h.t.Helper()
	_, err := h.runner.Init(context.Background(), InitParams{
		Policy: policy,
		Position: treasury.PositionParams{
			ProgramID: programID,
			Vault:     key(20),
			Pool:      key(21),
			Address:   key(22),
			MintA:     baseMint,
			MintB:     quoteMint,
		},
		TotalInvestors: totalInvestors,
	})
	require.NoError(h.t, err)
}

func (h *harness) balance(addr solana.PublicKey) uint64 {
	h.t.Helper()
	var b uint64
	require.NoError(h.t, h.store.View(context.Background(), func(q store.Querier) error {
		var err error
		b, err = treasury.NewLedger(q, "").Balance(context.Background(), addr)
		return err
	}))
	return b
}

func testPolicy(baseline uint64) model.Policy {
	return model.Policy{
		BaselineAllocation:  baseline,
		MaxInvestorShareBps: 10_000,
		DailyCap:            0,
		MinPayout:           0,
		QuoteMint:           quoteMint,
		CreatorWallet:       creator,
		Authority:           authority,
	}
}

func TestRunDayAcrossPages(t *testing.T) {
	h := newHarness(t, 2, 1_000, 2_000, 1_000)
	policy := testPolicy(5_000)
	policy.DailyCap = 1 << 62
	h.init(policy, 0)
	ctx := context.Background()

	_, err := h.runner.Accrue(ctx, 0, 10_000)
	require.NoError(t, err)

	report, err := h.runner.RunDay(ctx)
	require.NoError(t, err)
	require.Len(t, report.Pages, 2)
	assert.True(t, report.Closed)
	assert.Equal(t, uint64(1), report.Day)
	assert.Equal(t, uint64(10_000), report.Claimed)
	assert.Equal(t, uint64(8_000), report.Distributed)
	assert.Equal(t, uint64(2_000), report.CreatorAmount)
	assert.Equal(t, 3, report.InvestorsPaid())

	assert.Equal(t, uint64(2_000), h.balance(key(150)))
	assert.Equal(t, uint64(4_000), h.balance(key(151)))
	assert.Equal(t, uint64(2_000), h.balance(key(152)))
	assert.Equal(t, uint64(2_000), h.balance(creator))

	status, err := h.runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), status.TreasuryBalance)
	assert.True(t, status.Progress.CreatorPayoutSent)
	assert.Equal(t, h.now.Unix()+86_400, status.NextWindow)

	_, err = h.runner.RunDay(ctx)
	assert.True(t, errors.ErrWindowNotElapsed.Is(err), "got %v", err)

	events, err := h.runner.Events(ctx, recorder.Filter{Day: 1})
	require.NoError(t, err)
	// FeesClaimed, two PageSettled, DayClosed.
	assert.Len(t, events, 4)

	transfers, err := h.runner.Transfers(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, transfers, 4)
}

func TestRunDayCapCarriesToNextDay(t *testing.T) {
	h := newHarness(t, 10, 4_000)
	policy := testPolicy(4_000)
	policy.DailyCap = 3_000
	h.init(policy, 0)
	ctx := context.Background()

	_, err := h.runner.Accrue(ctx, 0, 5_000)
	require.NoError(t, err)
	report, err := h.runner.RunDay(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000), report.Distributed)
	assert.Equal(t, uint64(2_000), report.CapOverflow)
	assert.Equal(t, uint64(0), report.CreatorAmount)
	assert.Equal(t, uint64(2_000), h.balance(treasuryQuote(t)))

	h.now = h.now.Add(24 * time.Hour)
	report, err = h.runner.RunDay(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000), report.Distributed)
	assert.Equal(t, uint64(5_000), h.balance(key(150)))
	assert.Equal(t, uint64(0), h.balance(treasuryQuote(t)))
}

func treasuryQuote(t *testing.T) solana.PublicKey {
	t.Helper()
	holdings, _, err := treasury.DeriveHoldings(programID, baseMint, quoteMint)
	require.NoError(t, err)
	return holdings.Quote
}

func TestRunDayWithoutInvestorsPaysCreator(t *testing.T) {
	h := newHarness(t, 5)
	h.init(testPolicy(1_000), 0)
	ctx := context.Background()

	_, err := h.runner.Accrue(ctx, 0, 750)
	require.NoError(t, err)
	report, err := h.runner.RunDay(ctx)
	require.NoError(t, err)
	require.Len(t, report.Pages, 1)
	assert.Equal(t, uint64(750), report.CreatorAmount)
	assert.Equal(t, uint64(750), h.balance(creator))
}

func TestBaseFeesQuarantine(t *testing.T) {
	h := newHarness(t, 5, 1_000)
	h.init(testPolicy(1_000), 0)
	ctx := context.Background()

	_, err := h.runner.Accrue(ctx, 25, 1_000)
	require.NoError(t, err)

	_, err = h.runner.RunDay(ctx)
	assert.True(t, errors.ErrBaseFeesDetected.Is(err), "got %v", err)

	status, err := h.runner.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Quarantined)
	assert.Equal(t, uint64(0), status.Progress.CurrentDay)
	assert.Equal(t, uint64(25), status.Position.AccruedBase, "claim rolled back")
	assert.Equal(t, uint64(0), status.TreasuryBalance)

	events, err := h.runner.Events(ctx, recorder.Filter{Kind: model.EventFeesClaimed})
	require.NoError(t, err)
	assert.Empty(t, events)

	// Later windows keep finding the same base fees.
	h.now = h.now.Add(48 * time.Hour)
	_, err = h.runner.Accrue(ctx, 0, 500)
	require.NoError(t, err)
	_, err = h.runner.RunDay(ctx)
	assert.True(t, errors.ErrBaseFeesDetected.Is(err), "got %v", err)
}

func TestClearBaseLiftsQuarantine(t *testing.T) {
	h := newHarness(t, 5, 1_000)
	h.init(testPolicy(1_000), 0)
	ctx := context.Background()

	_, err := h.runner.Accrue(ctx, 25, 1_000)
	require.NoError(t, err)
	_, err = h.runner.RunDay(ctx)
	require.True(t, errors.ErrBaseFeesDetected.Is(err), "got %v", err)

	swept, err := h.runner.ClearBase(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), swept)

	status, err := h.runner.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Position.AccruedBase)
	assert.Equal(t, uint64(1_000), status.Position.AccruedQuote)
	assert.True(t, status.Quarantined, "cleared by the next day, not the sweep")

	holdings, _, err := treasury.DeriveHoldings(programID, baseMint, quoteMint)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), h.balance(holdings.Base))

	transfers, err := h.runner.Transfers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, key(22), transfers[0].From)
	assert.Equal(t, holdings.Base, transfers[0].To)

	report, err := h.runner.RunDay(ctx)
	require.NoError(t, err)
	assert.True(t, report.Closed)
	assert.Equal(t, uint64(1), report.Day)
	assert.Equal(t, uint64(1_000), report.Claimed)
	assert.Equal(t, uint64(1_000), report.Distributed)

	status, err = h.runner.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Quarantined)
	assert.False(t, status.Progress.HasBaseFees)

	swept, err = h.runner.ClearBase(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestCommittedInvestorCount(t *testing.T) {
	h := newHarness(t, 1, 500, 500)
	h.init(testPolicy(1_000), 3)
	ctx := context.Background()

	_, err := h.runner.Accrue(ctx, 0, 1_000)
	require.NoError(t, err)

	// The registry is one short of the committed count.
	report, err := h.runner.RunDay(ctx)
	assert.True(t, errors.ErrPrematureFinalPage.Is(err), "got %v", err)
	require.Len(t, report.Pages, 1)
	assert.False(t, report.Closed)

	status, err := h.runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), status.Progress.CurrentPage)
	assert.Equal(t, uint16(3), status.Progress.TotalInvestors)
}

func TestInitTwice(t *testing.T) {
	h := newHarness(t, 5)
	h.init(testPolicy(1_000), 0)
	_, err := h.runner.Init(context.Background(), InitParams{Policy: testPolicy(1_000)})
	assert.True(t, errors.ErrDuplicate.Is(err), "got %v", err)

	_, err = h.runner.Init(context.Background(), InitParams{Policy: model.Policy{}})
	assert.True(t, errors.ErrInvalidPolicy.Is(err), "got %v", err)

	events, err := h.runner.Events(context.Background(), recorder.Filter{Kind: model.EventPositionInitialized})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRunPageExplicit(t *testing.T) {
	h := newHarness(t, 5, 1_000, 1_000)
	h.init(testPolicy(2_000), 0)
	ctx := context.Background()

	_, err := h.runner.RunPage(ctx, distributorPage(1, false, 1))
	assert.True(t, errors.ErrInvalidPageIndex.Is(err), "got %v", err)

	res, err := h.runner.RunPage(ctx, distributorPage(0, false, 0))
	require.NoError(t, err)
	assert.False(t, res.Final)

	res, err = h.runner.RunPage(ctx, distributorPage(1, true, 1))
	require.NoError(t, err)
	assert.True(t, res.Final)

	_, err = h.runner.RunPage(ctx, distributorPage(2, false, 0))
	assert.True(t, errors.ErrAllPagesProcessed.Is(err), "got %v", err)

	_, err = h.runner.RunNext(ctx)
	assert.True(t, errors.ErrWindowNotElapsed.Is(err), "got %v", err)

	h.now = h.now.Add(24 * time.Hour)
	res, err = h.runner.RunNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Day)
}

func TestRunPageRejectsStreamPaidEarlierToday(t *testing.T) {
	h := newHarness(t, 5, 1_000, 1_000)
	h.init(testPolicy(2_000), 0)
	ctx := context.Background()

	_, err := h.runner.Accrue(ctx, 0, 2_000)
	require.NoError(t, err)

	_, err = h.runner.RunPage(ctx, distributorPage(0, false, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), h.balance(key(150)))

	_, err = h.runner.RunPage(ctx, distributorPage(1, true, 0))
	assert.True(t, errors.ErrDuplicateInvestor.Is(err), "got %v", err)
	assert.Equal(t, uint64(1_000), h.balance(key(150)), "second payout rolled back")

	status, err := h.runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), status.Progress.CurrentPage)

	res, err := h.runner.RunPage(ctx, distributorPage(1, true, 1))
	require.NoError(t, err)
	assert.True(t, res.Final)
	assert.Equal(t, uint64(1_000), h.balance(key(151)))

	// a new day pays the same stream again
	h.now = h.now.Add(24 * time.Hour)
	_, err = h.runner.Accrue(ctx, 0, 2_000)
	require.NoError(t, err)
	_, err = h.runner.RunPage(ctx, distributorPage(0, false, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000), h.balance(key(150)))
}

type failingRegistry struct{ err error }

func (f failingRegistry) Investors(context.Context) ([]model.Investor, error) {
	return nil, f.err
}

func TestRunNextKeepsRegistryErrorRoot(t *testing.T) {
	h := newHarness(t, 5, 1_000)
	h.init(testPolicy(1_000), 0)
	h.runner.registry = failingRegistry{err: errors.ErrInvalidStream.New("net_deposited is not a number")}

	_, err := h.runner.RunNext(context.Background())
	assert.True(t, errors.ErrInvalidStream.Is(err), "got %v", err)
	assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))
}

func distributorPage(index uint16, final bool, stream byte) distributor.PageRequest {
	return distributor.PageRequest{
		PageIndex: index,
		Final:     final,
		Investors: []model.Investor{{Stream: key(100 + stream), Destination: key(150 + stream)}},
	}
}
