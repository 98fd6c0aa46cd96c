package distributor

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"

	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
)

func key(n byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = n
	k[31] = n
	return k
}

var (
	quoteMint     = key(1)
	baseMint      = key(2)
	treasuryQuote = key(10)
	treasuryBase  = key(11)
	creator       = key(12)
	authority     = key(13)
)

type account struct {
	mint    solana.PublicKey
	balance uint64
}

type transfer struct {
	from, to solana.PublicKey
	amount   uint64
}

// memLedger is an in-memory Ledger.
type memLedger struct {
	accounts  map[solana.PublicKey]*account
	transfers []transfer
}

func newMemLedger() *memLedger {
	return &memLedger{accounts: map[solana.PublicKey]*account{}}
}

func (l *memLedger) open(addr, mint solana.PublicKey) {
	l.accounts[addr] = &account{mint: mint}
}

func (l *memLedger) credit(addr solana.PublicKey, amount uint64) {
	l.accounts[addr].balance += amount
}

func (l *memLedger) balance(addr solana.PublicKey) uint64 {
	return l.accounts[addr].balance
}

func (l *memLedger) Balance(_ context.Context, addr solana.PublicKey) (uint64, error) {
	a, ok := l.accounts[addr]
	if !ok {
		return 0, errors.ErrInvalidAccount.Newf("%s", addr)
	}
	return a.balance, nil
}

func (l *memLedger) Mint(_ context.Context, addr solana.PublicKey) (solana.PublicKey, error) {
	a, ok := l.accounts[addr]
	if !ok {
		return solana.PublicKey{}, errors.ErrInvalidAccount.Newf("%s", addr)
	}
	return a.mint, nil
}

func (l *memLedger) Transfer(_ context.Context, from, to solana.PublicKey, amount uint64) error {
	src, ok := l.accounts[from]
	if !ok {
		return errors.ErrInvalidAccount.Newf("%s", from)
	}
	dst, ok := l.accounts[to]
	if !ok {
		return errors.ErrInvalidAccount.Newf("%s", to)
	}
	if src.mint != dst.mint {
		return errors.ErrInvalidQuoteMint.New("mint mismatch")
	}
	if src.balance < amount {
		return errors.ErrInsufficientAmount.Newf("%d < %d", src.balance, amount)
	}
	src.balance -= amount
	dst.balance += amount
	l.transfers = append(l.transfers, transfer{from: from, to: to, amount: amount})
	return nil
}

func (l *memLedger) transfersTo(addr solana.PublicKey) []transfer {
	var out []transfer
	for _, tr := range l.transfers {
		if tr.to == addr {
			out = append(out, tr)
		}
	}
	return out
}

// mockFees is a mock FeeSource.
type mockFees struct {
	mock.Mock
}

func (m *mockFees) Claim(ctx context.Context) (Claimed, error) {
	args := m.Called(ctx)
	return args.Get(0).(Claimed), args.Error(1)
}

// mapOracle reports fixed locked amounts.
type mapOracle map[solana.PublicKey]uint64

func (o mapOracle) LockedAmount(_ context.Context, stream solana.PublicKey, _ time.Time) (uint64, error) {
	locked, ok := o[stream]
	if !ok {
		return 0, errors.ErrInvalidStream.Newf("%s", stream)
	}
	return locked, nil
}

type fixture struct {
	t      *testing.T
	ledger *memLedger
	fees   *mockFees
	oracle mapOracle
	policy model.Policy
	now    time.Time
	opts   []Option
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t:      t,
		ledger: newMemLedger(),
		fees:   new(mockFees),
		oracle: mapOracle{},
		policy: model.Policy{
			BaselineAllocation:  1_000_000,
			MaxInvestorShareBps: 10_000,
			QuoteMint:           quoteMint,
			CreatorWallet:       creator,
			Authority:           authority,
		},
		now: time.Unix(1_760_000_000, 0),
	}
	f.ledger.open(treasuryQuote, quoteMint)
	f.ledger.open(treasuryBase, baseMint)
	f.ledger.open(creator, quoteMint)
	return f
}

func (f *fixture) engine() *Engine {
	opts := append([]Option{WithClock(func() time.Time { return f.now })}, f.opts...)
	return New(f.policy, Holdings{Base: treasuryBase, Quote: treasuryQuote}, f.fees, f.oracle, f.ledger, opts...)
}

// investor registers an investor with a quote destination and locked amount.
func (f *fixture) investor(n byte, locked uint64) model.Investor {
	inv := model.Investor{Stream: key(100 + n), Destination: key(150 + n)}
	f.ledger.open(inv.Destination, quoteMint)
	f.oracle[inv.Stream] = locked
	return inv
}

// expectClaim makes the next Claim move the given amounts into the treasury.
func (f *fixture) expectClaim(base, quote uint64) {
	f.fees.On("Claim", mock.Anything).
		Return(Claimed{Base: base, Quote: quote}, nil).
		Run(func(mock.Arguments) {
			f.ledger.credit(treasuryBase, base)
			f.ledger.credit(treasuryQuote, quote)
		}).
		Once()
}

func (f *fixture) run(p *model.Progress, page uint16, final bool, investors ...model.Investor) (*PageResult, error) {
	return f.engine().RunPage(context.Background(), p, PageRequest{
		PageIndex: page,
		Final:     final,
		Investors: investors,
	})
}
