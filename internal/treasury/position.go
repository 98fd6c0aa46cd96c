package treasury

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"FeeRouter/internal/calculator"
	"FeeRouter/internal/distributor"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
	"FeeRouter/internal/store"
)

// Position is the fee-earning position whose fees the crank distributes.
type Position struct {
	Address      solana.PublicKey `json:"address"`
	Pool         solana.PublicKey `json:"pool"`
	Owner        solana.PublicKey `json:"owner"`
	BaseMint     solana.PublicKey `json:"base_mint"`
	QuoteMint    solana.PublicKey `json:"quote_mint"`
	AccruedBase  uint64           `json:"accrued_base"`
	AccruedQuote uint64           `json:"accrued_quote"`
	CreatedAt    int64            `json:"created_at"`
}

// PositionParams describes the pool a position is opened on.
type PositionParams struct {
	ProgramID solana.PublicKey
	Vault     solana.PublicKey
	Pool      solana.PublicKey
	Address   solana.PublicKey
	MintA     solana.PublicKey
	MintB     solana.PublicKey
}

// Setup is the result of InitPosition.
type Setup struct {
	Position Position
	Holdings distributor.Holdings
	Event    model.PositionInitialized
}

// InitPosition registers the fee position and opens the treasury holdings
// for both pool mints. The quote mint must be one of the two pool mints.
func InitPosition(ctx context.Context, q store.Querier, params PositionParams, quoteMint solana.PublicKey) (*Setup, error) {
	if params.MintA == params.MintB {
		return nil, errors.ErrInvalidQuoteMint.New("pool mints are identical")
	}
	var baseMint solana.PublicKey
	switch quoteMint {
	case params.MintA:
		baseMint = params.MintB
	case params.MintB:
		baseMint = params.MintA
	default:
		return nil, errors.ErrInvalidQuoteMint.Newf("%s is not a mint of pool %s", quoteMint, params.Pool)
	}
	if _, err := LoadPosition(ctx, q); err == nil {
		return nil, errors.ErrDuplicate.New("position already initialized")
	} else if !errors.ErrNotFound.Is(err) {
		return nil, err
	}

	owner, err := DerivePositionOwner(params.ProgramID, params.Vault)
	if err != nil {
		return nil, fmt.Errorf("derive position owner: %w", err)
	}
	holdings, authority, err := DeriveHoldings(params.ProgramID, baseMint, quoteMint)
	if err != nil {
		return nil, err
	}

	ledger := NewLedger(q, "init")
	if err := ledger.OpenAccount(ctx, holdings.Base, baseMint, authority); err != nil {
		return nil, err
	}
	if err := ledger.OpenAccount(ctx, holdings.Quote, quoteMint, authority); err != nil {
		return nil, err
	}

	pos := Position{
		Address:   params.Address,
		Pool:      params.Pool,
		Owner:     owner,
		BaseMint:  baseMint,
		QuoteMint: quoteMint,
		CreatedAt: time.Now().Unix(),
	}
	_, err = q.ExecContext(ctx, `INSERT INTO position
		(id, address, pool, owner, base_mint, quote_mint, accrued_base, accrued_quote, created_at)
		VALUES (1,?,?,?,?,?,0,0,?)`,
		pos.Address.String(), pos.Pool.String(), pos.Owner.String(),
		pos.BaseMint.String(), pos.QuoteMint.String(), pos.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert position: %w", err)
	}

	return &Setup{
		Position: pos,
		Holdings: holdings,
		Event: model.PositionInitialized{
			Position:  pos.Address,
			Pool:      pos.Pool,
			Owner:     pos.Owner,
			QuoteMint: quoteMint,
			Timestamp: pos.CreatedAt,
		},
	}, nil
}

// DeriveHoldings returns the treasury holding accounts and their owner.
func DeriveHoldings(programID, baseMint, quoteMint solana.PublicKey) (distributor.Holdings, solana.PublicKey, error) {
	authority, err := DeriveTreasuryAuthority(programID)
	if err != nil {
		return distributor.Holdings{}, solana.PublicKey{}, fmt.Errorf("derive treasury authority: %w", err)
	}
	base, err := DeriveHolding(programID, authority, baseMint)
	if err != nil {
		return distributor.Holdings{}, solana.PublicKey{}, fmt.Errorf("derive base holding: %w", err)
	}
	quote, err := DeriveHolding(programID, authority, quoteMint)
	if err != nil {
		return distributor.Holdings{}, solana.PublicKey{}, fmt.Errorf("derive quote holding: %w", err)
	}
	return distributor.Holdings{Base: base, Quote: quote}, authority, nil
}

// LoadPosition returns the registered position or ErrNotFound.
func LoadPosition(ctx context.Context, q store.Querier) (Position, error) {
	var (
		p                                     Position
		addr, pool, owner, baseMint, quoteMnt string
		accruedBase, accruedQuote             int64
	)
	err := q.QueryRowContext(ctx, `SELECT address, pool, owner, base_mint, quote_mint,
		accrued_base, accrued_quote, created_at FROM position WHERE id = 1`).
		Scan(&addr, &pool, &owner, &baseMint, &quoteMnt, &accruedBase, &accruedQuote, &p.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Position{}, errors.ErrNotFound.New("position")
	}
	if err != nil {
		return Position{}, fmt.Errorf("load position: %w", err)
	}
	for _, f := range []struct {
		dst *solana.PublicKey
		src string
	}{
		{&p.Address, addr}, {&p.Pool, pool}, {&p.Owner, owner},
		{&p.BaseMint, baseMint}, {&p.QuoteMint, quoteMnt},
	} {
		if *f.dst, err = store.Key(f.src); err != nil {
			return Position{}, err
		}
	}
	p.AccruedBase = store.Uint(accruedBase)
	p.AccruedQuote = store.Uint(accruedQuote)
	return p, nil
}

// Accrue records fees earned by the position since the last claim.
func Accrue(ctx context.Context, q store.Querier, base, quote uint64) (Position, error) {
	p, err := LoadPosition(ctx, q)
	if err != nil {
		return Position{}, err
	}
	if p.AccruedBase, err = calculator.Add(p.AccruedBase, base); err != nil {
		return Position{}, err
	}
	if p.AccruedQuote, err = calculator.Add(p.AccruedQuote, quote); err != nil {
		return Position{}, err
	}
	if err := setAccrued(ctx, q, p.AccruedBase, p.AccruedQuote); err != nil {
		return Position{}, err
	}
	return p, nil
}

func setAccrued(ctx context.Context, q store.Querier, base, quote uint64) error {
	_, err := q.ExecContext(ctx, `UPDATE position SET accrued_base = ?, accrued_quote = ? WHERE id = 1`,
		store.Int(base), store.Int(quote))
	if err != nil {
		return fmt.Errorf("update accrued fees: %w", err)
	}
	return nil
}

// SweepBase moves the accrued base fees into the base holding outside the
// distribution path and journals the move. Accrued quote is left for the
// next claim. It returns the swept amount.
func SweepBase(ctx context.Context, q store.Querier, ledger *Ledger, holdings distributor.Holdings) (uint64, error) {
	p, err := LoadPosition(ctx, q)
	if err != nil {
		return 0, err
	}
	if p.AccruedBase == 0 {
		return 0, nil
	}
	if err := ledger.Deposit(ctx, p.Address, holdings.Base, p.AccruedBase); err != nil {
		return 0, err
	}
	if err := setAccrued(ctx, q, 0, p.AccruedQuote); err != nil {
		return 0, err
	}
	return p.AccruedBase, nil
}

// FeeSource claims the position's accrued fees into the treasury holdings.
type FeeSource struct {
	q        store.Querier
	ledger   *Ledger
	holdings distributor.Holdings
}

// NewFeeSource returns a FeeSource that credits holdings through ledger.
func NewFeeSource(q store.Querier, ledger *Ledger, holdings distributor.Holdings) *FeeSource {
	return &FeeSource{q: q, ledger: ledger, holdings: holdings}
}

// Claim moves all accrued fees into the holdings and resets the accrual.
func (f *FeeSource) Claim(ctx context.Context) (distributor.Claimed, error) {
	p, err := LoadPosition(ctx, f.q)
	if err != nil {
		return distributor.Claimed{}, err
	}
	if p.AccruedBase > 0 {
		if err := f.ledger.Credit(ctx, f.holdings.Base, p.AccruedBase); err != nil {
			return distributor.Claimed{}, err
		}
	}
	if p.AccruedQuote > 0 {
		if err := f.ledger.Credit(ctx, f.holdings.Quote, p.AccruedQuote); err != nil {
			return distributor.Claimed{}, err
		}
	}
	if err := setAccrued(ctx, f.q, 0, 0); err != nil {
		return distributor.Claimed{}, err
	}
	return distributor.Claimed{Base: p.AccruedBase, Quote: p.AccruedQuote}, nil
}
