// Package treasury keeps token accounts, the transfer journal and the fee
// position in the crank database. Every type here works on a store.Querier,
// so a page's transfers commit or roll back with the page.
package treasury

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"FeeRouter/internal/calculator"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/store"
)

// Account is a token account.
type Account struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
	Owner   solana.PublicKey `json:"owner"`
	Balance uint64           `json:"balance"`
}

// Transfer is a journal entry.
type Transfer struct {
	ID        int64            `json:"id"`
	RunID     string           `json:"run_id"`
	Timestamp int64            `json:"timestamp"`
	From      solana.PublicKey `json:"from"`
	To        solana.PublicKey `json:"to"`
	Mint      solana.PublicKey `json:"mint"`
	Amount    uint64           `json:"amount"`
}

// Ledger moves balances between accounts and journals every transfer
// under the run that made it.
type Ledger struct {
	q     store.Querier
	runID string
	now   func() time.Time
}

// NewLedger returns a Ledger bound to q.
func NewLedger(q store.Querier, runID string) *Ledger {
	return &Ledger{q: q, runID: runID, now: time.Now}
}

// OpenAccount creates an empty token account.
func (l *Ledger) OpenAccount(ctx context.Context, addr, mint, owner solana.PublicKey) error {
	if _, err := l.account(ctx, addr); err == nil {
		return errors.ErrDuplicate.Newf("account %s", addr)
	} else if !errors.ErrInvalidAccount.Is(err) {
		return err
	}
	_, err := l.q.ExecContext(ctx, `INSERT INTO accounts (address, mint, owner, balance) VALUES (?,?,?,0)`,
		addr.String(), mint.String(), owner.String())
	if err != nil {
		return fmt.Errorf("open account: %w", err)
	}
	return nil
}

func (l *Ledger) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	a, err := l.account(ctx, addr)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

func (l *Ledger) Mint(ctx context.Context, addr solana.PublicKey) (solana.PublicKey, error) {
	a, err := l.account(ctx, addr)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return a.Mint, nil
}

// Credit adds newly arrived funds to an account, e.g. claimed fees.
func (l *Ledger) Credit(ctx context.Context, addr solana.PublicKey, amount uint64) error {
	a, err := l.account(ctx, addr)
	if err != nil {
		return err
	}
	balance, err := calculator.Add(a.Balance, amount)
	if err != nil {
		return err
	}
	return l.setBalance(ctx, addr, balance)
}

// Deposit credits funds arriving from outside the ledger and journals them
// with from as the source.
func (l *Ledger) Deposit(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	dst, err := l.account(ctx, to)
	if err != nil {
		return err
	}
	if err := l.Credit(ctx, to, amount); err != nil {
		return err
	}
	return l.journal(ctx, from, to, dst.Mint, amount)
}

// Transfer moves amount from one account to another of the same mint.
func (l *Ledger) Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	if from == to {
		return errors.ErrInvalidAccount.Newf("transfer from %s to itself", from)
	}
	src, err := l.account(ctx, from)
	if err != nil {
		return err
	}
	dst, err := l.account(ctx, to)
	if err != nil {
		return err
	}
	if src.Mint != dst.Mint {
		return errors.ErrInvalidQuoteMint.Newf("%s holds %s, %s holds %s", from, src.Mint, to, dst.Mint)
	}
	if src.Balance < amount {
		return errors.ErrInsufficientAmount.Newf("%s has %d, need %d", from, src.Balance, amount)
	}
	dstBalance, err := calculator.Add(dst.Balance, amount)
	if err != nil {
		return err
	}
	if err := l.setBalance(ctx, from, src.Balance-amount); err != nil {
		return err
	}
	if err := l.setBalance(ctx, to, dstBalance); err != nil {
		return err
	}
	return l.journal(ctx, from, to, src.Mint, amount)
}

func (l *Ledger) journal(ctx context.Context, from, to, mint solana.PublicKey, amount uint64) error {
	_, err := l.q.ExecContext(ctx, `INSERT INTO transfers
		(run_id, timestamp, from_addr, to_addr, mint, amount) VALUES (?,?,?,?,?,?)`,
		l.runID, l.now().Unix(), from.String(), to.String(), mint.String(), store.Int(amount))
	if err != nil {
		return fmt.Errorf("journal transfer: %w", err)
	}
	return nil
}

// Accounts lists all token accounts.
func (l *Ledger) Accounts(ctx context.Context) ([]Account, error) {
	rows, err := l.q.QueryContext(ctx, `SELECT address, mint, owner, balance FROM accounts ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var addr, mint, owner string
		var balance int64
		if err := rows.Scan(&addr, &mint, &owner, &balance); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a, err := decodeAccount(addr, mint, owner, balance)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Transfers returns the latest journal entries, newest first.
func (l *Ledger) Transfers(ctx context.Context, limit int) ([]Transfer, error) {
	rows, err := l.q.QueryContext(ctx, `SELECT id, run_id, timestamp, from_addr, to_addr, mint, amount
		FROM transfers ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()
	var out []Transfer
	for rows.Next() {
		var (
			t              Transfer
			from, to, mint string
			amount         int64
		)
		if err := rows.Scan(&t.ID, &t.RunID, &t.Timestamp, &from, &to, &mint, &amount); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		if t.From, err = store.Key(from); err != nil {
			return nil, err
		}
		if t.To, err = store.Key(to); err != nil {
			return nil, err
		}
		if t.Mint, err = store.Key(mint); err != nil {
			return nil, err
		}
		t.Amount = store.Uint(amount)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (l *Ledger) account(ctx context.Context, addr solana.PublicKey) (Account, error) {
	var mint, owner string
	var balance int64
	err := l.q.QueryRowContext(ctx, `SELECT mint, owner, balance FROM accounts WHERE address = ?`, addr.String()).
		Scan(&mint, &owner, &balance)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Account{}, errors.ErrInvalidAccount.Newf("unknown account %s", addr)
	}
	if err != nil {
		return Account{}, fmt.Errorf("load account: %w", err)
	}
	return decodeAccount(addr.String(), mint, owner, balance)
}

func (l *Ledger) setBalance(ctx context.Context, addr solana.PublicKey, balance uint64) error {
	_, err := l.q.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE address = ?`, store.Int(balance), addr.String())
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

func decodeAccount(addr, mint, owner string, balance int64) (Account, error) {
	var (
		a   Account
		err error
	)
	if a.Address, err = store.Key(addr); err != nil {
		return Account{}, err
	}
	if a.Mint, err = store.Key(mint); err != nil {
		return Account{}, err
	}
	if a.Owner, err = store.Key(owner); err != nil {
		return Account{}, err
	}
	a.Balance = store.Uint(balance)
	return a, nil
}
