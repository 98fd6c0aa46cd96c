package crank

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"FeeRouter/internal/distributor"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
	"FeeRouter/internal/recorder"
	"FeeRouter/internal/store"
	"FeeRouter/internal/treasury"
)

// InitParams is everything a fresh crank database needs.
type InitParams struct {
	Policy   model.Policy
	Position treasury.PositionParams
	// TotalInvestors commits the investor count when non-zero.
	TotalInvestors uint16
}

// Init configures the policy, resets progress, registers the fee position
// and opens the creator's quote account. It runs once per database.
func (r *Runner) Init(ctx context.Context, params InitParams) (*treasury.Setup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	policy, err := distributor.Configure(params.Policy)
	if err != nil {
		return nil, err
	}
	var setup *treasury.Setup
	err = r.store.Update(ctx, func(q store.Querier) error {
		if err := store.InitPolicy(ctx, q, policy); err != nil {
			return err
		}
		progress := distributor.ResetProgress()
		if params.TotalInvestors > 0 {
			if err := distributor.CommitInvestorCount(&progress, params.TotalInvestors); err != nil {
				return err
			}
		}
		if err := store.SaveProgress(ctx, q, progress); err != nil {
			return err
		}

		var err error
		if setup, err = treasury.InitPosition(ctx, q, params.Position, policy.QuoteMint); err != nil {
			return err
		}
		ledger := treasury.NewLedger(q, "init")
		if err := ledger.OpenAccount(ctx, policy.CreatorWallet, policy.QuoteMint, policy.CreatorWallet); err != nil && !errors.ErrDuplicate.Is(err) {
			return err
		}
		return r.recorder.Record(ctx, q, uuid.New(), []model.Event{setup.Event})
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("crank initialized")
	return setup, nil
}

// Accrue records position fees earned since the last claim.
func (r *Runner) Accrue(ctx context.Context, base, quote uint64) (treasury.Position, error) {
	var pos treasury.Position
	err := r.store.Update(ctx, func(q store.Querier) error {
		var err error
		pos, err = treasury.Accrue(ctx, q, base, quote)
		return err
	})
	return pos, err
}

// ClearBase sweeps base fees stranded on the position into the base holding
// so that the next page 0 can claim cleanly. Progress is not touched: the
// quarantine marker clears when that page opens a new day.
func (r *Runner) ClearBase(ctx context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.New()
	var swept uint64
	err := r.store.Update(ctx, func(q store.Querier) error {
		pos, err := treasury.LoadPosition(ctx, q)
		if err != nil {
			return err
		}
		holdings, _, err := treasury.DeriveHoldings(r.programID, pos.BaseMint, pos.QuoteMint)
		if err != nil {
			return err
		}
		swept, err = treasury.SweepBase(ctx, q, treasury.NewLedger(q, runID.String()), holdings)
		return err
	})
	if err != nil {
		return 0, err
	}
	r.logger.Info("base fees swept",
		zap.String("run_id", runID.String()),
		zap.Uint64("amount", swept))
	return swept, nil
}

// Status is a read-only snapshot of the crank.
type Status struct {
	Policy          model.Policy      `json:"policy"`
	Progress        model.Progress    `json:"progress"`
	Position        treasury.Position `json:"position"`
	TreasuryBalance uint64            `json:"treasury_balance"`
	NextWindow      int64             `json:"next_window"`
	Quarantined     bool              `json:"quarantined"`
}

func (r *Runner) Status(ctx context.Context) (*Status, error) {
	s := &Status{}
	err := r.store.View(ctx, func(q store.Querier) error {
		var err error
		if s.Policy, err = store.LoadPolicy(ctx, q); err != nil {
			return err
		}
		if s.Progress, err = store.LoadProgress(ctx, q); err != nil {
			return err
		}
		if s.Position, err = treasury.LoadPosition(ctx, q); err != nil {
			return err
		}
		holdings, _, err := treasury.DeriveHoldings(r.programID, s.Position.BaseMint, s.Position.QuoteMint)
		if err != nil {
			return err
		}
		s.TreasuryBalance, err = treasury.NewLedger(q, "").Balance(ctx, holdings.Quote)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.NextWindow = distributor.NextWindow(&s.Progress)
	s.Quarantined = s.Progress.HasBaseFees
	return s, nil
}

// Events lists recorded events, newest first.
func (r *Runner) Events(ctx context.Context, f recorder.Filter) ([]recorder.Entry, error) {
	var entries []recorder.Entry
	err := r.store.View(ctx, func(q store.Querier) error {
		var err error
		entries, err = r.recorder.List(ctx, q, f)
		return err
	})
	return entries, err
}

// Transfers lists the most recent ledger transfers.
func (r *Runner) Transfers(ctx context.Context, limit int) ([]treasury.Transfer, error) {
	var out []treasury.Transfer
	err := r.store.View(ctx, func(q store.Querier) error {
		var err error
		out, err = treasury.NewLedger(q, "").Transfers(ctx, limit)
		return err
	})
	return out, err
}
