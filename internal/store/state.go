package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
)

// InitPolicy stores the policy. A policy can be stored only once.
func InitPolicy(ctx context.Context, q Querier, p model.Policy) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM policy`).Scan(&n); err != nil {
		return fmt.Errorf("count policy: %w", err)
	}
	if n > 0 {
		return errors.ErrDuplicate.New("policy already configured")
	}
	_, err := q.ExecContext(ctx, `INSERT INTO policy
		(id, baseline_allocation, max_investor_share_bps, daily_cap, min_payout,
		 quote_mint, creator_wallet, authority, created_at)
		VALUES (1,?,?,?,?,?,?,?,?)`,
		Int(p.BaselineAllocation), p.MaxInvestorShareBps, Int(p.DailyCap), Int(p.MinPayout),
		p.QuoteMint.String(), p.CreatorWallet.String(), p.Authority.String(),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

// LoadPolicy returns the stored policy or ErrNotFound.
func LoadPolicy(ctx context.Context, q Querier) (model.Policy, error) {
	var (
		p                        model.Policy
		baseline, dailyCap, minP int64
		quote, creator, auth     string
	)
	err := q.QueryRowContext(ctx, `SELECT baseline_allocation, max_investor_share_bps,
		daily_cap, min_payout, quote_mint, creator_wallet, authority
		FROM policy WHERE id = 1`).
		Scan(&baseline, &p.MaxInvestorShareBps, &dailyCap, &minP, &quote, &creator, &auth)
	if stderrors.Is(err, sql.ErrNoRows) {
		return model.Policy{}, errors.ErrNotFound.New("policy")
	}
	if err != nil {
		return model.Policy{}, fmt.Errorf("load policy: %w", err)
	}
	p.BaselineAllocation = Uint(baseline)
	p.DailyCap = Uint(dailyCap)
	p.MinPayout = Uint(minP)
	if p.QuoteMint, err = Key(quote); err != nil {
		return model.Policy{}, err
	}
	if p.CreatorWallet, err = Key(creator); err != nil {
		return model.Policy{}, err
	}
	if p.Authority, err = Key(auth); err != nil {
		return model.Policy{}, err
	}
	return p, nil
}

// LoadProgress returns the stored progress or ErrNotFound.
func LoadProgress(ctx context.Context, q Querier) (model.Progress, error) {
	var (
		p                                      model.Progress
		currentDay, distributed, carry, dust   int64
		dayAvailable, dayLocked, dayAllocation int64
		creatorSent, baseFees                  int
	)
	err := q.QueryRowContext(ctx, `SELECT last_distribution_ts, current_day,
		daily_distributed_to_investors, carry_over, current_page, pages_processed_today,
		total_investors, creator_payout_sent, has_base_fees, total_rounding_dust,
		day_total_available, day_locked_total, day_investor_allocation, investors_processed_today
		FROM progress WHERE id = 1`).
		Scan(&p.LastDistributionTs, &currentDay, &distributed, &carry, &p.CurrentPage,
			&p.PagesProcessedToday, &p.TotalInvestors, &creatorSent, &baseFees, &dust,
			&dayAvailable, &dayLocked, &dayAllocation, &p.InvestorsProcessedToday)
	if stderrors.Is(err, sql.ErrNoRows) {
		return model.Progress{}, errors.ErrNotFound.New("progress")
	}
	if err != nil {
		return model.Progress{}, fmt.Errorf("load progress: %w", err)
	}
	p.CurrentDay = Uint(currentDay)
	p.DailyDistributedToInvestors = Uint(distributed)
	p.CarryOver = Uint(carry)
	p.TotalRoundingDust = Uint(dust)
	p.DayTotalAvailable = Uint(dayAvailable)
	p.DayLockedTotal = Uint(dayLocked)
	p.DayInvestorAllocation = Uint(dayAllocation)
	p.CreatorPayoutSent = creatorSent != 0
	p.HasBaseFees = baseFees != 0
	return p, nil
}

// SaveProgress replaces the stored progress.
func SaveProgress(ctx context.Context, q Querier, p model.Progress) error {
	_, err := q.ExecContext(ctx, `INSERT INTO progress
		(id, last_distribution_ts, current_day, daily_distributed_to_investors, carry_over,
		 current_page, pages_processed_today, total_investors, creator_payout_sent,
		 has_base_fees, total_rounding_dust, day_total_available, day_locked_total,
		 day_investor_allocation, investors_processed_today, updated_at)
		VALUES (1,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
		 last_distribution_ts = excluded.last_distribution_ts,
		 current_day = excluded.current_day,
		 daily_distributed_to_investors = excluded.daily_distributed_to_investors,
		 carry_over = excluded.carry_over,
		 current_page = excluded.current_page,
		 pages_processed_today = excluded.pages_processed_today,
		 total_investors = excluded.total_investors,
		 creator_payout_sent = excluded.creator_payout_sent,
		 has_base_fees = excluded.has_base_fees,
		 total_rounding_dust = excluded.total_rounding_dust,
		 day_total_available = excluded.day_total_available,
		 day_locked_total = excluded.day_locked_total,
		 day_investor_allocation = excluded.day_investor_allocation,
		 investors_processed_today = excluded.investors_processed_today,
		 updated_at = excluded.updated_at`,
		p.LastDistributionTs, Int(p.CurrentDay), Int(p.DailyDistributedToInvestors), Int(p.CarryOver),
		p.CurrentPage, p.PagesProcessedToday, p.TotalInvestors, Bool(p.CreatorPayoutSent),
		Bool(p.HasBaseFees), Int(p.TotalRoundingDust), Int(p.DayTotalAvailable), Int(p.DayLockedTotal),
		Int(p.DayInvestorAllocation), p.InvestorsProcessedToday, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// MarkPaid records the streams settled on day. A stream already settled
// that day fails with ErrDuplicateInvestor. Rows of earlier days are dropped.
func MarkPaid(ctx context.Context, q Querier, day uint64, streams []solana.PublicKey) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM paid_streams WHERE day <> ?`, Int(day)); err != nil {
		return fmt.Errorf("prune paid streams: %w", err)
	}
	for _, s := range streams {
		var n int
		err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM paid_streams WHERE day = ? AND stream = ?`,
			Int(day), s.String()).Scan(&n)
		if err != nil {
			return fmt.Errorf("check paid stream: %w", err)
		}
		if n > 0 {
			return errors.ErrDuplicateInvestor.Newf("stream %s already settled on day %d", s, day)
		}
		if _, err := q.ExecContext(ctx, `INSERT INTO paid_streams (day, stream) VALUES (?,?)`,
			Int(day), s.String()); err != nil {
			return fmt.Errorf("mark paid stream: %w", err)
		}
	}
	return nil
}
