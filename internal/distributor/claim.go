package distributor

import (
	"context"

	"go.uber.org/zap"

	"FeeRouter/internal/calculator"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
)

// claim collects the position fees and returns the quote amount that
// arrived in the treasury. Any base currency arriving is contamination.
func (e *Engine) claim(ctx context.Context) (uint64, error) {
	baseBefore, quoteBefore, err := e.holdingBalances(ctx)
	if err != nil {
		return 0, err
	}
	reported, err := e.fees.Claim(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "claim fees")
	}
	baseAfter, quoteAfter, err := e.holdingBalances(ctx)
	if err != nil {
		return 0, err
	}

	baseDelta, err := calculator.Sub(baseAfter, baseBefore)
	if err != nil {
		return 0, errors.Wrap(err, "base holding decreased during claim")
	}
	quoteDelta, err := calculator.Sub(quoteAfter, quoteBefore)
	if err != nil {
		return 0, errors.Wrap(err, "quote holding decreased during claim")
	}
	if baseDelta > 0 || reported.Base > 0 {
		return 0, errors.ErrBaseFeesDetected.Newf("claimed %d base", max(baseDelta, reported.Base))
	}
	if reported.Quote != quoteDelta {
		e.logger.Debug("claim report differs from balance change",
			zap.Uint64("reported", reported.Quote),
			zap.Uint64("received", quoteDelta))
	}
	return quoteDelta, nil
}

func (e *Engine) holdingBalances(ctx context.Context) (base, quote uint64, err error) {
	base, err = e.ledger.Balance(ctx, e.holdings.Base)
	if err != nil {
		return 0, 0, errors.Wrap(err, "base holding balance")
	}
	quote, err = e.ledger.Balance(ctx, e.holdings.Quote)
	if err != nil {
		return 0, 0, errors.Wrap(err, "quote holding balance")
	}
	return base, quote, nil
}

// openDay resets the day bookkeeping after a clean claim. The new day's
// pool is the claimed amount, the carry-over and whatever the previous day
// left unsettled because its final page never ran.
func openDay(p *model.Progress, claimed uint64, ts int64) error {
	var unsettled uint64
	if !p.CreatorPayoutSent {
		var err error
		unsettled, err = calculator.Sub(p.DayTotalAvailable, p.DayInvestorAllocation)
		if err != nil {
			return errors.Wrap(err, "unsettled day remainder")
		}
	}
	pool, err := calculator.Add(claimed, p.CarryOver)
	if err != nil {
		return err
	}
	if pool, err = calculator.Add(pool, unsettled); err != nil {
		return err
	}
	day, err := calculator.Add(p.CurrentDay, 1)
	if err != nil {
		return err
	}

	p.CurrentDay = day
	p.LastDistributionTs = ts
	p.DailyDistributedToInvestors = 0
	p.CarryOver = 0
	p.CurrentPage = 0
	p.PagesProcessedToday = 0
	p.InvestorsProcessedToday = 0
	p.CreatorPayoutSent = false
	p.HasBaseFees = false
	p.DayTotalAvailable = pool
	p.DayLockedTotal = 0
	p.DayInvestorAllocation = 0
	return nil
}
