package distributor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"FeeRouter/internal/calculator"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
)

// settlePage pays the investors of one batch pro-rata to their locked
// balances and books the page into p.
func (e *Engine) settlePage(ctx context.Context, p *model.Progress, req PageRequest, now time.Time, res *PageResult) error {
	locked := make([]uint64, len(req.Investors))
	var pageLocked uint64
	for i, inv := range req.Investors {
		amount, err := e.oracle.LockedAmount(ctx, inv.Stream, now)
		if err != nil {
			return errors.Wrapf(err, "locked amount of %s", inv.Stream)
		}
		locked[i] = amount
		if pageLocked, err = calculator.Add(pageLocked, amount); err != nil {
			return err
		}
	}

	alloc, cumulative, err := calculator.PageAllocation(
		p.DayTotalAvailable, p.DayLockedTotal, pageLocked,
		e.policy.BaselineAllocation, e.policy.MaxInvestorShareBps)
	if err != nil {
		return err
	}
	distributable, capOverflow := calculator.ApplyDailyCap(alloc, e.policy.DailyCap, p.DailyDistributedToInvestors)

	var computed, paid, withheld uint64
	var investorsPaid uint16
	// A page with nothing locked earns no allocation and pays nobody.
	if pageLocked > 0 {
		for i, inv := range req.Investors {
			amount, err := calculator.InvestorPayout(locked[i], pageLocked, distributable)
			if err != nil {
				return err
			}
			payout := model.Payout{Investor: inv, Locked: locked[i], Amount: amount}
			computed += amount
			switch {
			case amount == 0:
			case !calculator.MeetsMinimumThreshold(amount, e.policy.MinPayout):
				payout.Withheld = true
				withheld += amount
			default:
				if err := e.ledger.Transfer(ctx, e.holdings.Quote, inv.Destination, amount); err != nil {
					return errors.Wrapf(err, "pay investor %s", inv.Stream)
				}
				paid += amount
				investorsPaid++
			}
			res.Payouts = append(res.Payouts, payout)
		}
	}
	roundingDust, err := calculator.Sub(distributable, computed)
	if err != nil {
		return err
	}

	// Book into the working copy.
	if p.DayLockedTotal, err = calculator.Add(p.DayLockedTotal, pageLocked); err != nil {
		return err
	}
	p.DayInvestorAllocation = cumulative
	if p.DailyDistributedToInvestors, err = calculator.Add(p.DailyDistributedToInvestors, paid); err != nil {
		return err
	}
	carry, err := calculator.Add(withheld, capOverflow)
	if err != nil {
		return err
	}
	if p.CarryOver, err = calculator.Add(p.CarryOver, carry); err != nil {
		return err
	}
	if p.TotalRoundingDust, err = calculator.Add(p.TotalRoundingDust, roundingDust); err != nil {
		return err
	}
	if p.CurrentPage, err = calculator.AddUint16(req.PageIndex, 1); err != nil {
		return err
	}
	if p.PagesProcessedToday, err = calculator.AddUint16(p.PagesProcessedToday, 1); err != nil {
		return err
	}
	if p.InvestorsProcessedToday, err = calculator.AddUint16(p.InvestorsProcessedToday, len(req.Investors)); err != nil {
		return err
	}

	res.Allocation = alloc
	res.Distributable = distributable
	res.Distributed = paid
	res.Withheld = withheld
	res.CapOverflow = capOverflow
	res.RoundingDust = roundingDust
	res.Events = append(res.Events, model.PageSettled{
		Day:              p.CurrentDay,
		PageIndex:        req.PageIndex,
		InvestorsPaid:    investorsPaid,
		TotalDistributed: paid,
		RoundingDust:     roundingDust,
		Timestamp:        now.Unix(),
	})
	e.logger.Debug("page settled",
		zap.Uint64("day", p.CurrentDay),
		zap.Uint16("page", req.PageIndex),
		zap.Uint64("locked", pageLocked),
		zap.Uint64("allocation", alloc),
		zap.Uint64("paid", paid),
		zap.Uint64("carry", carry))
	return nil
}

// closeDay sends the creator the part of the day's pool that was never
// earmarked for investors and marks the day closed.
func (e *Engine) closeDay(ctx context.Context, p *model.Progress, ts int64, res *PageResult) error {
	remainder, err := calculator.Sub(p.DayTotalAvailable, p.DayInvestorAllocation)
	if err != nil {
		return errors.Wrap(err, "creator remainder")
	}
	if remainder > 0 {
		if err := e.ledger.Transfer(ctx, e.holdings.Quote, e.policy.CreatorWallet, remainder); err != nil {
			return errors.Wrap(err, "pay creator")
		}
	}
	p.CreatorPayoutSent = true

	res.CreatorAmount = remainder
	res.Events = append(res.Events, model.DayClosed{
		Day:                         p.CurrentDay,
		CreatorAmount:               remainder,
		TotalDistributedToInvestors: p.DailyDistributedToInvestors,
		Timestamp:                   ts,
	})
	return nil
}
