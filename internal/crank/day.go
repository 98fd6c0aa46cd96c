package crank

import (
	"context"

	"FeeRouter/internal/distributor"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
	"FeeRouter/internal/store"
)

// DayReport sums the pages a RunDay call committed.
type DayReport struct {
	Day           uint64
	Pages         []*distributor.PageResult
	Claimed       uint64
	Distributed   uint64
	Withheld      uint64
	CapOverflow   uint64
	RoundingDust  uint64
	CreatorAmount uint64
	Closed        bool
}

// InvestorsPaid counts payouts that were transferred.
func (d *DayReport) InvestorsPaid() int {
	n := 0
	for _, p := range d.Pages {
		for _, po := range p.Payouts {
			if po.Amount > 0 && !po.Withheld {
				n++
			}
		}
	}
	return n
}

func (d *DayReport) add(res *distributor.PageResult) {
	d.Day = res.Day
	d.Pages = append(d.Pages, res)
	d.Claimed += res.Claimed
	d.Distributed += res.Distributed
	d.Withheld += res.Withheld
	d.CapOverflow += res.CapOverflow
	d.RoundingDust += res.RoundingDust
	d.CreatorAmount += res.CreatorAmount
	d.Closed = d.Closed || res.Final
}

// RunNext runs the next page of the current day, or page 0 of a new day
// once the window has elapsed. Batches are cut from the registry in order.
func (r *Runner) RunNext(ctx context.Context) (*distributor.PageResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runNext(ctx)
}

func (r *Runner) runNext(ctx context.Context) (*distributor.PageResult, error) {
	var progress model.Progress
	err := r.store.View(ctx, func(q store.Querier) error {
		var err error
		progress, err = store.LoadProgress(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	investors, err := r.registry.Investors(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list investors")
	}
	return r.runPage(ctx, r.nextRequest(progress, investors))
}

// nextRequest picks the page the gate will accept next. When nothing is
// accepted it still returns a request so the engine reports why.
func (r *Runner) nextRequest(p model.Progress, investors []model.Investor) distributor.PageRequest {
	page, offset := p.CurrentPage, int(p.InvestorsProcessedToday)
	windowOpen := r.now().Unix()-p.LastDistributionTs >= int64(distributor.DistributionWindow.Seconds())
	if windowOpen || !p.DayOpen() {
		page, offset = 0, 0
	}
	offset = min(offset, len(investors))
	end := min(offset+r.maxInvestors, len(investors))
	return distributor.PageRequest{
		PageIndex: page,
		Final:     end == len(investors),
		Investors: investors[offset:end],
	}
}

// RunDay runs pages until the day closes. A day left open by an earlier
// failure is resumed from its current page.
func (r *Runner) RunDay(ctx context.Context) (*DayReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := &DayReport{}
	for !report.Closed {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := r.runNext(ctx)
		if err != nil {
			return report, err
		}
		if len(report.Pages) > 0 && res.Day != report.Day {
			return report, errors.ErrInvalidState.Newf("day changed from %d to %d mid-run", report.Day, res.Day)
		}
		report.add(res)
	}
	return report, nil
}
