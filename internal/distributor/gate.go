package distributor

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"FeeRouter/internal/calculator"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
)

var windowSeconds = int64(DistributionWindow.Seconds())

// windowElapsed reports whether a new day may open at ts.
func windowElapsed(p *model.Progress, ts int64) bool {
	return ts-p.LastDistributionTs >= windowSeconds
}

// NextWindow returns the unix time at which page 0 is accepted again.
func NextWindow(p *model.Progress) int64 {
	return p.LastDistributionTs + windowSeconds
}

// checkGate enforces the day/page state machine. It never mutates progress.
func checkGate(p *model.Progress, page uint16, ts int64) error {
	newDay := windowElapsed(p, ts)
	if page == 0 {
		if !newDay {
			return errors.ErrWindowNotElapsed.Newf("next window opens at %d", NextWindow(p))
		}
		return nil
	}
	if p.HasBaseFees {
		return errors.ErrBaseFeesDetected.Newf("day %d is quarantined", p.CurrentDay)
	}
	if newDay {
		return errors.ErrInvalidPageIndex.Newf("page %d after the day window elapsed, start again at page 0", page)
	}
	if p.CreatorPayoutSent {
		return errors.ErrAllPagesProcessed.Newf("day %d is closed", p.CurrentDay)
	}
	if page != p.CurrentPage {
		return errors.ErrInvalidPageIndex.Newf("got page %d, expected %d", page, p.CurrentPage)
	}
	return nil
}

func (e *Engine) checkBatch(investors []model.Investor) error {
	if len(investors) > e.maxInvestors {
		return errors.ErrTooManyInvestors.Newf("%d investors, limit %d", len(investors), e.maxInvestors)
	}
	seen := make(map[solana.PublicKey]struct{}, len(investors))
	for _, inv := range investors {
		if _, ok := seen[inv.Stream]; ok {
			return errors.ErrDuplicateInvestor.Newf("stream %s", inv.Stream)
		}
		seen[inv.Stream] = struct{}{}
	}
	return nil
}

// checkAccounts verifies that every account value can flow to or from
// holds the quote currency.
func (e *Engine) checkAccounts(ctx context.Context, investors []model.Investor) error {
	if err := e.requireQuote(ctx, e.holdings.Quote, "treasury"); err != nil {
		return err
	}
	if err := e.requireQuote(ctx, e.policy.CreatorWallet, "creator"); err != nil {
		return err
	}
	for _, inv := range investors {
		if inv.Destination == e.holdings.Quote {
			return errors.ErrInvalidAccount.Newf("investor %s pays into the treasury", inv.Stream)
		}
		if err := e.requireQuote(ctx, inv.Destination, "investor"); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) requireQuote(ctx context.Context, account solana.PublicKey, role string) error {
	mint, err := e.ledger.Mint(ctx, account)
	if err != nil {
		return errors.Wrapf(err, "%s account %s", role, account)
	}
	if !mint.Equals(e.policy.QuoteMint) {
		return errors.ErrInvalidQuoteMint.Newf("%s account %s holds %s", role, account, mint)
	}
	return nil
}

// resolveFinal decides whether the page closes the day. With a committed
// investor count the page is final exactly when it reaches the count.
func resolveFinal(p *model.Progress, req PageRequest) (bool, error) {
	if p.TotalInvestors == 0 {
		return req.Final, nil
	}
	processed, err := calculator.AddUint16(p.InvestorsProcessedToday, len(req.Investors))
	if err != nil {
		return false, err
	}
	switch {
	case processed > p.TotalInvestors:
		return false, errors.ErrTooManyInvestors.Newf("%d investors processed, %d committed", processed, p.TotalInvestors)
	case processed < p.TotalInvestors && req.Final:
		return false, errors.ErrPrematureFinalPage.Newf("%d of %d investors processed", processed, p.TotalInvestors)
	}
	return processed == p.TotalInvestors, nil
}
