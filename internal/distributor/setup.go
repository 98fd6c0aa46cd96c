package distributor

import (
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
)

// Configure validates the distribution parameters and returns the policy
// to persist. A policy is created once and never modified.
func Configure(params model.Policy) (model.Policy, error) {
	switch {
	case params.BaselineAllocation == 0:
		return model.Policy{}, errors.ErrInvalidPolicy.New("baseline allocation must be positive")
	case params.MaxInvestorShareBps > model.BpsDenominator:
		return model.Policy{}, errors.ErrInvalidPolicy.Newf("max investor share %d bps above %d", params.MaxInvestorShareBps, model.BpsDenominator)
	case params.QuoteMint.IsZero():
		return model.Policy{}, errors.ErrInvalidPolicy.New("quote mint is required")
	case params.CreatorWallet.IsZero():
		return model.Policy{}, errors.ErrInvalidPolicy.New("creator wallet is required")
	case params.Authority.IsZero():
		return model.Policy{}, errors.ErrInvalidPolicy.New("authority is required")
	}
	return params, nil
}

// ResetProgress returns the initial cursor: no day opened yet, so page 0
// is accepted immediately.
func ResetProgress() model.Progress {
	return model.Progress{}
}

// CommitInvestorCount fixes the number of investors a day covers. Once set,
// the page reaching the count is final and larger batches are rejected.
func CommitInvestorCount(p *model.Progress, total uint16) error {
	if p.DayOpen() && p.PagesProcessedToday > 0 {
		return errors.ErrInvalidState.Newf("day %d is in progress", p.CurrentDay)
	}
	p.TotalInvestors = total
	return nil
}
